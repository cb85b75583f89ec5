package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/premaid/pkg/motion"
	"github.com/gwillem/premaid/pkg/playback"
	"github.com/gwillem/premaid/pkg/protocol"
	"github.com/gwillem/premaid/pkg/robot"
)

type InspectCommand struct {
	FPS    float64 `long:"fps" default:"60" description:"Tick rate used for times"`
	Strict bool    `long:"strict" description:"Fail on damaged keyframes instead of counting them"`
	Raw    bool    `long:"raw" description:"Show raw servo values instead of degrees"`
	Limit  int     `long:"limit" default:"50" description:"Show at most this many keyframes (0 for all)"`
	At     int     `long:"at" default:"-1" description:"Show the interpolated pose at this tick instead"`

	Args struct {
		File string `positional-arg-name:"file.pma" required:"yes"`
	} `positional-args:"yes"`

	cal robot.Calibration
}

func (c *InspectCommand) Execute(args []string) error {
	seq, err := motion.Parser{Strict: c.Strict}.Load(c.Args.File)
	if err != nil {
		return err
	}
	c.cal = loadConfig().JointCalibration()

	fmt.Println(headerStyle.Render(c.Args.File))
	fmt.Printf("  %d keyframes, %d ticks, %s at %g fps\n",
		seq.Len(), seq.TotalTicks, seq.Duration(c.FPS).Round(time.Millisecond), c.FPS)
	if seq.Loops > 0 {
		fmt.Printf("  %d loops expanded\n", seq.Loops)
	}
	if seq.BadChecksums > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  %d keyframes with bad checksums", seq.BadChecksums)))
	}
	fmt.Println()

	switch {
	case seq.Len() == 0:
	case c.At >= 0:
		fmt.Printf("Pose at tick %d\n", c.At)
		fmt.Println(c.poseTable(seq, c.At).Render())
	default:
		fmt.Println(c.keyframeTable(seq).Render())
	}
	return nil
}

func (c *InspectCommand) keyframeTable(seq *motion.Sequence) *table.Table {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableIndexStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableBadStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	headers := []string{"#", "Start", "Wait", "Sum"}
	for _, j := range chartJoints {
		headers = append(headers, string(j.name))
	}

	n := seq.Len()
	if c.Limit > 0 {
		n = min(n, c.Limit)
	}
	rows := make([][]string, 0, n)
	bad := make([]bool, 0, n)
	// the first keyframe is held for its wait, later ones are reached
	// over theirs
	start, elapsed := 0, 0
	for i, k := range seq.Keyframes[:n] {
		elapsed += k.Wait()
		if i > 0 {
			start = elapsed
		}
		sum := "ok"
		if !k.ChecksumValid() {
			sum = fmt.Sprintf("%02X", k.Checksum)
		}
		row := []string{strconv.Itoa(i), strconv.Itoa(start), strconv.Itoa(k.Wait()), sum}
		for _, j := range chartJoints {
			v, ok := k.Value(j.name.ID())
			row = append(row, c.formatValue(v, ok))
		}
		rows = append(rows, row)
		bad = append(bad, !k.ChecksumValid())
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch {
			case col == 0:
				return tableIndexStyle
			case col == 3 && row >= 0 && row < len(bad) && bad[row]:
				return tableBadStyle
			default:
				return tableCellStyle
			}
		})
}

func (c *InspectCommand) formatValue(v int, ok bool) string {
	if !ok {
		return "-"
	}
	if c.Raw {
		return strconv.Itoa(v)
	}
	return fmt.Sprintf("%.1f°", protocol.RawToDegrees(v))
}

// rangePercent shows where v sits in the joint's safe range, from -100% at
// the minimum to +100% at the maximum.
func rangePercent(cal robot.Calibration, name robot.JointName, v int, ok bool) string {
	jc, known := cal[name]
	if !ok || !known {
		return "-"
	}
	return fmt.Sprintf("%+.0f%%", jc.Normalize(v))
}

// poseTable lists every joint of the interpolated pose at tick and where it
// sits in the joint's safe range.
func (c *InspectCommand) poseTable(seq *motion.Sequence, tick int) *table.Table {
	pose, _ := playback.PoseAt(seq, tick)
	rows := make([][]string, 0, len(pose))
	for _, jv := range robot.AllJoints() {
		v, ok := poseValue(pose, jv.ID())
		rows = append(rows, []string{
			fmt.Sprintf("%02X", jv.ID()),
			string(jv),
			c.formatValue(v, ok),
			rangePercent(c.cal, jv, v, ok),
		})
	}
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Joint", "Value", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}
