package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/premaid/pkg/player"
	"github.com/gwillem/premaid/pkg/protocol"
	"github.com/gwillem/premaid/pkg/robot"
	"github.com/gwillem/premaid/pkg/telemetry"
)

type PlayCommand struct {
	Port    string  `short:"p" long:"port" description:"Serial port (overrides the config file)"`
	Hz      int     `long:"hz" description:"Control loop frequency (default 60)"`
	FPS     float64 `long:"fps" description:"Motion file tick rate (default 60)"`
	Strict  bool    `long:"strict" description:"Refuse motion files with damaged keyframes"`
	Speed   int     `long:"speed" description:"Speed of the periodic full pose (default 40)"`
	Stretch int     `long:"stretch" description:"Set joint stretch (1-127) before playing"`
	Paused  bool    `long:"paused" description:"Load the file but do not start playing"`

	Args struct {
		File string `positional-arg-name:"file.pma" required:"yes"`
	} `positional-args:"yes"`
}

const (
	headerHeight = 4 // title + status + blank lines
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	seekStep     = 0.05
)

// Joints drawn in the chart and their colors.
var chartJoints = []struct {
	name  robot.JointName
	color string
}{
	{robot.HeadYaw, "196"},
	{robot.RightShoulderPitch, "208"},
	{robot.LeftShoulderPitch, "226"},
	{robot.RightLowerArmPitch, "46"},
	{robot.RightUpperLegPitch, "51"},
	{robot.LeftUpperLegPitch, "201"},
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	playingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

type playModel struct {
	ctrl     *player.Controller
	chart    *streamlinechart.Model
	state    player.State
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
	lastTick int
}

func (m *playModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg player.State
type logMsg string

func waitForState(ctrl *player.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *player.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *playModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func initialPlayModel(ctrl *player.Controller) playModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-135, 135),
	)
	for _, j := range chartJoints {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(j.color))
		chart.SetDataSetStyles(string(j.name), runes.ThinLineStyle, style)
	}
	return playModel{
		ctrl:     ctrl,
		chart:    &chart,
		lastTick: -1,
	}
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case " ":
			m.ctrl.Toggle()
		case "left":
			m.ctrl.SeekBy(-seekStep)
		case "right":
			m.ctrl.SeekBy(seekStep)
		case "home":
			m.ctrl.Seek(0)
		case "s":
			m.ctrl.AllStop()
		case "b":
			if err := m.ctrl.Doll().RequestBattery(); err != nil {
				m.addLog(err.Error())
			}
		}

	case stateMsg:
		state := player.State(msg)
		m.state = state
		// Freeze the chart while the pose does not change
		if state.Pose != nil && state.Tick != m.lastTick {
			for _, j := range chartJoints {
				if v, ok := poseValue(state.Pose, j.name.ID()); ok {
					m.chart.PushDataSet(string(j.name), protocol.RawToDegrees(v))
				}
			}
			m.chart.DrawAll()
			m.lastTick = state.Tick
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func poseValue(pose []protocol.JointValue, id byte) (int, bool) {
	for _, jv := range pose {
		if jv.ID == id {
			return jv.Value, true
		}
	}
	return 0, false
}

func (m playModel) View() string {
	if m.quitting {
		return "Playback stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Premaid Play"))
	sb.WriteString(fmt.Sprintf(" - %s - %d Hz", m.state.File, m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("space play/stop  ←/→ seek  home rewind  s all-stop  b battery  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m playModel) renderStatus() string {
	s := m.state
	mode := statusStyle.Render("■ stopped")
	if s.Playing {
		mode = playingStyle.Render("▶ playing")
	}

	const barWidth = 30
	filled := 0
	if s.TotalTicks > 0 {
		filled = min(barWidth*s.Tick/s.TotalTicks, barWidth)
	}
	bar := barStyle.Render(strings.Repeat("█", filled)) + statusStyle.Render(strings.Repeat("░", barWidth-filled))

	battery := statusStyle.Render("battery ?")
	if s.HasBattery {
		style := playingStyle
		if s.Battery.Low() {
			style = warnStyle
		}
		battery = style.Render(fmt.Sprintf("%.2f V", s.Battery.Volts))
	}
	return fmt.Sprintf("%s  %s  %d/%d  %s", mode, bar, s.Tick, s.TotalTicks, battery)
}

func renderLegend() string {
	var items []string
	for _, j := range chartJoints {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(j.color)).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(j.name))
	}
	return strings.Join(items, "  ")
}

func (c *PlayCommand) Execute(args []string) error {
	cfg := loadConfig()
	if c.Port != "" {
		cfg.Port = c.Port
	}
	if cfg.Port == "" {
		fmt.Fprintln(os.Stderr, "No port configured. Run 'premaid ports' first or pass --port.")
		os.Exit(1)
	}

	sink, err := openTelemetry(cfg.Telemetry)
	if err != nil {
		return err
	}

	doll, err := robot.NewDoll(robot.DollConfig{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		Keepalive:   cfg.Keepalive(),
		Calibration: cfg.JointCalibration(),
	})
	if err != nil {
		sink.Close()
		return err
	}

	ctrl := player.NewController(doll, player.Config{
		Hz:     firstNonZero(c.Hz, cfg.Hz),
		FPS:    firstNonZeroFloat(c.FPS, cfg.FPS),
		Speed:  firstNonZero(c.Speed, cfg.Speed),
		Strict: c.Strict,
		Sink:   sink,
	})
	defer ctrl.Close()

	if err := ctrl.Load(c.Args.File); err != nil {
		return err
	}
	if c.Stretch > 0 {
		if err := doll.SetStretch(c.Stretch); err != nil {
			return err
		}
	}
	if ns := natsSink(sink); ns != nil {
		if _, err := ns.SubscribeOrders(ctrl.Send, ctrl.RemoteError); err != nil {
			return err
		}
	}
	if !c.Paused {
		ctrl.Play()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctrl.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(initialPlayModel(ctrl), tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("Playback error: %v", err)
		return err
	}
	return nil
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist yet.
func loadConfig() *robot.Config {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load %s: %v", opts.Config, err)
		}
		return &robot.Config{}
	}
	return cfg
}

// openTelemetry connects the configured sinks. With nothing configured it
// returns telemetry.Nop; a single sink is returned as is.
func openTelemetry(tc robot.TelemetryConfig) (telemetry.Sink, error) {
	if !tc.Enabled() {
		return telemetry.Nop{}, nil
	}
	name := tc.Name
	if name == "" {
		name = "maid"
	}

	var sinks telemetry.Multi
	if tc.NATSURL != "" {
		ns, err := telemetry.DialNATS(tc.NATSURL, name)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ns)
	}
	if tc.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rs, err := telemetry.DialRedis(ctx, tc.RedisAddr, name)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, rs)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

// natsSink returns the NATS sink among sink, if any. Remote orders arrive
// through it.
func natsSink(sink telemetry.Sink) *telemetry.NATSSink {
	switch s := sink.(type) {
	case *telemetry.NATSSink:
		return s
	case telemetry.Multi:
		for _, inner := range s {
			if ns := natsSink(inner); ns != nil {
				return ns
			}
		}
	}
	return nil
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonZeroFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
