package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/premaid/pkg/robot"
	"github.com/gwillem/premaid/pkg/transport"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type PortsCommand struct {
	Baud    int           `long:"baud" default:"115200" description:"Serial baud rate"`
	Timeout time.Duration `long:"timeout" default:"3s" description:"How long to wait for a battery reply per port"`
	NoQuery bool          `long:"no-query" description:"Only list ports, do not query them"`
}

type portInfo struct {
	port  string
	volts float64
	err   error
}

func (c *PortsCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Premaid Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	ports, err := transport.ListPorts()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		fmt.Println("Pair the doll over Bluetooth and try again.")
		os.Exit(1)
	}

	infos := make([]portInfo, 0, len(ports))
	for _, port := range ports {
		info := portInfo{port: port}
		if !c.NoQuery {
			fmt.Printf("  Probing %s... ", port)
			info = c.query(port)
			if info.err != nil {
				fmt.Println(dimStyle.Render("no reply"))
			} else {
				fmt.Println(successStyle.Render(fmt.Sprintf("doll found (%.2f V)", info.volts)))
			}
		}
		infos = append(infos, info)
	}
	fmt.Println()

	port, err := choosePort(infos)
	if err != nil {
		return err
	}

	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", opts.Config, err)
		}
		cfg = &robot.Config{}
	}
	cfg.Port = port
	cfg.BaudRate = c.Baud
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save %s: %w", opts.Config, err)
	}

	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Play a motion with: " + headerStyle.Render("premaid play <file.pma>"))
	return nil
}

func (c *PortsCommand) query(port string) portInfo {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	b, err := robot.QueryBattery(ctx, port, c.Baud)
	return portInfo{port: port, volts: b.Volts, err: err}
}

func choosePort(infos []portInfo) (string, error) {
	var options []huh.Option[string]
	for _, info := range infos {
		label := info.port
		if info.err == nil && info.volts > 0 {
			label = fmt.Sprintf("%s (doll, %.2f V)", info.port, info.volts)
		}
		options = append(options, huh.NewOption(label, info.port))
	}

	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the doll on?").
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return port, nil
}
