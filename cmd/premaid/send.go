package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gwillem/premaid/pkg/protocol"
	"github.com/gwillem/premaid/pkg/robot"
)

type SendCommand struct {
	Port  string        `short:"p" long:"port" description:"Serial port (overrides the config file)"`
	Wait  time.Duration `short:"w" long:"wait" default:"2s" description:"How long to print replies"`
	Value int           `long:"value" default:"64" description:"Value for stretch and speed orders"`
	Page  int           `long:"page" default:"0" description:"Flash page for the flash order"`

	Args struct {
		Order []string `positional-arg-name:"order" required:"yes" description:"battery, stop, dance, endpose, flash, stretch, speed or raw hex bytes"`
	} `positional-args:"yes"`
}

// buildOrder turns a named order or a hex string into an order for the
// joints in ids.
func buildOrder(args []string, ids []byte, value, page int) (protocol.Order, error) {
	switch name := strings.ToLower(args[0]); name {
	case "battery":
		return protocol.BatteryQuery(), nil
	case "stop", "allstop":
		return protocol.AllStopOrder(ids), nil
	case "dance":
		return protocol.PlayStoredMotion(0x01), nil
	case "endpose":
		return protocol.EndPose(), nil
	case "flash":
		if page < 0 || page > 0xFF {
			return protocol.Order{}, fmt.Errorf("flash page %d out of range", page)
		}
		return protocol.FlashDumpRequest(byte(page)), nil
	case "stretch":
		return protocol.ServoPropertyOrder(protocol.PropertyStretch, ids, value), nil
	case "speed":
		return protocol.ServoPropertyOrder(protocol.PropertySpeed, ids, value), nil
	case "slot":
		if len(args) < 2 {
			return protocol.Order{}, fmt.Errorf("slot needs a number")
		}
		slot, err := strconv.ParseUint(args[1], 0, 8)
		if err != nil {
			return protocol.Order{}, fmt.Errorf("slot %q: %w", args[1], err)
		}
		return protocol.PlayStoredMotion(byte(slot)), nil
	default:
		return protocol.RawOrder(strings.Join(args, " "))
	}
}

func (c *SendCommand) Execute(args []string) error {
	cfg := loadConfig()
	if c.Port != "" {
		cfg.Port = c.Port
	}
	if cfg.Port == "" {
		fmt.Fprintln(os.Stderr, "No port configured. Run 'premaid ports' first or pass --port.")
		os.Exit(1)
	}

	cal := cfg.JointCalibration()
	order, err := buildOrder(c.Args.Order, cal.JointIDs(), c.Value, c.Page)
	if err != nil {
		return err
	}

	doll, err := robot.NewDoll(robot.DollConfig{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		Keepalive:   -1,
		Calibration: cal,
	})
	if err != nil {
		return err
	}
	defer doll.Close()

	doll.Link().OnFrame(func(f protocol.Frame) {
		printReply(f)
	})

	fmt.Printf("%s %s\n", dimStyle.Render("→"), order)
	if err := doll.Send(order); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelWait := context.WithTimeout(ctx, c.Wait)
	defer cancelWait()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, err := range doll.Link().Poll() {
			fmt.Println(warnStyle.Render(err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printReply(f protocol.Frame) {
	line := fmt.Sprintf("%s %s", dimStyle.Render("←"), f)
	switch {
	case !f.Valid():
		line += warnStyle.Render("  checksum mismatch")
	case protocol.IsPoseAck(f):
		line += successStyle.Render("  pose accepted")
	case protocol.IsPoseReply(f):
		line += warnStyle.Render("  pose rejected")
	}
	if b, ok := protocol.ParseBattery(f); ok {
		style := successStyle
		if b.Low() {
			style = warnStyle
		}
		line += style.Render(fmt.Sprintf("  battery %.2f V", b.Volts))
	}
	fmt.Println(line)
}
