package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/premaid/pkg/protocol"
	"github.com/gwillem/premaid/pkg/transport"
)

// Link is the part of a transport session the doll needs.
// *transport.Session implements it.
type Link interface {
	Send(o protocol.Order) error
	Poll() []error
	OnFrame(handler func(protocol.Frame))
	Close() error
}

// DollConfig holds what is needed to connect to a doll.
type DollConfig struct {
	Port        string
	BaudRate    int
	Keepalive   time.Duration
	Calibration Calibration
}

// Doll is a connected doll: a link plus the registry of joint targets.
type Doll struct {
	link     Link
	registry *Registry
}

// NewDoll opens the serial link to a doll.
func NewDoll(cfg DollConfig) (*Doll, error) {
	session, err := transport.Open(transport.Config{
		Port:      cfg.Port,
		BaudRate:  cfg.BaudRate,
		Keepalive: cfg.Keepalive,
	})
	if err != nil {
		return nil, fmt.Errorf("open link: %w", err)
	}
	return NewDollWithLink(session, cfg.Calibration), nil
}

// NewDollWithLink wraps an already open link. A nil calibration selects the
// defaults.
func NewDollWithLink(link Link, cal Calibration) *Doll {
	if cal == nil {
		cal = DefaultCalibration()
	}
	return &Doll{link: link, registry: NewRegistry(cal)}
}

// Close closes the doll's link.
func (d *Doll) Close() error {
	return d.link.Close()
}

// Link returns the underlying link.
func (d *Doll) Link() Link { return d.link }

// Registry returns the joint targets.
func (d *Doll) Registry() *Registry { return d.registry }

// Send queues an order. Hand-written pose orders go through the registry, so
// their values leave clamped to the safe ranges; a pose of all zeros is the
// torque release and is sent unchanged.
func (d *Doll) Send(o protocol.Order) error {
	if o.Kind == protocol.KindRaw && o.Frame().Command() == protocol.CmdPose {
		return d.sendRawPose(o)
	}
	return d.link.Send(o)
}

func (d *Doll) sendRawPose(o protocol.Order) error {
	speed, values, err := protocol.PoseValues(o.Frame())
	if err != nil {
		return err
	}
	if releases(values) {
		return d.link.Send(o)
	}
	clamped, err := d.registry.SetPose(values)
	if err != nil {
		return fmt.Errorf("raw pose: %w", err)
	}
	if err := d.link.Send(protocol.PoseOrder(speed, clamped)); err != nil {
		return fmt.Errorf("send pose: %w", err)
	}
	d.registry.MarkSent(clamped)
	return nil
}

func releases(values []protocol.JointValue) bool {
	for _, jv := range values {
		if jv.Value != 0 {
			return false
		}
	}
	return len(values) > 0
}

// SendPose sends every joint at the given speed.
func (d *Doll) SendPose(speed int) error {
	values := d.registry.Snapshot()
	if err := d.link.Send(protocol.PoseOrder(speed, values)); err != nil {
		return fmt.Errorf("send pose: %w", err)
	}
	d.registry.MarkSent(values)
	return nil
}

// SendDiff sends the joints that moved since the last send and returns how
// many were included. speed maps that count to a speed.
func (d *Doll) SendDiff(speed func(n int) int) (int, error) {
	order, values := d.registry.BuildDiffOrder(true, speed)
	if order.IsZero() {
		return 0, nil
	}
	if err := d.link.Send(order); err != nil {
		return 0, fmt.Errorf("send diff: %w", err)
	}
	d.registry.MarkSent(values)
	return len(values), nil
}

// AllStop releases torque on every joint.
func (d *Doll) AllStop() error {
	return d.link.Send(protocol.AllStopOrder(d.registry.ListJoints()))
}

// SetStretch sets the stretch (holding stiffness) of every joint.
func (d *Doll) SetStretch(value int) error {
	return d.link.Send(protocol.ServoPropertyOrder(protocol.PropertyStretch, d.registry.ListJoints(), value))
}

// SetServoSpeed sets the servo speed property of every joint.
func (d *Doll) SetServoSpeed(value int) error {
	return d.link.Send(protocol.ServoPropertyOrder(protocol.PropertySpeed, d.registry.ListJoints(), value))
}

// RequestBattery asks the doll for its battery level.
func (d *Doll) RequestBattery() error {
	return d.link.Send(protocol.BatteryQuery())
}

// ReadBattery requests the battery level and polls the link until the reply
// arrives. It replaces the link's frame handler while it runs.
func (d *Doll) ReadBattery(ctx context.Context) (protocol.Battery, error) {
	replies := make(chan protocol.Battery, 1)
	d.link.OnFrame(func(f protocol.Frame) {
		if b, ok := protocol.ParseBattery(f); ok {
			select {
			case replies <- b:
			default:
			}
		}
	})
	defer d.link.OnFrame(nil)

	if err := d.RequestBattery(); err != nil {
		return protocol.Battery{}, err
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		var ioErrs []error
		for _, err := range d.link.Poll() {
			var ioErr *transport.IOError
			if errors.As(err, &ioErr) {
				ioErrs = append(ioErrs, err)
			}
		}
		if len(ioErrs) > 0 {
			return protocol.Battery{}, errors.Join(ioErrs...)
		}
		select {
		case b := <-replies:
			return b, nil
		case <-ctx.Done():
			return protocol.Battery{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// QueryBattery opens port, asks for the battery level and closes it again. It is
// used to tell a doll apart from other serial devices.
func QueryBattery(ctx context.Context, port string, baud int) (protocol.Battery, error) {
	doll, err := NewDoll(DollConfig{Port: port, BaudRate: baud, Keepalive: -1})
	if err != nil {
		return protocol.Battery{}, err
	}
	defer doll.Close()
	return doll.ReadBattery(ctx)
}
