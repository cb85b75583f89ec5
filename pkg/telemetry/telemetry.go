// Package telemetry publishes doll traffic and playback status to external
// systems (NATS subjects and a Redis cache) and accepts remote orders.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/gwillem/premaid/pkg/protocol"
)

// Status is a playback snapshot.
type Status struct {
	Doll       string    `json:"doll"`
	File       string    `json:"file,omitempty"`
	Tick       int       `json:"tick"`
	TotalTicks int       `json:"total_ticks"`
	Playing    bool      `json:"playing"`
	Volts      float64   `json:"volts,omitempty"`
	Time       time.Time `json:"time"`
}

// FrameMessage is the JSON form of a received frame.
type FrameMessage struct {
	Doll    string    `json:"doll"`
	Hex     string    `json:"hex"`
	Command byte      `json:"command"`
	Valid   bool      `json:"valid"`
	Time    time.Time `json:"time"`
}

// BatteryMessage is the JSON form of a battery reply.
type BatteryMessage struct {
	Doll  string    `json:"doll"`
	Raw   int       `json:"raw"`
	Volts float64   `json:"volts"`
	Low   bool      `json:"low"`
	Time  time.Time `json:"time"`
}

// Sink receives everything worth publishing about one doll.
type Sink interface {
	PublishFrame(ctx context.Context, f protocol.Frame) error
	PublishBattery(ctx context.Context, b protocol.Battery) error
	PublishStatus(ctx context.Context, s Status) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) PublishFrame(context.Context, protocol.Frame) error     { return nil }
func (Nop) PublishBattery(context.Context, protocol.Battery) error { return nil }
func (Nop) PublishStatus(context.Context, Status) error            { return nil }
func (Nop) Close() error                                           { return nil }

// Multi fans out to several sinks and joins their errors.
type Multi []Sink

func (m Multi) PublishFrame(ctx context.Context, f protocol.Frame) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishFrame(ctx, f))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishBattery(ctx context.Context, b protocol.Battery) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishBattery(ctx, b))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishStatus(ctx context.Context, st Status) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishStatus(ctx, st))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

var now = time.Now
