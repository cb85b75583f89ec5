// Package player drives a doll from a motion file: it polls the link, moves
// the playback timeline, pushes poses into the registry and sends them.
package player

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gwillem/premaid/pkg/motion"
	"github.com/gwillem/premaid/pkg/playback"
	"github.com/gwillem/premaid/pkg/protocol"
	"github.com/gwillem/premaid/pkg/robot"
	"github.com/gwillem/premaid/pkg/telemetry"
)

// Pacing of pose traffic. After a diff of n joints the link is left alone for
// n*DiffCooldownPerJoint; a full pose is followed by FullPoseCooldown.
const (
	DefaultHz               = 60
	DefaultKeyframeInterval = time.Second
	FullPoseSpeed           = 40
	DiffCooldownPerJoint    = 5 * time.Millisecond
	FullPoseCooldown        = 90 * time.Millisecond

	// StatusInterval bounds how often status is published to telemetry.
	StatusInterval = time.Second
)

// DiffSpeed returns the transition speed for a diff of n joints.
func DiffSpeed(n int) int {
	return protocol.Clamp(2*n, 10, 40)
}

// State represents the current state of playback.
type State struct {
	File       string
	Tick       int
	TotalTicks int
	Playing    bool
	Pose       []protocol.JointValue
	Battery    protocol.Battery
	HasBattery bool
	Sent       int // joints in the last order sent
	Timestamp  time.Time
	Error      error
}

// Config holds configuration for the controller.
type Config struct {
	Hz               int
	FPS              float64
	KeyframeInterval time.Duration
	Speed            int  // speed of the periodic full pose, FullPoseSpeed if zero
	Strict           bool // reject damaged motion files
	Sink             telemetry.Sink
	Clock            func() time.Time
}

// Controller manages the playback control loop.
type Controller struct {
	doll     *robot.Doll
	timeline *playback.Timeline
	parser   motion.Parser
	sink     telemetry.Sink
	hz       int
	interval time.Duration
	speed    int
	now      func() time.Time

	mu         sync.RWMutex
	running    bool
	file       string
	battery    protocol.Battery
	hasBattery bool
	lastTick   int
	lastFull   time.Time
	quietUntil time.Time
	lastStatus time.Time

	stateCh chan State
	logCh   chan string
}

// NewController creates a new playback controller for doll.
func NewController(doll *robot.Doll, cfg Config) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.KeyframeInterval <= 0 {
		cfg.KeyframeInterval = DefaultKeyframeInterval
	}
	if cfg.Speed <= 0 {
		cfg.Speed = FullPoseSpeed
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.Nop{}
	}

	return &Controller{
		doll:     doll,
		timeline: playback.New(nil, playback.WithClock(cfg.Clock), playback.WithFPS(cfg.FPS)),
		parser:   motion.Parser{Strict: cfg.Strict},
		sink:     cfg.Sink,
		hz:       cfg.Hz,
		interval: cfg.KeyframeInterval,
		speed:    cfg.Speed,
		now:      cfg.Clock,
		lastTick: -1,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Timeline returns the playback timeline.
func (c *Controller) Timeline() *playback.Timeline {
	return c.timeline
}

// Doll returns the controlled doll.
func (c *Controller) Doll() *robot.Doll {
	return c.doll
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Load parses a motion file and makes it the current sequence. On error the
// previously loaded sequence stays in place.
func (c *Controller) Load(path string) error {
	seq, err := c.parser.Load(path)
	if err != nil {
		c.log("Load failed: %v", err)
		return err
	}
	c.LoadSequence(filepath.Base(path), seq)
	if seq.BadChecksums > 0 {
		c.log("Warning: %d keyframes with bad checksums", seq.BadChecksums)
	}
	return nil
}

// LoadSequence makes seq the current sequence.
func (c *Controller) LoadSequence(name string, seq *motion.Sequence) {
	c.timeline.SetSequence(seq)
	c.mu.Lock()
	c.file = name
	c.lastTick = -1
	c.mu.Unlock()
	c.log("Loaded %s: %d keyframes, %d ticks (%s)",
		name, seq.Len(), seq.TotalTicks, seq.Duration(c.timeline.FPS()).Round(time.Millisecond))
}

// Play starts or resumes playback.
func (c *Controller) Play() {
	if c.timeline.Sequence().Len() == 0 {
		c.log("Nothing to play")
		return
	}
	c.timeline.Play()
	c.log("Playing")
}

// Stop pauses playback.
func (c *Controller) Stop() {
	c.timeline.Stop()
	c.log("Stopped at tick %d", c.timeline.Tick())
}

// Toggle switches between playing and stopped.
func (c *Controller) Toggle() {
	if c.timeline.Playing() {
		c.Stop()
	} else {
		c.Play()
	}
}

// Seek moves playback to fraction f of the sequence.
func (c *Controller) Seek(f float64) {
	c.timeline.Seek(f)
	c.mu.Lock()
	c.lastTick = -1
	c.mu.Unlock()
}

// SeekBy moves playback by delta, a fraction of the sequence.
func (c *Controller) SeekBy(delta float64) {
	c.Seek(c.timeline.Progress() + delta)
}

// AllStop stops playback and releases every servo.
func (c *Controller) AllStop() error {
	c.timeline.Stop()
	if err := c.doll.AllStop(); err != nil {
		c.log("All-stop failed: %v", err)
		return err
	}
	c.log("All servos released")
	return nil
}

// Send forwards an order to the doll, e.g. one received remotely. Pose
// values are clamped by the doll's registry.
func (c *Controller) Send(o protocol.Order) error {
	if err := c.doll.Send(o); err != nil {
		return err
	}
	c.log("Sent %s", o)
	return nil
}

// RemoteError reports an order that arrived remotely but could not be sent.
func (c *Controller) RemoteError(err error) {
	c.log("Remote order failed: %v", err)
}

// Start begins the playback control loop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.doll.Link().OnFrame(func(f protocol.Frame) { c.handleFrame(ctx, f) })
	c.log("Playback started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	for _, err := range c.doll.Link().Poll() {
		c.log("Link error: %v", err)
	}

	pos := c.timeline.Update()
	if pos.Finished {
		c.log("Finished")
	}

	c.mu.Lock()
	moved := pos.Pose != nil && pos.Tick != c.lastTick
	c.lastTick = pos.Tick
	c.mu.Unlock()
	if moved {
		c.doll.Registry().Apply(pos.Pose)
	}

	sent, err := c.transmit(pos.Playing)
	if err != nil {
		c.log("Send error: %v", err)
	}

	state := c.snapshot(pos)
	state.Sent = sent
	state.Error = err
	c.sendState(state)

	c.mu.Lock()
	publish := state.Timestamp.Sub(c.lastStatus) >= StatusInterval || pos.Finished
	if publish {
		c.lastStatus = state.Timestamp
	}
	c.mu.Unlock()
	if !publish {
		return
	}
	if err := c.sink.PublishStatus(ctx, telemetry.Status{
		File:       state.File,
		Tick:       state.Tick,
		TotalTicks: state.TotalTicks,
		Playing:    state.Playing,
		Volts:      state.Battery.Volts,
		Time:       state.Timestamp,
	}); err != nil {
		c.log("Telemetry error: %v", err)
	}
}

// transmit sends a full pose once per keyframe interval while playing and a
// diff otherwise, respecting the cooldown of the previous send.
func (c *Controller) transmit(playing bool) (int, error) {
	now := c.now()
	c.mu.RLock()
	quiet := now.Before(c.quietUntil)
	full := playing && now.Sub(c.lastFull) >= c.interval
	c.mu.RUnlock()
	if quiet {
		return 0, nil
	}

	if full {
		if err := c.doll.SendPose(c.speed); err != nil {
			return 0, err
		}
		n := len(c.doll.Registry().ListJoints())
		c.mu.Lock()
		c.lastFull = now
		c.quietUntil = now.Add(FullPoseCooldown)
		c.mu.Unlock()
		return n, nil
	}

	n, err := c.doll.SendDiff(DiffSpeed)
	if err != nil || n == 0 {
		return 0, err
	}
	c.mu.Lock()
	c.quietUntil = now.Add(time.Duration(n) * DiffCooldownPerJoint)
	c.mu.Unlock()
	return n, nil
}

func (c *Controller) handleFrame(ctx context.Context, f protocol.Frame) {
	if !f.Valid() {
		c.log("Checksum mismatch: %s", f)
	}
	if b, ok := protocol.ParseBattery(f); ok {
		c.mu.Lock()
		c.battery = b
		c.hasBattery = true
		c.mu.Unlock()
		if b.Low() {
			c.log("Warning: battery low (%.2f V)", b.Volts)
		}
		if err := c.sink.PublishBattery(ctx, b); err != nil {
			c.log("Telemetry error: %v", err)
		}
	}
	if protocol.IsPoseReply(f) && !protocol.IsPoseAck(f) {
		c.log("Pose rejected: %s", f)
	}
	if err := c.sink.PublishFrame(ctx, f); err != nil {
		c.log("Telemetry error: %v", err)
	}
}

func (c *Controller) snapshot(pos playback.Position) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		File:       c.file,
		Tick:       pos.Tick,
		TotalTicks: pos.TotalTicks,
		Playing:    pos.Playing,
		Pose:       c.doll.Registry().Snapshot(),
		Battery:    c.battery,
		HasBattery: c.hasBattery,
		Timestamp:  c.now(),
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.timeline.Stop()
	c.doll.Link().OnFrame(nil)
	c.log("Playback stopped")
}

// Close stops the controller's doll link and telemetry.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	if err := c.doll.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
