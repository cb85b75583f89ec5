// Package playback maps wall-clock time onto a motion sequence and produces
// interpolated poses. It never talks to the doll; applying a pose is up to the
// caller.
package playback

import (
	"math"
	"sync"
	"time"

	"github.com/gwillem/premaid/pkg/motion"
	"github.com/gwillem/premaid/pkg/protocol"
)

// DefaultFPS is the tick rate of .pma hold durations.
const DefaultFPS = 60

// Position is the result of one timeline update.
type Position struct {
	Tick       int
	TotalTicks int
	Pose       []protocol.JointValue // nil when the sequence is empty
	Playing    bool
	// Finished is set on the update that ran past the last tick.
	Finished bool
}

// Option configures a Timeline.
type Option func(*Timeline)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timeline) { t.now = now }
}

// WithFPS sets the tick rate. Non-positive values are ignored.
func WithFPS(fps float64) Option {
	return func(t *Timeline) {
		if fps > 0 {
			t.fps = fps
		}
	}
}

// Timeline owns the playback cursor for one loaded sequence.
type Timeline struct {
	mu      sync.Mutex
	seq     *motion.Sequence
	fps     float64
	now     func() time.Time
	tick    int
	playing bool
	start   time.Time
}

// New returns a stopped timeline positioned at tick 0.
func New(seq *motion.Sequence, opts ...Option) *Timeline {
	t := &Timeline{
		seq: seq,
		fps: DefaultFPS,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FPS returns the tick rate.
func (t *Timeline) FPS() float64 { return t.fps }

// Sequence returns the loaded sequence.
func (t *Timeline) Sequence() *motion.Sequence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// SetSequence replaces the sequence, stops playback and rewinds.
func (t *Timeline) SetSequence(seq *motion.Sequence) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq = seq
	t.tick = 0
	t.playing = false
}

// Play starts playback from the current tick. A timeline that already ran
// to the end starts over.
func (t *Timeline) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		return
	}
	if t.tick >= t.totalTicks() {
		t.tick = 0
	}
	t.playing = true
	t.rebase()
}

// Stop freezes the cursor at the current tick.
func (t *Timeline) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	t.tick = t.tickAt(t.now())
	t.playing = false
}

// Toggle switches between playing and stopped and reports the new state.
func (t *Timeline) Toggle() bool {
	if t.Playing() {
		t.Stop()
		return false
	}
	t.Play()
	return true
}

// Playing reports whether the cursor advances with the clock.
func (t *Timeline) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Seek moves the cursor to fraction f of the sequence, clamped to [0,1].
// It does not change the playing state.
func (t *Timeline) Seek(f float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f = math.Max(0, math.Min(1, f))
	t.tick = int(f * float64(t.totalTicks()))
	if t.playing {
		t.rebase()
	}
}

// Tick returns the cursor position, advancing it first when playing.
func (t *Timeline) Tick() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		return t.tickAt(t.now())
	}
	return t.tick
}

// Progress returns the cursor position as a fraction of the sequence.
func (t *Timeline) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.totalTicks()
	if total == 0 {
		return 0
	}
	tick := t.tick
	if t.playing {
		tick = t.tickAt(t.now())
	}
	return math.Min(1, float64(tick)/float64(total))
}

// TickAt converts a wall-clock instant into a tick: floor((now-start) * fps).
func (t *Timeline) TickAt(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickAt(now)
}

// Update advances the cursor to the clock and returns the pose for it.
// Playback stops by itself once the cursor passes the last tick.
func (t *Timeline) Update() Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	var finished bool
	total := t.totalTicks()
	if t.playing {
		t.tick = t.tickAt(t.now())
		if t.tick >= total {
			t.tick = total
			t.playing = false
			finished = true
		}
	}

	pose, _ := PoseAt(t.seq, t.tick)
	return Position{
		Tick:       t.tick,
		TotalTicks: total,
		Pose:       pose,
		Playing:    t.playing,
		Finished:   finished,
	}
}

// PoseAt returns the pose of the timeline at tick.
func (t *Timeline) PoseAt(tick int) ([]protocol.JointValue, bool) {
	return PoseAt(t.Sequence(), tick)
}

func (t *Timeline) totalTicks() int {
	if t.seq == nil {
		return 0
	}
	return t.seq.TotalTicks
}

func (t *Timeline) tickAt(now time.Time) int {
	return int(math.Floor(now.Sub(t.start).Seconds() * t.fps))
}

// rebase moves start so that tickAt(now) == tick.
func (t *Timeline) rebase() {
	offset := time.Duration(math.Ceil(float64(t.tick) * float64(time.Second) / t.fps))
	t.start = t.now().Add(-offset)
}

// PoseAt returns the interpolated pose of seq at tick. The first keyframe is
// held for its own wait; each following keyframe is reached over its wait.
// It returns false only for an empty sequence.
func PoseAt(seq *motion.Sequence, tick int) ([]protocol.JointValue, bool) {
	if seq.Len() == 0 {
		return nil, false
	}
	kfs := seq.Keyframes
	if len(kfs) == 1 || tick < kfs[0].Wait() {
		return kfs[0].Pose(), true
	}

	elapsed := kfs[0].Wait()
	for i := 1; i < len(kfs); i++ {
		next := kfs[i]
		if elapsed+next.Wait() >= tick {
			return lerp(kfs[i-1], next, weight(tick-elapsed, next.Wait())), true
		}
		elapsed += next.Wait()
	}
	return kfs[len(kfs)-1].Pose(), true
}

func weight(into, wait int) float64 {
	if wait <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, float64(into)/float64(wait)))
}

// lerp interpolates joint by joint on raw servo units.
func lerp(from, to motion.Keyframe, w float64) []protocol.JointValue {
	switch w {
	case 0:
		return from.Pose()
	case 1:
		return to.Pose()
	}
	pose := make([]protocol.JointValue, len(from.Joints))
	for i, a := range from.Joints {
		b := to.Joints[i].Value
		pose[i] = protocol.JointValue{
			ID:    a.ID,
			Value: int(math.Round(float64(a.Value) + float64(b-a.Value)*w)),
		}
	}
	return pose
}
