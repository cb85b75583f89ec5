package robot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gwillem/premaid/pkg/protocol"
)

// DiffThreshold is how far, in raw units, a joint must move from the value
// last sent before a diff order includes it.
const DiffThreshold = 40

// ErrUnknownJoint is returned for a servo id that is not in the calibration.
var ErrUnknownJoint = errors.New("unknown joint")

// Registry holds the current target value of every joint. Every write is
// clamped to the joint's safe range, so nothing out of range can be built into
// an order. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	cal    Calibration
	ids    []byte
	values map[byte]int
	sent   map[byte]int
}

// NewRegistry returns a registry with every joint at its default value.
func NewRegistry(cal Calibration) *Registry {
	r := &Registry{
		cal:  cal,
		ids:  cal.JointIDs(),
		sent: make(map[byte]int),
	}
	r.Reset()
	return r
}

// Calibration returns the ranges the registry clamps to.
func (r *Registry) Calibration() Calibration {
	return r.cal
}

// ListJoints returns the servo ids in wire order.
func (r *Registry) ListJoints() []byte {
	ids := make([]byte, len(r.ids))
	copy(ids, r.ids)
	return ids
}

// Reset puts every joint back at its default value and forgets what was sent.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = make(map[byte]int, len(r.ids))
	for _, jc := range r.cal {
		r.values[jc.ID] = jc.Clamp(jc.Default)
	}
	clear(r.sent)
}

// SetTarget sets joint id to deg degrees and returns the angle actually
// stored after clamping.
func (r *Registry) SetTarget(id byte, deg float64) (float64, error) {
	raw, err := r.SetRaw(id, protocol.DegreesToRaw(deg))
	if err != nil {
		return 0, err
	}
	return protocol.RawToDegrees(raw), nil
}

// SetRaw sets joint id to a raw servo value and returns the clamped value.
func (r *Registry) SetRaw(id byte, raw int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set(id, raw)
}

func (r *Registry) set(id byte, raw int) (int, error) {
	_, jc, ok := r.cal.ByID(id)
	if !ok {
		return 0, fmt.Errorf("%w: 0x%02X", ErrUnknownJoint, id)
	}
	v := jc.Clamp(raw)
	r.values[id] = v
	return v, nil
}

// Value returns the raw value of joint id.
func (r *Registry) Value(id byte) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[id]
	return v, ok
}

// Apply stores every value of pose that belongs to a known joint and returns
// how many were stored.
func (r *Registry) Apply(pose []protocol.JointValue) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, jv := range pose {
		if _, err := r.set(jv.ID, jv.Value); err == nil {
			n++
		}
	}
	return n
}

// SetPose stores every value of pose and returns them clamped. Unlike Apply it
// fails, storing nothing, when pose names a joint that is not calibrated.
func (r *Registry) SetPose(pose []protocol.JointValue) ([]protocol.JointValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, jv := range pose {
		if _, _, ok := r.cal.ByID(jv.ID); !ok {
			return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownJoint, jv.ID)
		}
	}
	clamped := make([]protocol.JointValue, len(pose))
	for i, jv := range pose {
		v, _ := r.set(jv.ID, jv.Value)
		clamped[i] = protocol.JointValue{ID: jv.ID, Value: v}
	}
	return clamped, nil
}

// Snapshot returns all current values in wire order.
func (r *Registry) Snapshot() []protocol.JointValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Registry) snapshot() []protocol.JointValue {
	pose := make([]protocol.JointValue, len(r.ids))
	for i, id := range r.ids {
		pose[i] = protocol.JointValue{ID: id, Value: r.values[id]}
	}
	return pose
}

// BuildPoseOrder returns a pose order carrying every joint.
func (r *Registry) BuildPoseOrder(speed int) protocol.Order {
	return protocol.PoseOrder(speed, r.Snapshot())
}

// BuildDiffOrder returns a pose order for the joints that moved more than
// DiffThreshold since they were last marked sent, together with those
// values. speed maps the number of joints to the order's speed. With
// changedOnly false every joint is included. The order is zero when nothing
// changed.
func (r *Registry) BuildDiffOrder(changedOnly bool, speed func(n int) int) (protocol.Order, []protocol.JointValue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pose := r.snapshot()
	if changedOnly {
		changed := pose[:0]
		for _, jv := range pose {
			last, ok := r.sent[jv.ID]
			if !ok || abs(jv.Value-last) > DiffThreshold {
				changed = append(changed, jv)
			}
		}
		pose = changed
	}
	if len(pose) == 0 {
		return protocol.Order{}, nil
	}
	return protocol.PoseOrder(speed(len(pose)), pose), pose
}

// MarkSent records values as the last ones transmitted.
func (r *Registry) MarkSent(values []protocol.JointValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, jv := range values {
		r.sent[jv.ID] = jv.Value
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
