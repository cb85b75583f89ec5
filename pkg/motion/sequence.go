// Package motion parses .pma motion files into loop-expanded keyframe
// sequences.
package motion

import (
	"time"

	"github.com/gwillem/premaid/pkg/protocol"
)

// Keyframe layout inside a .pma token stream.
const (
	JointsPerKeyframe = 25
	KeyframeTokens    = 80
	headerTokens      = 4
)

// Keyframe is one parsed pose and its hold duration.
type Keyframe struct {
	// Header holds LEN, CMD, padding and the hold duration in ticks.
	Header   [headerTokens]byte
	Joints   [JointsPerKeyframe]protocol.JointValue
	Checksum byte
}

func newKeyframe(tokens []byte) Keyframe {
	var k Keyframe
	copy(k.Header[:], tokens[:headerTokens])
	for j := range k.Joints {
		t := tokens[headerTokens+j*3:]
		k.Joints[j] = protocol.JointValue{ID: t[0], Value: protocol.DecodeValue(t[1], t[2])}
	}
	k.Checksum = tokens[KeyframeTokens-1]
	return k
}

// Wait returns how many ticks the keyframe is held.
func (k Keyframe) Wait() int {
	return int(k.Header[3])
}

// Bytes rebuilds the 80 raw bytes the keyframe was parsed from.
func (k Keyframe) Bytes() []byte {
	b := make([]byte, 0, KeyframeTokens)
	b = append(b, k.Header[:]...)
	for _, jv := range k.Joints {
		v := protocol.EncodeValue(jv.Value)
		b = append(b, jv.ID, v[0], v[1])
	}
	return append(b, k.Checksum)
}

// ChecksumValid reports whether the trailing byte matches the XOR of the rest.
func (k Keyframe) ChecksumValid() bool {
	return protocol.Frame(k.Bytes()).Valid()
}

// Value returns the raw value stored for joint id.
func (k Keyframe) Value(id byte) (int, bool) {
	for _, jv := range k.Joints {
		if jv.ID == id {
			return jv.Value, true
		}
	}
	return 0, false
}

// Pose returns a copy of the joint values.
func (k Keyframe) Pose() []protocol.JointValue {
	pose := make([]protocol.JointValue, len(k.Joints))
	copy(pose, k.Joints[:])
	return pose
}

// Sequence is an ordered, loop-expanded list of keyframes. It is not
// modified after parsing.
type Sequence struct {
	Keyframes  []Keyframe
	TotalTicks int

	// BadChecksums counts keyframes whose trailing checksum did not match.
	BadChecksums int
	// Loops counts the loop brackets that were expanded.
	Loops int
}

// Len returns the number of keyframes.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Keyframes)
}

// Duration converts TotalTicks to wall time at the given tick rate.
func (s *Sequence) Duration(fps float64) time.Duration {
	if s == nil || fps <= 0 {
		return 0
	}
	return time.Duration(float64(s.TotalTicks) / fps * float64(time.Second))
}

func (s *Sequence) append(k Keyframe) {
	s.Keyframes = append(s.Keyframes, k)
	s.TotalTicks += k.Wait()
}

// replay appends keyframes [start, len-1] iterations-1 more times.
func (s *Sequence) replay(start, iterations int) {
	end := len(s.Keyframes)
	if start >= end || iterations < 2 {
		return
	}
	block := make([]Keyframe, end-start)
	copy(block, s.Keyframes[start:end])
	for r := 1; r < iterations; r++ {
		for _, k := range block {
			s.append(k)
		}
	}
}
