package protocol

import (
	"encoding/binary"
	"math"
)

// Hardware limits of a servo value in raw actuator units.
const (
	MinServoValue    = 3500
	MaxServoValue    = 11500
	CenterServoValue = 7500
)

// JointValue pairs a joint id with a raw servo value.
type JointValue struct {
	ID    byte
	Value int
}

// DegreesToRaw converts an angle to raw units. The raw value is rounded half
// away from zero, matching the firmware tables.
func DegreesToRaw(deg float64) int {
	return int(math.Round(deg*4000/135 + CenterServoValue))
}

// RawToDegrees converts raw units to an angle in degrees. The full 8000 unit
// span covers ±135°.
func RawToDegrees(raw int) float64 {
	return float64(raw-CenterServoValue) * 135 / 4000
}

// EncodeValue returns the little-endian wire form of a servo value.
// 7500 encodes as 4C 1D.
func EncodeValue(v int) [2]byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	return b
}

// DecodeValue reads a little-endian servo value.
func DecodeValue(lo, hi byte) int {
	return int(binary.LittleEndian.Uint16([]byte{lo, hi}))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
