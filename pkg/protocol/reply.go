package protocol

import "bytes"

// LowBatteryVolts is the voltage under which the doll should be recharged.
const LowBatteryVolts = 9.0

// rawPerVolt converts the battery reply word into volts.
const rawPerVolt = 216.0

var poseAck = Frame{0x04, CmdPose, 0x00, 0x1C}

// Battery is a decoded battery status reply.
type Battery struct {
	Raw   int
	Volts float64
}

// Low reports whether the battery is under LowBatteryVolts.
func (b Battery) Low() bool {
	return b.Volts < LowBatteryVolts
}

// ParseBattery decodes a status reply to BatteryQuery. The voltage word is
// little-endian at bytes 3 and 4.
func ParseBattery(f Frame) (Battery, bool) {
	if f.Command() != CmdStatus || len(f) < 5 {
		return Battery{}, false
	}
	raw := DecodeValue(f[3], f[4])
	return Battery{Raw: raw, Volts: float64(raw) / rawPerVolt}, true
}

// IsPoseReply reports whether f answers a pose order.
func IsPoseReply(f Frame) bool {
	return len(f) >= 2 && f.Command() == CmdPose
}

// IsPoseAck reports whether f is the doll's "pose accepted" reply.
func IsPoseAck(f Frame) bool {
	return bytes.Equal(f, poseAck)
}
