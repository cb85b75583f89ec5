package protocol

import (
	"math"
	"testing"
)

func TestParseBattery(t *testing.T) {
	// 0x0AF0 = 2800 -> 12.96 V
	f := Seal([]byte{0x06, CmdStatus, 0x00, 0xF0, 0x0A, 0x00})

	b, ok := ParseBattery(f)
	if !ok {
		t.Fatal("ParseBattery returned false")
	}
	if b.Raw != 2800 {
		t.Errorf("Raw = %d, want 2800", b.Raw)
	}
	if math.Abs(b.Volts-12.96) > 0.001 {
		t.Errorf("Volts = %f, want 12.96", b.Volts)
	}
	if b.Low() {
		t.Error("12.96 V reported as low")
	}

	if !(Battery{Volts: 8.5}).Low() {
		t.Error("8.5 V not reported as low")
	}
}

func TestParseBattery_WrongCommand(t *testing.T) {
	if _, ok := ParseBattery(Frame{0x04, CmdPose, 0x00, 0x1C}); ok {
		t.Error("pose ack parsed as battery reply")
	}
}

func TestPoseAck(t *testing.T) {
	ack := Frame{0x04, 0x18, 0x00, 0x1C}
	if !IsPoseAck(ack) || !IsPoseReply(ack) {
		t.Error("0418001C not recognised as pose ack")
	}

	nack := Frame{0x04, 0x18, 0x01, 0x1D}
	if IsPoseAck(nack) {
		t.Error("pose error recognised as ack")
	}
	if !IsPoseReply(nack) {
		t.Error("pose error not recognised as pose reply")
	}
}
