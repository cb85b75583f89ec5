// Package protocol implements the servo doll's binary command framing.
//
// A frame is laid out as
//
//	LEN CMD SUB PARAM [payload...] CHK
//
// where LEN is the total frame size in bytes (itself included) and CHK is the
// XOR of every byte before it.
package protocol

import (
	"errors"
	"fmt"
)

// Command ids found in byte 1 of a frame.
const (
	CmdStatus        byte = 0x01
	CmdSessionOpen   byte = 0x02 // also the loop-start marker inside .pma files
	CmdEndPose       byte = 0x05
	CmdSessionClose  byte = 0x07 // also the loop-end marker inside .pma files
	CmdPose          byte = 0x18
	CmdServoProperty byte = 0x19
	CmdFlashDump     byte = 0x1C
	CmdStoredMotion  byte = 0x1F
)

// MinFrameLen is the shortest frame the doll sends or accepts (LEN CMD SUB CHK).
const MinFrameLen = 4

var (
	// ErrNoise is returned by Decode when byte 0 is a zero length. The caller
	// should skip one byte and try again.
	ErrNoise = errors.New("zero-length noise byte")

	// ErrIncomplete is returned by Decode when fewer bytes are available than
	// the length byte declares.
	ErrIncomplete = errors.New("incomplete frame")
)

// Frame is one complete, checksum-terminated command. Treat it as read-only;
// Seal always returns a fresh copy.
type Frame []byte

// Checksum returns the XOR of all bytes in data.
func Checksum(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}

// Seal computes the checksum over every byte except the last and stores it in
// the last position of a copy of data. The length byte must already be
// correct; Seal never resizes the payload.
func Seal(data []byte) Frame {
	f := make(Frame, len(data))
	copy(f, data)
	if len(f) == 0 {
		return f
	}
	f[len(f)-1] = Checksum(f[:len(f)-1])
	return f
}

// Len returns the declared length (byte 0).
func (f Frame) Len() int {
	if len(f) == 0 {
		return 0
	}
	return int(f[0])
}

// Command returns byte 1.
func (f Frame) Command() byte { return f.at(1) }

// Sub returns byte 2.
func (f Frame) Sub() byte { return f.at(2) }

// Param returns byte 3 when the frame is long enough to carry one.
func (f Frame) Param() byte {
	if len(f) <= MinFrameLen {
		return 0
	}
	return f.at(3)
}

// Payload returns the bytes between the parameter and the checksum.
func (f Frame) Payload() []byte {
	if len(f) <= MinFrameLen+1 {
		return nil
	}
	return f[4 : len(f)-1]
}

// Valid reports whether the trailing checksum matches the frame contents.
func (f Frame) Valid() bool {
	if len(f) < 2 {
		return false
	}
	return Checksum(f[:len(f)-1]) == f[len(f)-1]
}

// Hex returns the frame as contiguous uppercase hex, e.g. "0418001C".
func (f Frame) Hex() string { return ToHex(f) }

// String returns the frame as space separated hex, e.g. "04 18 00 1C".
func (f Frame) String() string { return SpacedHex(f) }

func (f Frame) at(i int) byte {
	if i >= len(f) {
		return 0
	}
	return f[i]
}

// Decoded is the field view of a frame returned by Decode.
type Decoded struct {
	Length        int
	Command       byte
	Sub           byte
	Param         byte
	Payload       []byte
	ChecksumValid bool
	Frame         Frame
}

// Decode reads one frame from the start of data. A checksum mismatch is not
// an error: it is reported through ChecksumValid and left to the caller.
func Decode(data []byte) (Decoded, error) {
	if len(data) == 0 {
		return Decoded{}, ErrIncomplete
	}
	length := int(data[0])
	if length == 0 {
		return Decoded{}, ErrNoise
	}
	if len(data) < length {
		return Decoded{}, fmt.Errorf("%w: need %d bytes, have %d", ErrIncomplete, length, len(data))
	}

	f := make(Frame, length)
	copy(f, data[:length])

	d := Decoded{
		Length:        length,
		Command:       f.Command(),
		Sub:           f.Sub(),
		Param:         f.Param(),
		ChecksumValid: f.Valid(),
		Frame:         f,
	}
	if p := f.Payload(); p != nil {
		d.Payload = append([]byte(nil), p...)
	}
	return d, nil
}
