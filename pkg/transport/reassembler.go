package transport

import (
	"errors"

	"github.com/gwillem/premaid/pkg/protocol"
)

// DefaultMaxBuffer is the reassembly buffer size past which buffered bytes are
// considered garbage. It is larger than any frame the doll can send.
const DefaultMaxBuffer = 512

// Reassembler rebuilds frames from the arbitrary chunks a serial read returns.
// Byte 0 of the buffer is always taken as the length of the next frame; a zero
// there is a noise byte and is dropped.
//
// A Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf     []byte
	limit   int
	handler func(protocol.Frame)
}

// NewReassembler returns a reassembler that hands every complete frame to
// handler. A limit <= 0 selects DefaultMaxBuffer.
func NewReassembler(limit int, handler func(protocol.Frame)) *Reassembler {
	if limit <= 0 {
		limit = DefaultMaxBuffer
	}
	return &Reassembler{limit: limit, handler: handler}
}

// SetHandler replaces the frame handler.
func (r *Reassembler) SetHandler(handler func(protocol.Frame)) {
	r.handler = handler
}

// Feed appends chunk and emits every frame that is now complete. Frames are
// emitted whether or not their checksum matches. If the bytes left over after
// extraction still exceed the limit they are discarded and an *OverflowError
// is returned.
func (r *Reassembler) Feed(chunk []byte) error {
	r.buf = append(r.buf, chunk...)
	for len(r.buf) > 0 {
		d, err := protocol.Decode(r.buf)
		if errors.Is(err, protocol.ErrNoise) {
			r.buf = r.buf[1:]
			continue
		}
		if err != nil {
			break
		}
		r.buf = r.buf[d.Length:]
		if r.handler != nil {
			r.handler(d.Frame)
		}
	}
	if len(r.buf) > r.limit {
		err := &OverflowError{Limit: r.limit, Discarded: r.buf}
		r.buf = nil
		return err
	}
	if len(r.buf) == 0 {
		r.buf = nil
	}
	return nil
}

// Buffered returns the number of bytes waiting for the rest of their frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// HexView returns the buffered bytes as spaced hex.
func (r *Reassembler) HexView() string {
	return protocol.SpacedHex(r.buf)
}

// Reset drops any partial frame.
func (r *Reassembler) Reset() {
	r.buf = nil
}
