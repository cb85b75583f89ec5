package transport

import (
	"errors"
	"fmt"
	"os"

	"github.com/gwillem/premaid/pkg/protocol"
)

// ErrClosed is returned when sending on a closed session.
var ErrClosed = errors.New("session is closed")

// IOError is a read or write failure on the serial port. The session stays
// open after one.
type IOError struct {
	Op    string // "read" or "write"
	Order string // hex of the lost order, writes only
	Err   error
}

func (e *IOError) Error() string {
	if e.Order != "" {
		return fmt.Sprintf("serial %s of %s: %v", e.Op, e.Order, e.Err)
	}
	return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// OverflowError reports reassembly data that was thrown away to get back in
// sync with the stream.
type OverflowError struct {
	Limit     int
	Discarded []byte
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("receive buffer over %d bytes, discarded %d: %s",
		e.Limit, len(e.Discarded), protocol.SpacedHex(e.Discarded))
}

// IsTimeout reports whether a read result is an expected read timeout rather
// than a failure. The serial driver signals a timeout with (0, nil).
func IsTimeout(n int, err error) bool {
	if err == nil {
		return n == 0
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
