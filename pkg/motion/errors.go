package motion

import (
	"errors"
	"fmt"
)

var (
	ErrNoMarker         = errors.New("data marker not found")
	ErrBadToken         = errors.New("malformed hex token")
	ErrUnmatchedLoop    = errors.New("loop end without loop start")
	ErrTruncated        = errors.New("truncated keyframe")
	ErrKeyframeChecksum = errors.New("keyframe checksum mismatch")
)

// MalformedFileError describes why a motion file could not be loaded.
type MalformedFileError struct {
	Path   string // empty when parsing from memory
	Offset int    // token index, -1 when not tied to a token
	Token  string
	Err    error
}

func (e *MalformedFileError) Error() string {
	where := "motion file"
	if e.Path != "" {
		where = e.Path
	}
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %v", where, e.Err)
	}
	if e.Token != "" {
		return fmt.Sprintf("%s: token %d %q: %v", where, e.Offset, e.Token, e.Err)
	}
	return fmt.Sprintf("%s: token %d: %v", where, e.Offset, e.Err)
}

func (e *MalformedFileError) Unwrap() error {
	return e.Err
}
