package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// ToHex encodes data as contiguous uppercase hex.
func ToHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// SpacedHex encodes data as uppercase hex with one space between bytes, the
// form used by hand-written order tables and .pma files.
func SpacedHex(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// StripSpace removes every whitespace rune from s.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// FromHex decodes hex text, ignoring any whitespace between digits.
// "05 1F 00 01 1B" and "051F00011B" decode to the same bytes.
func FromHex(s string) ([]byte, error) {
	clean := StripSpace(s)
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("decode hex %q: odd number of digits", s)
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode hex %q: %w", s, err)
	}
	return data, nil
}
