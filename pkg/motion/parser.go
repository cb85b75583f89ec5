package motion

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/japanese"
)

// Marker precedes the hex token stream in a .pma file.
const Marker = "データ="

// Directive sentinels: the first two bytes of a command inside the stream.
var (
	keyframeSentinel  = [2]byte{0x50, 0x18}
	loopStartSentinel = [2]byte{0x08, 0x02}
	loopEndSentinel   = [2]byte{0x08, 0x07}
)

const (
	directiveTokens = 8
	iterationToken  = 5
)

type tokenKind int

const (
	tokNoise tokenKind = iota
	tokKeyframe
	tokLoopStart
	tokLoopEnd
	tokTruncatedKeyframe
)

// classify looks at tokens[i:] and returns what starts there and how many
// tokens it spans.
func classify(tokens []byte, i int) (tokenKind, int) {
	remaining := len(tokens) - i
	if remaining < 2 {
		return tokNoise, 1
	}
	head := [2]byte{tokens[i], tokens[i+1]}
	switch head {
	case keyframeSentinel:
		if remaining >= KeyframeTokens {
			return tokKeyframe, KeyframeTokens
		}
		return tokTruncatedKeyframe, 1
	case loopStartSentinel:
		if remaining >= directiveTokens {
			return tokLoopStart, directiveTokens
		}
	case loopEndSentinel:
		if remaining >= directiveTokens {
			return tokLoopEnd, directiveTokens
		}
	}
	return tokNoise, 1
}

type loop struct {
	start      int
	iterations int
}

// Parser turns .pma contents into a Sequence.
type Parser struct {
	// Strict rejects truncated keyframes and keyframe checksum mismatches
	// instead of skipping or counting them.
	Strict bool
}

// Parse parses contents with the default, lenient parser.
func Parse(contents string) (*Sequence, error) {
	return Parser{}.Parse(contents)
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader) (*Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read motion data: %w", err)
	}
	return Parse(string(data))
}

// Load reads and parses a .pma file.
func Load(path string) (*Sequence, error) {
	return Parser{}.Load(path)
}

// Load reads and parses a .pma file.
func (p Parser) Load(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read motion file: %w", err)
	}
	seq, err := p.Parse(string(data))
	if err != nil {
		var mfe *MalformedFileError
		if errors.As(err, &mfe) {
			mfe.Path = path
		}
		return nil, err
	}
	return seq, nil
}

// Parse parses the contents of a .pma file.
func (p Parser) Parse(contents string) (*Sequence, error) {
	payload, err := payloadOf(contents)
	if err != nil {
		return nil, err
	}
	tokens, err := tokenize(payload)
	if err != nil {
		return nil, err
	}
	return p.interpret(tokens)
}

// payloadOf returns everything after the marker. Files saved by the vendor
// tool are Shift_JIS, so the marker is searched for in both encodings.
func payloadOf(contents string) (string, error) {
	if idx := strings.Index(contents, Marker); idx >= 0 {
		return contents[idx+len(Marker):], nil
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().String(contents)
	if err == nil {
		if idx := strings.Index(decoded, Marker); idx >= 0 {
			return decoded[idx+len(Marker):], nil
		}
	}
	return "", &MalformedFileError{Offset: -1, Err: ErrNoMarker}
}

func tokenize(payload string) ([]byte, error) {
	fields := strings.Fields(payload)
	tokens := make([]byte, len(fields))
	for i, f := range fields {
		if len(f) != 2 {
			return nil, &MalformedFileError{Offset: i, Token: f, Err: ErrBadToken}
		}
		b, err := hex.DecodeString(f)
		if err != nil {
			return nil, &MalformedFileError{Offset: i, Token: f, Err: ErrBadToken}
		}
		tokens[i] = b[0]
	}
	return tokens, nil
}

func (p Parser) interpret(tokens []byte) (*Sequence, error) {
	seq := &Sequence{}
	var stack []loop

	for i := 0; i < len(tokens); {
		kind, width := classify(tokens, i)
		switch kind {
		case tokKeyframe:
			k := newKeyframe(tokens[i : i+width])
			if !k.ChecksumValid() {
				if p.Strict {
					return nil, &MalformedFileError{Offset: i, Err: ErrKeyframeChecksum}
				}
				seq.BadChecksums++
			}
			seq.append(k)

		case tokLoopStart:
			start := len(seq.Keyframes) - 1
			if start < 0 {
				start = 0
			}
			stack = append(stack, loop{start: start, iterations: int(tokens[i+iterationToken])})

		case tokLoopEnd:
			if len(stack) == 0 {
				return nil, &MalformedFileError{Offset: i, Err: ErrUnmatchedLoop}
			}
			l := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			seq.replay(l.start, l.iterations)
			seq.Loops++

		case tokTruncatedKeyframe:
			if p.Strict {
				return nil, &MalformedFileError{Offset: i, Err: ErrTruncated}
			}
		}
		i += width
	}

	// Unclosed loop starts are ignored; uploads are bracketed by the same command.
	return seq, nil
}
