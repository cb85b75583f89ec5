package motion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/japanese"

	"github.com/gwillem/premaid/pkg/protocol"
)

var testJointIDs = []byte{
	0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E,
	0x0F, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x1A, 0x1C,
}

// keyframe returns the 80 tokens of a pose with every joint at value.
func keyframe(wait byte, value int) string {
	b := []byte{0x50, 0x18, 0x00, wait}
	for _, id := range testJointIDs {
		v := protocol.EncodeValue(value)
		b = append(b, id, v[0], v[1])
	}
	return protocol.Seal(append(b, 0)).String()
}

func loopStart(iterations byte) string {
	return protocol.Frame{0x08, 0x02, 0x00, 0x00, 0x00, iterations, 0x00, 0x00}.String()
}

func loopEnd() string {
	return "08 07 00 00 00 00 00 00"
}

func pma(tokens ...string) string {
	return "[Motion]\r\nName=test\r\n" + Marker + strings.Join(tokens, " ")
}

func TestParse_SingleKeyframe(t *testing.T) {
	seq, err := Parse(pma(keyframe(0x0A, 7500)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if seq.Len() != 1 {
		t.Fatalf("got %d keyframes, want 1", seq.Len())
	}
	if seq.TotalTicks != 10 {
		t.Errorf("TotalTicks = %d, want 10", seq.TotalTicks)
	}

	k := seq.Keyframes[0]
	if k.Wait() != 10 {
		t.Errorf("Wait() = %d, want 10", k.Wait())
	}
	if v, ok := k.Value(0x09); !ok || v != 7500 {
		t.Errorf("Value(0x09) = %d, %v, want 7500, true", v, ok)
	}
	if _, ok := k.Value(0x01); ok {
		t.Error("Value(0x01) found a joint that does not exist")
	}
	if got, want := protocol.Frame(k.Bytes()).String(), keyframe(0x0A, 7500); got != want {
		t.Errorf("Bytes() = %s\nwant %s", got, want)
	}
	if seq.BadChecksums != 0 {
		t.Errorf("BadChecksums = %d, want 0", seq.BadChecksums)
	}
}

func TestParse_TripleOrderIsIDLoHi(t *testing.T) {
	seq, err := Parse(pma(keyframe(1, 0x1D4C)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	jv := seq.Keyframes[0].Joints[0]
	if jv.ID != 0x02 || jv.Value != 7500 {
		t.Errorf("first joint = %+v, want {ID:2 Value:7500}", jv)
	}
}

func TestParse_Loops(t *testing.T) {
	a := keyframe(10, 7000)
	b := keyframe(5, 7500)
	c := keyframe(1, 8000)

	tests := []struct {
		name      string
		tokens    []string
		wantLen   int
		wantTicks int
		wantLoops int
	}{
		{
			name:      "start after first keyframe",
			tokens:    []string{a, loopStart(3), loopEnd()},
			wantLen:   3,
			wantTicks: 30,
			wantLoops: 1,
		},
		{
			name:      "start before any keyframe",
			tokens:    []string{loopStart(3), a, loopEnd()},
			wantLen:   3,
			wantTicks: 30,
			wantLoops: 1,
		},
		{
			name:      "start re-includes the preceding keyframe",
			tokens:    []string{a, loopStart(2), b, loopEnd()},
			wantLen:   4,
			wantTicks: 30,
			wantLoops: 1,
		},
		{
			name:      "nested",
			tokens:    []string{a, loopStart(2), b, loopStart(2), c, loopEnd(), loopEnd()},
			wantLen:   10,
			wantTicks: 2 * (10 + 2*(5+1)),
			wantLoops: 2,
		},
		{
			name:      "single iteration adds nothing",
			tokens:    []string{a, loopStart(1), b, loopEnd()},
			wantLen:   2,
			wantTicks: 15,
			wantLoops: 1,
		},
		{
			name:      "unclosed start is ignored",
			tokens:    []string{a, loopStart(5), b},
			wantLen:   2,
			wantTicks: 15,
			wantLoops: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Parse(pma(tt.tokens...))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if seq.Len() != tt.wantLen {
				t.Errorf("got %d keyframes, want %d", seq.Len(), tt.wantLen)
			}
			if seq.TotalTicks != tt.wantTicks {
				t.Errorf("TotalTicks = %d, want %d", seq.TotalTicks, tt.wantTicks)
			}
			if seq.Loops != tt.wantLoops {
				t.Errorf("Loops = %d, want %d", seq.Loops, tt.wantLoops)
			}
		})
	}
}

func TestParse_NestedLoopOrder(t *testing.T) {
	a, b, c := keyframe(1, 7000), keyframe(2, 7500), keyframe(3, 8000)
	seq, err := Parse(pma(a, loopStart(2), b, loopStart(2), c, loopEnd(), loopEnd()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var waits []int
	for _, k := range seq.Keyframes {
		waits = append(waits, k.Wait())
	}
	want := []int{1, 2, 3, 2, 3, 1, 2, 3, 2, 3}
	if diff := cmp.Diff(want, waits); diff != "" {
		t.Errorf("keyframe order mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_TotalTicksMatchesWaits(t *testing.T) {
	seq, err := Parse(pma(keyframe(7, 7000), loopStart(4), keyframe(3, 7200), loopEnd(), keyframe(0, 7400)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sum := 0
	for _, k := range seq.Keyframes {
		sum += k.Wait()
	}
	if sum != seq.TotalTicks {
		t.Errorf("TotalTicks = %d, sum of waits = %d", seq.TotalTicks, sum)
	}
}

func TestParse_SkipsNoise(t *testing.T) {
	seq, err := Parse(pma("FF 00 12", keyframe(4, 7500), "07 01 00 02 00 02 06", keyframe(6, 7600), "AB"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if seq.Len() != 2 || seq.TotalTicks != 10 {
		t.Errorf("got %d keyframes / %d ticks, want 2 / 10", seq.Len(), seq.TotalTicks)
	}
}

func TestParse_Deterministic(t *testing.T) {
	contents := pma(keyframe(2, 7000), loopStart(3), keyframe(4, 9000), loopEnd())
	first, err := Parse(contents)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	second, err := Parse(contents)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two parses differ (-first +second):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		contents   string
		wantErr    error
		wantOffset int
		wantToken  string
	}{
		{
			name:       "missing marker",
			contents:   "[Motion]\r\nName=test\r\n50 18 00",
			wantErr:    ErrNoMarker,
			wantOffset: -1,
		},
		{
			name:       "bad hex",
			contents:   pma("50 1G"),
			wantErr:    ErrBadToken,
			wantOffset: 1,
			wantToken:  "1G",
		},
		{
			name:       "three digit token",
			contents:   pma("50 18 ABC"),
			wantErr:    ErrBadToken,
			wantOffset: 2,
			wantToken:  "ABC",
		},
		{
			name:       "unmatched loop end",
			contents:   pma(keyframe(1, 7500), loopEnd()),
			wantErr:    ErrUnmatchedLoop,
			wantOffset: KeyframeTokens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Parse(tt.contents)
			if err == nil {
				t.Fatalf("Parse succeeded with %d keyframes, want error", seq.Len())
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			var mfe *MalformedFileError
			if !errors.As(err, &mfe) {
				t.Fatalf("error %T is not a *MalformedFileError", err)
			}
			if mfe.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", mfe.Offset, tt.wantOffset)
			}
			if mfe.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", mfe.Token, tt.wantToken)
			}
		})
	}
}

func TestParse_BadChecksum(t *testing.T) {
	k := keyframe(3, 7500)
	broken := k[:len(k)-2] + "00"
	if broken == k {
		t.Fatal("test keyframe already ends in 00")
	}
	contents := pma(k, broken)

	seq, err := Parse(contents)
	if err != nil {
		t.Fatalf("lenient Parse failed: %v", err)
	}
	if seq.Len() != 2 || seq.BadChecksums != 1 {
		t.Errorf("got %d keyframes, %d bad checksums, want 2, 1", seq.Len(), seq.BadChecksums)
	}
	if seq.Keyframes[1].ChecksumValid() {
		t.Error("broken keyframe reports a valid checksum")
	}

	_, err = Parser{Strict: true}.Parse(contents)
	if !errors.Is(err, ErrKeyframeChecksum) {
		t.Errorf("strict Parse error = %v, want %v", err, ErrKeyframeChecksum)
	}
}

func TestParse_TruncatedKeyframe(t *testing.T) {
	contents := pma(keyframe(3, 7500), "50 18 00 0A 02 4C 1D")

	seq, err := Parse(contents)
	if err != nil {
		t.Fatalf("lenient Parse failed: %v", err)
	}
	if seq.Len() != 1 {
		t.Errorf("got %d keyframes, want 1", seq.Len())
	}

	_, err = Parser{Strict: true}.Parse(contents)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("strict Parse error = %v, want %v", err, ErrTruncated)
	}
}

func TestParseReader(t *testing.T) {
	seq, err := ParseReader(strings.NewReader(pma(keyframe(8, 7500))))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	if seq.TotalTicks != 8 {
		t.Errorf("TotalTicks = %d, want 8", seq.TotalTicks)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	utf8Path := filepath.Join(dir, "wave.pma")
	if err := os.WriteFile(utf8Path, []byte(pma(keyframe(10, 7500))), 0o644); err != nil {
		t.Fatal(err)
	}

	sjis, err := japanese.ShiftJIS.NewEncoder().String("[モーション]\r\n名前=おじぎ\r\n" + Marker + keyframe(12, 7500))
	if err != nil {
		t.Fatal(err)
	}
	sjisPath := filepath.Join(dir, "bow.pma")
	if err := os.WriteFile(sjisPath, []byte(sjis), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path      string
		wantTicks int
	}{
		{utf8Path, 10},
		{sjisPath, 12},
	}
	for _, tt := range tests {
		seq, err := Load(tt.path)
		if err != nil {
			t.Errorf("Load(%s) failed: %v", filepath.Base(tt.path), err)
			continue
		}
		if seq.TotalTicks != tt.wantTicks {
			t.Errorf("Load(%s) TotalTicks = %d, want %d", filepath.Base(tt.path), seq.TotalTicks, tt.wantTicks)
		}
	}
}

func TestLoad_ErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pma")
	if err := os.WriteFile(path, []byte("no data here"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var mfe *MalformedFileError
	if !errors.As(err, &mfe) {
		t.Fatalf("Load error = %v, want *MalformedFileError", err)
	}
	if mfe.Path != path {
		t.Errorf("Path = %q, want %q", mfe.Path, path)
	}
	if !strings.Contains(err.Error(), "empty.pma") {
		t.Errorf("error %q does not name the file", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.pma")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestSequence_Duration(t *testing.T) {
	seq, err := Parse(pma(keyframe(30, 7500), keyframe(30, 7500)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := seq.Duration(60).Seconds(); got != 1 {
		t.Errorf("Duration(60) = %vs, want 1s", got)
	}
	var empty *Sequence
	if empty.Len() != 0 || empty.Duration(60) != 0 {
		t.Error("nil sequence should be empty")
	}
}
