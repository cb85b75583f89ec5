package main

import (
	"testing"

	"github.com/gwillem/premaid/pkg/protocol"
)

func TestBuildOrder(t *testing.T) {
	ids := []byte{0x02, 0x03}
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"battery"}, "07 01 00 02 00 02 06"},
		{[]string{"Dance"}, "05 1F 00 01 1B"},
		{[]string{"slot", "0x02"}, "05 1F 00 02 18"},
		{[]string{"endpose"}, "04 05 00 01"},
		{[]string{"stretch"}, "08 19 10 02 40 03 40 00"},
		{[]string{"05", "1F", "00", "01", "FF"}, "05 1F 00 01 1B"},
		{[]string{"05 1F 00 01 FF"}, "05 1F 00 01 1B"},
	}
	for _, tt := range tests {
		o, err := buildOrder(tt.args, ids, 64, 0)
		if err != nil {
			t.Errorf("buildOrder(%q): %v", tt.args, err)
			continue
		}
		if got := o.Frame().String(); got != tt.want {
			t.Errorf("buildOrder(%q) = %s, want %s", tt.args, got, tt.want)
		}
	}
}

func TestBuildOrder_Stop(t *testing.T) {
	o, err := buildOrder([]string{"stop"}, []byte{0x02}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if o.Kind != protocol.KindAllStop {
		t.Errorf("kind = %v, want all-stop", o.Kind)
	}
}

func TestBuildOrder_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"slot"},
		{"slot", "300"},
		{"zz"},
		{"06", "1F", "00"},
	} {
		if _, err := buildOrder(args, nil, 0, 0); err == nil {
			t.Errorf("buildOrder(%q) succeeded", args)
		}
	}
	if _, err := buildOrder([]string{"flash"}, nil, 0, 256); err == nil {
		t.Error("flash page 256 accepted")
	}
}
