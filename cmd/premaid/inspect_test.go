package main

import (
	"testing"

	"github.com/gwillem/premaid/pkg/robot"
)

func TestRangePercent(t *testing.T) {
	cal := robot.DefaultCalibration()
	tests := []struct {
		name robot.JointName
		v    int
		ok   bool
		want string
	}{
		{robot.HeadYaw, 7500, true, "+0%"},
		{robot.HeadYaw, 4000, true, "-100%"},
		{robot.HeadYaw, 9250, true, "+50%"},
		{robot.HeadYaw, 11500, true, "+100%"},
		{robot.HeadYaw, 7500, false, "-"},
		{robot.JointName("tail"), 7500, true, "-"},
	}
	for _, tt := range tests {
		if got := rangePercent(cal, tt.name, tt.v, tt.ok); got != tt.want {
			t.Errorf("rangePercent(%s, %d, %v) = %q, want %q", tt.name, tt.v, tt.ok, got, tt.want)
		}
	}
}
