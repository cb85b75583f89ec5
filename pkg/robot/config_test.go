package robot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestConfig_SaveLoad(t *testing.T) {
	cal := DefaultCalibration()
	cal[HeadYaw] = JointCalibration{ID: 0x05, Min: 6000, Max: 9000, Default: 7500}

	cfg := &Config{
		Port:             "/dev/rfcomm0",
		BaudRate:         115200,
		FPS:              60,
		Hz:               30,
		Speed:            40,
		KeepaliveSeconds: 5,
		Calibration:      cal,
		Telemetry:        TelemetryConfig{Name: "maid", NATSURL: "nats://localhost:4222"},
	}

	for _, name := range []string{"premaid.json", "premaid.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}
			got, err := LoadConfigFrom(path)
			if err != nil {
				t.Fatalf("LoadConfigFrom: %v", err)
			}
			if diff := cmp.Diff(cfg, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	if cfg.IsCalibrated() {
		t.Error("empty config reports calibrated")
	}
	if len(cfg.JointCalibration()) != 25 {
		t.Error("JointCalibration() did not fall back to defaults")
	}
	if cfg.Keepalive() != 0 {
		t.Errorf("Keepalive() = %v, want 0", cfg.Keepalive())
	}
	cfg.KeepaliveSeconds = 10
	if cfg.Keepalive() != 10*time.Second {
		t.Errorf("Keepalive() = %v, want 10s", cfg.Keepalive())
	}
	if cfg.Telemetry.Enabled() {
		t.Error("telemetry enabled without any sink")
	}
}

func TestLoadConfigFrom_Errors(t *testing.T) {
	if _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json")); !os.IsNotExist(err) {
		t.Errorf("missing file error = %v, want not-exist", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yml")
	content := "port: /dev/ttyS0\ncalibration:\n  head_yaw:\n    id: 5\n    min: 100\n    max: 200\n    default: 150\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFrom(path); err == nil {
		t.Error("config with out of range calibration loaded")
	}
}
