package robot

import (
	"os"
	"time"
)

const DefaultConfigFile = "premaid.json"

// Config holds the doll configuration. It is stored as JSON, or as YAML when
// the file name ends in .yaml or .yml.
type Config struct {
	Port     string `json:"port" yaml:"port"`
	BaudRate int    `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`

	// FPS is the tick rate of motion files, Hz the control loop rate and
	// Speed the speed byte of the periodic full pose.
	FPS   float64 `json:"fps,omitempty" yaml:"fps,omitempty"`
	Hz    int     `json:"hz,omitempty" yaml:"hz,omitempty"`
	Speed int     `json:"speed,omitempty" yaml:"speed,omitempty"`

	// KeepaliveSeconds is the battery query period; negative disables it.
	KeepaliveSeconds int `json:"keepalive_seconds,omitempty" yaml:"keepalive_seconds,omitempty"`

	Calibration Calibration     `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	Telemetry   TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// TelemetryConfig selects where doll state is published. Empty URLs disable
// the corresponding sink.
type TelemetryConfig struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	NATSURL   string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
}

// Enabled reports whether any sink is configured.
func (t TelemetryConfig) Enabled() bool {
	return t.NATSURL != "" || t.RedisAddr != ""
}

// IsCalibrated returns true if the config carries its own joint ranges
func (c *Config) IsCalibrated() bool {
	return len(c.Calibration) > 0
}

// Keepalive returns the keepalive period as a duration. Zero means the
// transport default.
func (c *Config) Keepalive() time.Duration {
	return time.Duration(c.KeepaliveSeconds) * time.Second
}

// JointCalibration returns the configured calibration, or the defaults.
func (c *Config) JointCalibration() Calibration {
	if c.IsCalibrated() {
		return c.Calibration
	}
	return DefaultCalibration()
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := unmarshalByExt(path, data, &cfg); err != nil {
		return nil, err
	}
	if cfg.IsCalibrated() {
		if err := cfg.Calibration.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := marshalByExt(path, c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
