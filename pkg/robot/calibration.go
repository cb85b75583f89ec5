package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/premaid/pkg/protocol"
)

// Default safe range for every joint.
const (
	DefaultRangeMin = 4000
	DefaultRangeMax = 11000
)

// JointCalibration is the safe range and rest value of one joint, in raw
// servo units.
type JointCalibration struct {
	ID      byte `json:"id" yaml:"id"`
	Min     int  `json:"min" yaml:"min"`
	Max     int  `json:"max" yaml:"max"`
	Default int  `json:"default" yaml:"default"`
}

// Calibration holds calibration data for all joints, keyed by joint name.
type Calibration map[JointName]JointCalibration

// DefaultCalibration returns the stock ranges. The shoulder rolls rest away
// from center so the arms hang down.
func DefaultCalibration() Calibration {
	cal := make(Calibration, len(jointIDs))
	for _, name := range AllJoints() {
		cal[name] = JointCalibration{
			ID:      name.ID(),
			Min:     DefaultRangeMin,
			Max:     DefaultRangeMax,
			Default: protocol.CenterServoValue,
		}
	}
	setDefault(cal, RightShoulderRoll, 9500)
	setDefault(cal, LeftShoulderRoll, 5500)
	return cal
}

func setDefault(cal Calibration, name JointName, v int) {
	jc := cal[name]
	jc.Default = v
	cal[name] = jc
}

// LoadCalibration loads calibration data from a JSON or YAML file. Joints
// missing from the file keep their default range.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var raw map[JointName]JointCalibration
	if err := unmarshalByExt(path, data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration: %w", err)
	}

	cal := DefaultCalibration()
	for name, jc := range raw {
		if _, ok := jointIDs[name]; !ok {
			return nil, fmt.Errorf("calibration: unknown joint %q", name)
		}
		jc.ID = name.ID()
		cal[name] = jc
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}

// Validate checks that every range lies inside the hardware range and holds
// its default.
func (c Calibration) Validate() error {
	for name, jc := range c {
		if jc.Min < protocol.MinServoValue || jc.Max > protocol.MaxServoValue || jc.Min > jc.Max {
			return fmt.Errorf("calibration: %s range %d..%d outside %d..%d",
				name, jc.Min, jc.Max, protocol.MinServoValue, protocol.MaxServoValue)
		}
		if jc.Default < jc.Min || jc.Default > jc.Max {
			return fmt.Errorf("calibration: %s default %d outside %d..%d", name, jc.Default, jc.Min, jc.Max)
		}
	}
	return nil
}

// Clamp limits raw to the joint's safe range.
func (c JointCalibration) Clamp(raw int) int {
	return protocol.Clamp(raw, c.Min, c.Max)
}

// Normalize places raw within the joint's safe range: -100 at Min, 100 at
// Max. Values outside the range are clamped first.
func (c JointCalibration) Normalize(raw int) float64 {
	span := float64(c.Max - c.Min)
	if span == 0 {
		return 0
	}
	return float64(c.Clamp(raw)-c.Min)/span*200 - 100
}

// JointIDs returns the servo ids in the calibration, in wire order.
func (c Calibration) JointIDs() []byte {
	ids := make([]byte, 0, len(c))
	for _, name := range AllJoints() {
		if jc, ok := c[name]; ok {
			ids = append(ids, jc.ID)
		}
	}
	return ids
}

// ByID returns joint name and calibration for a given servo id.
func (c Calibration) ByID(id byte) (JointName, JointCalibration, bool) {
	for name, jc := range c {
		if jc.ID == id {
			return name, jc, true
		}
	}
	return "", JointCalibration{}, false
}

func unmarshalByExt(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

func marshalByExt(path string, v any) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(v)
	default:
		return json.MarshalIndent(v, "", "  ")
	}
}
