// Package premaid plays motion files on the Premaid AI servo doll.
//
// The doll is driven over a Bluetooth serial link with short XOR-checksummed
// frames. Motions are recorded as .pma files: a hex token stream of 25-joint
// keyframes with loop brackets, which are expanded and interpolated at 60
// ticks per second.
//
// # Installation
//
//	go install github.com/gwillem/premaid/cmd/premaid@latest
//
// # Usage
//
// First, find the doll's serial port and save it:
//
//	premaid ports
//
// Then play a motion:
//
//	premaid play dance.pma
//
// Motion files can be examined without a doll:
//
//	premaid inspect dance.pma
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/premaid: CLI with ports, play, inspect and send commands
//   - pkg/protocol: Frame codec, checksums, servo values and order builders
//   - pkg/motion: .pma parser with loop expansion
//   - pkg/playback: Timeline and keyframe interpolation
//   - pkg/transport: Serial session, order queues and frame reassembly
//   - pkg/robot: Joints, calibration, the joint registry and configuration
//   - pkg/player: Playback controller tying the timeline to the doll
//   - pkg/telemetry: Optional NATS and Redis publishing of doll state
package premaid
