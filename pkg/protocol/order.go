package protocol

import "fmt"

// Kind identifies what an Order asks the doll to do.
type Kind int

const (
	KindRaw Kind = iota
	KindPose
	KindAllStop
	KindBatteryQuery
	KindFlashDump
	KindStoredMotion
	KindEndPose
	KindServoProperty
)

func (k Kind) String() string {
	switch k {
	case KindPose:
		return "pose"
	case KindAllStop:
		return "all-stop"
	case KindBatteryQuery:
		return "battery"
	case KindFlashDump:
		return "flash-dump"
	case KindStoredMotion:
		return "stored-motion"
	case KindEndPose:
		return "end-pose"
	case KindServoProperty:
		return "servo-property"
	default:
		return "raw"
	}
}

// Pose speed limits. Smaller is faster; 255 is the slowest transition.
const (
	MinSpeed = 1
	MaxSpeed = 255
)

// allStopSpeed is the speed byte the vendor tool uses for the release pose.
const allStopSpeed = 0x06

// Order is a logical command. Its bytes carry a placeholder checksum until
// Frame seals them.
type Order struct {
	Kind Kind
	data []byte
}

// Frame returns the sealed wire frame for the order.
func (o Order) Frame() Frame {
	return Seal(o.data)
}

// IsZero reports whether the order carries no bytes.
func (o Order) IsZero() bool { return len(o.data) == 0 }

func (o Order) String() string {
	return fmt.Sprintf("%s[%s]", o.Kind, o.Frame())
}

// PoseOrder builds a speed-limited pose for the given joints. Values are sent
// as given; callers are expected to pass registry-clamped values.
func PoseOrder(speed int, values []JointValue) Order {
	speed = Clamp(speed, MinSpeed, MaxSpeed)
	return Order{Kind: KindPose, data: poseBytes(byte(speed), values)}
}

// AllStopOrder releases torque on every listed joint by sending a pose whose
// values are all zero.
func AllStopOrder(ids []byte) Order {
	values := make([]JointValue, len(ids))
	for i, id := range ids {
		values[i] = JointValue{ID: id}
	}
	return Order{Kind: KindAllStop, data: poseBytes(allStopSpeed, values)}
}

func poseBytes(speed byte, values []JointValue) []byte {
	// 1 servo -> 0x08, 25 servos -> 0x50
	n := len(values)*3 + 5
	data := make([]byte, 0, n)
	data = append(data, byte(n), CmdPose, 0x00, speed)
	for _, jv := range values {
		v := EncodeValue(jv.Value)
		data = append(data, jv.ID, v[0], v[1])
	}
	return append(data, 0xFF)
}

// PoseValues decodes the speed byte and the (id, value) pairs of a pose frame.
func PoseValues(f Frame) (int, []JointValue, error) {
	if f.Command() != CmdPose {
		return 0, nil, fmt.Errorf("frame %s is not a pose", f)
	}
	p := f.Payload()
	if len(p)%3 != 0 {
		return 0, nil, fmt.Errorf("pose %s: %d payload bytes do not form joint triples", f, len(p))
	}
	values := make([]JointValue, 0, len(p)/3)
	for i := 0; i < len(p); i += 3 {
		values = append(values, JointValue{ID: p[i], Value: DecodeValue(p[i+1], p[i+2])})
	}
	return int(f.Param()), values, nil
}

// BatteryQuery asks the doll for its battery voltage.
func BatteryQuery() Order {
	return Order{Kind: KindBatteryQuery, data: []byte{0x07, CmdStatus, 0x00, 0x02, 0x00, 0x02, 0x06}}
}

// FlashDumpRequest asks the doll to dump one page of its motion flash.
func FlashDumpRequest(page byte) Order {
	return Order{Kind: KindFlashDump, data: []byte{0x05, CmdFlashDump, 0x00, page, 0xFF}}
}

// PlayStoredMotion starts a motion already stored on the doll.
// Slot 0x01 is the built-in dance.
func PlayStoredMotion(slot byte) Order {
	return Order{Kind: KindStoredMotion, data: []byte{0x05, CmdStoredMotion, 0x00, slot, 0xFF}}
}

// EndPose makes the doll slowly leave any pose and return to standby.
func EndPose() Order {
	return Order{Kind: KindEndPose, data: []byte{0x04, CmdEndPose, 0x00, 0x01}}
}

// Property selects the per-joint parameter table written by ServoPropertyOrder.
type Property byte

const (
	PropertySpeed   Property = 0x00
	PropertyStretch Property = 0x10
)

// Property values accepted by the firmware.
const (
	MinPropertyValue = 1
	MaxPropertyValue = 127
)

// ServoPropertyOrder writes the same speed or stretch value to every listed
// joint.
func ServoPropertyOrder(p Property, ids []byte, value int) Order {
	value = Clamp(value, MinPropertyValue, MaxPropertyValue)
	n := len(ids)*2 + 4
	data := make([]byte, 0, n)
	data = append(data, byte(n), CmdServoProperty, byte(p))
	for _, id := range ids {
		data = append(data, id, byte(value))
	}
	return Order{Kind: KindServoProperty, data: append(data, 0xFF)}
}

// RawOrder parses a hand-written hex order such as "05 1F 00 01 FF". The last
// byte is a checksum placeholder and is recomputed when the frame is built.
func RawOrder(s string) (Order, error) {
	data, err := FromHex(s)
	if err != nil {
		return Order{}, err
	}
	if len(data) < MinFrameLen {
		return Order{}, fmt.Errorf("raw order %q: need at least %d bytes", s, MinFrameLen)
	}
	if int(data[0]) != len(data) {
		return Order{}, fmt.Errorf("raw order %q: length byte %d does not match %d bytes", s, data[0], len(data))
	}
	return Order{Kind: KindRaw, data: data}, nil
}
