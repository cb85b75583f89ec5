// Package robot models the doll: its joints, their safe ranges and the
// registry of target values that are sent to it.
package robot

// JointName identifies a joint of the doll.
type JointName string

// Joint names, in the order their servos appear in a pose frame.
const (
	RightShoulderPitch JointName = "right_shoulder_pitch"
	HeadPitch          JointName = "head_pitch"
	LeftShoulderPitch  JointName = "left_shoulder_pitch"
	HeadYaw            JointName = "head_yaw"
	RightHipYaw        JointName = "right_hip_yaw"
	HeadRoll           JointName = "head_roll"
	LeftHipYaw         JointName = "left_hip_yaw"
	RightShoulderRoll  JointName = "right_shoulder_roll"
	RightHipRoll       JointName = "right_hip_roll"
	LeftShoulderRoll   JointName = "left_shoulder_roll"
	LeftHipRoll        JointName = "left_hip_roll"
	RightUpperArmYaw   JointName = "right_upper_arm_yaw"
	RightUpperLegPitch JointName = "right_upper_leg_pitch"
	LeftUpperArmYaw    JointName = "left_upper_arm_yaw"
	LeftUpperLegPitch  JointName = "left_upper_leg_pitch"
	RightLowerArmPitch JointName = "right_lower_arm_pitch"
	RightLowerLegPitch JointName = "right_lower_leg_pitch"
	LeftLowerArmPitch  JointName = "left_lower_arm_pitch"
	LeftLowerLegPitch  JointName = "left_lower_leg_pitch"
	RightHandYaw       JointName = "right_hand_yaw"
	RightFootPitch     JointName = "right_foot_pitch"
	LeftHandYaw        JointName = "left_hand_yaw"
	LeftFootPitch      JointName = "left_foot_pitch"
	RightFootRoll      JointName = "right_foot_roll"
	LeftFootRoll       JointName = "left_foot_roll"
)

var jointIDs = map[JointName]byte{
	RightShoulderPitch: 0x02,
	HeadPitch:          0x03,
	LeftShoulderPitch:  0x04,
	HeadYaw:            0x05,
	RightHipYaw:        0x06,
	HeadRoll:           0x07,
	LeftHipYaw:         0x08,
	RightShoulderRoll:  0x09,
	RightHipRoll:       0x0A,
	LeftShoulderRoll:   0x0B,
	LeftHipRoll:        0x0C,
	RightUpperArmYaw:   0x0D,
	RightUpperLegPitch: 0x0E,
	LeftUpperArmYaw:    0x0F,
	LeftUpperLegPitch:  0x10,
	RightLowerArmPitch: 0x11,
	RightLowerLegPitch: 0x12,
	LeftLowerArmPitch:  0x13,
	LeftLowerLegPitch:  0x14,
	RightHandYaw:       0x15,
	RightFootPitch:     0x16,
	LeftHandYaw:        0x17,
	LeftFootPitch:      0x18,
	RightFootRoll:      0x1A,
	LeftFootRoll:       0x1C,
}

// AllJoints returns all joint names in wire order.
func AllJoints() []JointName {
	return []JointName{
		RightShoulderPitch,
		HeadPitch,
		LeftShoulderPitch,
		HeadYaw,
		RightHipYaw,
		HeadRoll,
		LeftHipYaw,
		RightShoulderRoll,
		RightHipRoll,
		LeftShoulderRoll,
		LeftHipRoll,
		RightUpperArmYaw,
		RightUpperLegPitch,
		LeftUpperArmYaw,
		LeftUpperLegPitch,
		RightLowerArmPitch,
		RightLowerLegPitch,
		LeftLowerArmPitch,
		LeftLowerLegPitch,
		RightHandYaw,
		RightFootPitch,
		LeftHandYaw,
		LeftFootPitch,
		RightFootRoll,
		LeftFootRoll,
	}
}

// ID returns the servo id of the joint, or 0 for an unknown name.
func (n JointName) ID() byte {
	return jointIDs[n]
}

// JointByID returns the name of the joint driven by servo id.
func JointByID(id byte) (JointName, bool) {
	for name, jid := range jointIDs {
		if jid == id {
			return name, true
		}
	}
	return "", false
}
