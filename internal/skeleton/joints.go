// Package skeleton provides the joint model shared by the tracker and the gesture evaluators.
package skeleton

import (
	"time"

	"github.com/golang/geo/r3"
)

// Joint identifies a skeletal landmark reported by the body-tracking SDK.
// Indices follow the Azure Kinect body-tracking joint order.
type Joint int

// Body-tracking joint indices.
const (
	Pelvis Joint = iota
	SpineNavel
	SpineChest
	Neck
	ClavicleLeft
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	HandTipLeft
	ThumbLeft
	ClavicleRight
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HandTipRight
	ThumbRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	Head
	Nose
	EyeLeft
	EarLeft
	EyeRight
	EarRight
	NumJoints
)

// Torso is the joint whose depth decides which body is closest to the camera.
const Torso = Pelvis

var jointNames = [NumJoints]string{
	"pelvis", "spine_navel", "spine_chest", "neck",
	"clavicle_left", "shoulder_left", "elbow_left", "wrist_left",
	"hand_left", "handtip_left", "thumb_left",
	"clavicle_right", "shoulder_right", "elbow_right", "wrist_right",
	"hand_right", "handtip_right", "thumb_right",
	"hip_left", "knee_left", "ankle_left", "foot_left",
	"hip_right", "knee_right", "ankle_right", "foot_right",
	"head", "nose", "eye_left", "ear_left", "eye_right", "ear_right",
}

// String returns the snake_case name of the joint.
func (j Joint) String() string {
	if j < 0 || j >= NumJoints {
		return "unknown"
	}
	return jointNames[j]
}

// Joints is the full coordinate array of one body, in millimetres.
// The Y axis grows downward: a smaller Y is physically higher.
type Joints [NumJoints]r3.Vector

// Snapshot is the joint array of the selected body at one point in time.
// A published Snapshot is never modified; the next poll replaces it.
type Snapshot struct {
	BodyID     uint32
	Joints     Joints
	CapturedAt time.Time
}

// At returns the position of joint j.
func (s *Snapshot) At(j Joint) r3.Vector {
	return s.Joints[j]
}

// Bone is a pair of joints drawn as a line in skeleton overlays.
type Bone [2]Joint

// Bones lists the skeleton connections used for drawing.
var Bones = []Bone{
	{Pelvis, SpineNavel}, {SpineNavel, SpineChest}, {SpineChest, Neck}, {Neck, Head},
	{SpineChest, ClavicleLeft}, {ClavicleLeft, ShoulderLeft}, {ShoulderLeft, ElbowLeft},
	{ElbowLeft, WristLeft}, {WristLeft, HandLeft}, {HandLeft, HandTipLeft}, {WristLeft, ThumbLeft},
	{SpineChest, ClavicleRight}, {ClavicleRight, ShoulderRight}, {ShoulderRight, ElbowRight},
	{ElbowRight, WristRight}, {WristRight, HandRight}, {HandRight, HandTipRight}, {WristRight, ThumbRight},
	{Pelvis, HipLeft}, {HipLeft, KneeLeft}, {KneeLeft, AnkleLeft}, {AnkleLeft, FootLeft},
	{Pelvis, HipRight}, {HipRight, KneeRight}, {KneeRight, AnkleRight}, {AnkleRight, FootRight},
	{Head, Nose}, {Head, EyeLeft}, {EyeLeft, EarLeft}, {Head, EyeRight}, {EyeRight, EarRight},
}
