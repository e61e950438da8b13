package exercise

import "fmt"

// SensorID identifies one of the five wearable/ball sensors. Each id has a
// fixed anatomical role for the lifetime of the rig.
type SensorID int

const (
	RightHand SensorID = iota + 1
	LeftHand
	RightLeg
	LeftLeg
	Ball
)

// MaxSensors is the number of sensor slots on the rig.
const MaxSensors = 5

// Role describes the fixed placement of a sensor and the identifiers its
// device advertises. The UUIDs are the Nordic-UART-style service and notify
// characteristic of the sensor firmware; they are informational here and are
// consumed by whatever transport bridges the radio link to a byte stream.
type Role struct {
	ID          SensorID `json:"id"`
	Prefix      string   `json:"prefix"`
	DeviceName  string   `json:"device_name"`
	ServiceUUID string   `json:"service_uuid"`
	NotifyUUID  string   `json:"notify_uuid"`
}

var roles = [MaxSensors]Role{
	{RightHand, "right_hand", "Sense Right Hand", "8E400004-B5A3-F393-E0A9-E50E24DCCA9E", "8E400006-B5A3-F393-E0A9-E50E24DCCA9E"},
	{LeftHand, "left_hand", "Sense Left Hand", "6E400001-B5A3-F393-E0A9-E50E24DCCA9E", "6E400003-B5A3-F393-E0A9-E50E24DCCA9E"},
	{RightLeg, "right_leg", "Sense Right Leg", "7E400001-A5B3-C393-D0E9-F50E24DCCA9E", "7E400003-A5B3-C393-D0E9-F50E24DCCA9E"},
	{LeftLeg, "left_leg", "Sense Left Leg", "6E400001-B5C3-D393-A0F9-E50F24DCCA9E", "6E400003-B5C3-D393-A0F9-E50F24DCCA9E"},
	{Ball, "ball", "Sense Ball", "9E400001-C5C3-E393-B0A9-E50E24DCCA9E", "9E400003-C5C3-E393-B0A9-E50E24DCCA9E"},
}

// Valid reports whether id names one of the rig's sensor slots.
func (id SensorID) Valid() bool {
	return id >= RightHand && id <= Ball
}

// Role returns the placement metadata for id. It panics on an invalid id;
// callers validate configs before indexing roles.
func (id SensorID) Role() Role {
	if !id.Valid() {
		panic(fmt.Sprintf("exercise: invalid sensor id %d", int(id)))
	}
	return roles[id-1]
}

func (id SensorID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("sensor(%d)", int(id))
	}
	return roles[id-1].Prefix
}

// Roles returns the placement metadata of every sensor slot in id order.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles[:])
	return out
}
