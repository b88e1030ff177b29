// Package actuator talks to the microcontroller that drives the arm servos,
// the pump and the car motors.
package actuator

import (
	"context"

	"github.com/bluefox/agrobot/arm"
)

// NoDistance is reported whenever the range sensor gives no reliable reading.
const NoDistance = 100

// A Link represents the minimal microcontroller interface.
//
// Implementations never fail loudly: commands on a broken or missing
// connection are dropped and distance queries return NoDistance.
type Link interface {
	Send(ch arm.Channel, angle int)
	QueryDistance(ctx context.Context) int
	RequestDiagnosticPing()

	// WriteByte sends a single unframed command byte (car motion, mode, spray).
	WriteByte(b byte) error
}

// Arm pairs a Link with the shared pose so that every actuation clamps,
// records and transmits the same value.
type Arm struct {
	Link Link
	Pose *arm.Pose
}

// Move clamps angle to the channel range, stores it in the pose and sends it.
// It returns the transmitted value.
func (a *Arm) Move(ch arm.Channel, angle int) int {
	angle = ch.Clamp(angle)
	a.Pose.Set(ch, angle)
	a.Link.Send(ch, angle)
	return angle
}

// Nudge moves ch by delta relative to its current pose.
func (a *Arm) Nudge(ch arm.Channel, delta int) int {
	return a.Move(ch, a.Pose.Get(ch)+delta)
}

// PumpOff stops the pump.
func (a *Arm) PumpOff() {
	a.Link.Send(arm.Pump, 0)
}
