// Package arm describes the actuator channels of the harvester arm and
// the process-wide pose shared by everything that drives it.
package arm

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownChannel is returned when a channel name or id is not part of the arm.
var ErrUnknownChannel = errors.New("unknown channel")

// A Channel is the numeric id the microcontroller uses to address an actuator
// or a virtual command.
type Channel int

const (
	Base     Channel = 0
	Shoulder Channel = 1
	Elbow    Channel = 2
	Gripper  Channel = 3
	Pump     Channel = 8

	// DistanceQuery and DiagnosticPing are commands, not actuators.
	DistanceQuery  Channel = 98
	DiagnosticPing Channel = 99
)

// Reference angles used by the automated activities.
const (
	Neutral       = 90
	GripperClosed = 140 // grab and rest position
	GripperOpen   = 90  // pre-grab and release position
	DropZone      = 160
)

type limits struct {
	name   string
	lo, hi int
}

var table = map[Channel]limits{
	Base:     {"Base", 0, 180},
	Shoulder: {"Shoulder", 0, 180},
	Elbow:    {"Elbow", 0, 180},
	Gripper:  {"Gripper", 0, 140},
	Pump:     {"Pump", 0, 1},
}

// Joints returns the four positional channels in pose order.
func Joints() []Channel {
	return []Channel{Base, Shoulder, Elbow, Gripper}
}

// Range reports the allowed values for c.
func (c Channel) Range() (lo, hi int, ok bool) {
	l, ok := table[c]
	return l.lo, l.hi, ok
}

// Clamp limits angle to the channel's range. Channels without a range
// (the virtual commands) pass the value through.
func (c Channel) Clamp(angle int) int {
	l, ok := table[c]
	if !ok {
		return angle
	}
	if angle < l.lo {
		return l.lo
	}
	if angle > l.hi {
		return l.hi
	}
	return angle
}

func (c Channel) String() string {
	if l, ok := table[c]; ok {
		return l.name
	}
	switch c {
	case DistanceQuery:
		return "DistanceQuery"
	case DiagnosticPing:
		return "DiagnosticPing"
	}
	return "Channel(" + strconv.Itoa(int(c)) + ")"
}

// ParseChannel resolves the control-surface name of an actuator.
func ParseChannel(name string) (Channel, error) {
	for c, l := range table {
		if l.name == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}
