// Package harvest runs the autonomous pick sequence: acquire a colored target,
// approach it using the range sensor, grab it and drop it in the bin.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/arm"
	"github.com/bluefox/agrobot/event"
	"github.com/bluefox/agrobot/vision"
)

// ErrBusy is returned when a harvest is requested while one is running or
// while a playback drives the arm.
var ErrBusy = errors.New("harvest already in progress")

const (
	// MaxApproachSteps bounds the approach loop.
	MaxApproachSteps = 20

	// GrabDistance is the furthest reading, in cm, at which the gripper closes.
	GrabDistance = 7

	// ReachDistance is the furthest reading, in cm, worth approaching.
	ReachDistance = 30

	// ApproachStep is the shoulder/elbow increment per approach iteration.
	ApproachStep = 2
)

// Timings are the pauses between the moves of a harvest.
type Timings struct {
	Settle       time.Duration `yaml:"settle"`
	ApproachStep time.Duration `yaml:"approachStep"`
	PreGrab      time.Duration `yaml:"preGrab"`
	Grip         time.Duration `yaml:"grip"`
	Retract      time.Duration `yaml:"retract"`
	Deposit      time.Duration `yaml:"deposit"`
	Release      time.Duration `yaml:"release"`
}

// DefaultTimings match the servo speeds of the stock arm.
func DefaultTimings() Timings {
	return Timings{
		Settle:       2 * time.Second,
		ApproachStep: 500 * time.Millisecond,
		PreGrab:      500 * time.Millisecond,
		Grip:         time.Second,
		Retract:      1500 * time.Millisecond,
		Deposit:      2 * time.Second,
		Release:      time.Second,
	}
}

// Controller starts harvest sessions. Only one runs at a time; it holds the
// tracking flag for its whole duration and gives up as soon as the flag is cleared.
type Controller struct {
	Arm     *actuator.Arm
	Coord   *activity.Coordinator
	Tracker *vision.Tracker
	Events  event.Sink
	Timings Timings

	mx      sync.Mutex
	current *Session
}

// Start begins a harvest of the given color in the background. It fails with
// ErrBusy until the previous session has reached a terminal state, and while
// a playback is running.
func (c *Controller) Start(ctx context.Context, color vision.Color) (*Session, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.current != nil {
		select {
		case <-c.current.done:
		default:
			return nil, ErrBusy
		}
	}
	claim, ok := c.Coord.TryStart(activity.Tracking, activity.Playback)
	if !ok {
		if c.Coord.Active(activity.Playback) {
			return nil, fmt.Errorf("%w: playback running", ErrBusy)
		}
		return nil, ErrBusy
	}
	s := newSession(color, claim)
	c.current = s
	go c.run(ctx, s)
	return s, nil
}

func (c *Controller) run(ctx context.Context, s *Session) {
	defer close(s.done)
	defer c.Coord.Release(s.claim)
	for st := s.State(); !st.Terminal(); st = s.State() {
		s.setState(c.step(ctx, s))
	}
	if s.State() == Aborted {
		log.Printf("harvest: %s aborted after %v", s.Color, s.History())
	}
}

func (c *Controller) events() event.Sink {
	if c.Events == nil {
		return event.Discard
	}
	return c.Events
}

func (c *Controller) move(ch arm.Channel, angle int) {
	c.events().UpdateUI(ch, c.Arm.Move(ch, angle))
}

func (c *Controller) nudge(ch arm.Channel, delta int) {
	c.events().UpdateUI(ch, c.Arm.Nudge(ch, delta))
}

// step performs the work of the session's current state and returns the next one.
func (c *Controller) step(ctx context.Context, s *Session) State {
	ev := c.events()
	t := c.Timings
	wait := func(d time.Duration) bool {
		return c.Coord.Wait(ctx, s.claim, d)
	}
	if !c.Coord.Held(s.claim) || ctx.Err() != nil {
		return Aborted
	}

	switch s.State() {
	case Idle:
		if c.Tracker != nil {
			c.Tracker.Configure(s.Color)
		}
		ev.Status(fmt.Sprintf("Tracking %s...", s.Color))
		c.move(arm.Gripper, arm.GripperOpen)
		if !wait(t.Settle) {
			return Aborted
		}
		return Tracking

	case Tracking:
		d := c.Arm.Link.QueryDistance(ctx)
		s.setDistance(d)
		ev.Status(fmt.Sprintf("Distance: %dcm", d))
		if d == actuator.NoDistance || d > ReachDistance {
			ev.Status("Too far! Stopping.")
			c.Coord.Release(s.claim)
			return Aborted
		}
		ev.Status("Approaching...")
		return Approaching

	case Approaching:
		if s.iterations >= MaxApproachSteps {
			s.mx.Lock()
			s.exhausted = true
			s.mx.Unlock()
			log.Printf("harvest: approach exhausted at %dcm, grabbing anyway", s.Distance())
			return Grabbing
		}
		s.iterations++

		d := c.Arm.Link.QueryDistance(ctx)
		s.setDistance(d)
		if d > 0 && d <= GrabDistance {
			return Grabbing
		}
		c.nudge(arm.Shoulder, ApproachStep)
		c.nudge(arm.Elbow, -ApproachStep)
		if !wait(t.ApproachStep) {
			return Aborted
		}
		return Approaching

	case Grabbing:
		ev.Status(fmt.Sprintf("Grabbing (Safety %d)...", arm.GripperClosed))
		if !wait(t.PreGrab) {
			return Aborted
		}
		c.move(arm.Gripper, arm.GripperClosed)
		if !wait(t.Grip) {
			return Aborted
		}
		return Retracting

	case Retracting:
		ev.Status("Pulling Back...")
		c.move(arm.Shoulder, arm.Neutral)
		c.move(arm.Elbow, arm.Neutral)
		if !wait(t.Retract) {
			return Aborted
		}
		return Depositing

	case Depositing:
		ev.Status(fmt.Sprintf("Dropping at %d°...", arm.DropZone))
		c.move(arm.Base, arm.DropZone)
		if !wait(t.Deposit) {
			return Aborted
		}
		c.move(arm.Gripper, arm.GripperOpen)
		if !wait(t.Release) {
			return Aborted
		}
		return Resetting

	case Resetting:
		c.move(arm.Base, arm.Neutral)
		c.Coord.Release(s.claim)
		ev.Status("Done.")
		return Done
	}

	return s.State()
}
