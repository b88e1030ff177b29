package harvest

import (
	"fmt"
	"sync"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/vision"
)

// State is a step of the harvest sequence.
type State int

const (
	Idle State = iota
	Tracking
	Approaching
	Grabbing
	Retracting
	Depositing
	Resetting
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Tracking:
		return "Tracking"
	case Approaching:
		return "Approaching"
	case Grabbing:
		return "Grabbing"
	case Retracting:
		return "Retracting"
	case Depositing:
		return "Depositing"
	case Resetting:
		return "Resetting"
	case Done:
		return "Done"
	case Aborted:
		return "Aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool { return s == Done || s == Aborted }

// Session is a single harvest attempt.
type Session struct {
	Color vision.Color

	claim activity.Claim

	mx         sync.Mutex
	state      State
	history    []State
	iterations int
	exhausted  bool
	distance   int

	done chan struct{}
}

func newSession(c vision.Color, claim activity.Claim) *Session {
	return &Session{
		Color:   c,
		claim:   claim,
		state:   Idle,
		history: []State{Idle},
		done:    make(chan struct{}),
	}
}

// Done is closed once the session reaches Done or Aborted.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current state.
func (s *Session) State() State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// History returns every state the session has been in, in order.
// Repeated approach iterations appear once.
func (s *Session) History() []State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]State(nil), s.history...)
}

// Exhausted reports whether the approach ran out of iterations before the
// target came within grabbing distance.
func (s *Session) Exhausted() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.exhausted
}

// Distance returns the last distance reading in cm.
func (s *Session) Distance() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.distance
}

func (s *Session) setState(st State) {
	s.mx.Lock()
	if st != s.state {
		s.history = append(s.history, st)
	}
	s.state = st
	s.mx.Unlock()
}

func (s *Session) setDistance(d int) {
	s.mx.Lock()
	s.distance = d
	s.mx.Unlock()
}
