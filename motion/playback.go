package motion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/arm"
	"github.com/bluefox/agrobot/event"
)

var (
	ErrEmptySequence   = errors.New("no recorded steps")
	ErrPlaybackRunning = errors.New("playback already running")
	ErrHarvestRunning  = errors.New("harvest in progress")
	ErrUnknownMode     = errors.New("unknown playback mode")
)

// Mode selects how many passes a playback makes.
type Mode int

const (
	Once Mode = iota
	Loop
)

func (m Mode) String() string {
	if m == Loop {
		return "loop"
	}
	return "once"
}

// ParseMode accepts "once" or "loop".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "once":
		return Once, nil
	case "loop":
		return Loop, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Timings are the fixed pauses of a playback.
type Timings struct {
	// Settle follows the initial positioning move.
	Settle time.Duration `yaml:"settle"`

	// RestPause follows the rest pose at the end of every pass.
	RestPause time.Duration `yaml:"restPause"`
}

func DefaultTimings() Timings {
	return Timings{Settle: time.Second, RestPause: 2 * time.Second}
}

// Player replays the recorder's sequence. It holds the playback flag while
// running.
type Player struct {
	Arm      *actuator.Arm
	Coord    *activity.Coordinator
	Recorder *Recorder
	Events   event.Sink
	Timings  Timings

	mx   sync.Mutex
	done chan struct{}
}

func (p *Player) events() event.Sink {
	if p.Events == nil {
		return event.Discard
	}
	return p.Events
}

// Running reports whether a playback holds the playback flag.
func (p *Player) Running() bool { return p.Coord.Active(activity.Playback) }

// Start begins playing the retained sequence in the background. The returned
// channel is closed when the playback goroutine exits. A stopped playback
// keeps rejecting Start until its goroutine has exited.
func (p *Player) Start(ctx context.Context, mode Mode) (<-chan struct{}, error) {
	steps := p.Recorder.Steps()
	if len(steps) == 0 {
		return nil, ErrEmptySequence
	}

	p.mx.Lock()
	defer p.mx.Unlock()
	if p.done != nil {
		select {
		case <-p.done:
		default:
			return nil, ErrPlaybackRunning
		}
	}
	claim, ok := p.Coord.TryStart(activity.Playback, activity.Tracking)
	if !ok {
		if p.Coord.Active(activity.Tracking) {
			return nil, ErrHarvestRunning
		}
		return nil, ErrPlaybackRunning
	}
	done := make(chan struct{})
	p.done = done
	go func() {
		defer close(done)
		defer p.Coord.Release(claim)
		p.play(ctx, claim, mode, steps)
	}()
	return done, nil
}

// Stop cancels playback and any running harvest, and turns the pump off
// whether or not anything was running.
func (p *Player) Stop() {
	p.Coord.ClearAll()
	p.Arm.PumpOff()
	p.events().Status("Stopping Immediately (Pump OFF)...")
}

func (p *Player) move(s Step) {
	p.events().UpdateUI(s.Channel, p.Arm.Move(s.Channel, s.Angle))
}

// play returns false if it was cancelled.
func (p *Player) play(ctx context.Context, claim activity.Claim, mode Mode, steps []Step) bool {
	wait := func(d time.Duration) bool {
		return p.Coord.Wait(ctx, claim, d)
	}

	p.move(steps[0])
	if !wait(p.Timings.Settle) {
		return false
	}

	for {
		for _, s := range steps {
			if !wait(s.Delay) {
				return false
			}
			p.move(s)
		}

		p.Arm.Pose.Reset()
		for _, ch := range arm.Joints() {
			p.move(Step{Channel: ch, Angle: p.Arm.Pose.Get(ch)})
		}
		if !wait(p.Timings.RestPause) {
			return false
		}
		if mode == Once {
			break
		}
	}

	p.Coord.Release(claim)
	p.events().Status("Stopped.")
	return true
}
