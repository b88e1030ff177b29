// Package control routes the operator's control events to the arm, the car
// and the background activities.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/arm"
	"github.com/bluefox/agrobot/event"
	"github.com/bluefox/agrobot/harvest"
	"github.com/bluefox/agrobot/motion"
	"github.com/bluefox/agrobot/vision"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("bad payload")
	ErrCarCommand   = errors.New("invalid car command")
)

// CarCommands are the raw drive and mode bytes accepted from the operator.
const CarCommands = "wsadxMU"

// SequenceStore persists the recorded sequence.
type SequenceStore interface {
	SaveSequence(steps []motion.Step) error
}

type Dispatcher struct {
	Arm       *actuator.Arm
	Coord     *activity.Coordinator
	Harvest   *harvest.Controller
	Recorder  *motion.Recorder
	Player    *motion.Player
	Events    event.Sink
	Sequences SequenceStore

	// Context bounds the background activities started by events.
	Context context.Context

	// HomeGap separates the moves of GoHome.
	HomeGap time.Duration
}

func (d *Dispatcher) events() event.Sink {
	if d.Events == nil {
		return event.Discard
	}
	return d.Events
}

func (d *Dispatcher) background() context.Context {
	if d.Context == nil {
		return context.Background()
	}
	return d.Context
}

// Move positions one actuator from a manual control and records it when
// a recording is in progress.
func (d *Dispatcher) Move(name string, value int) error {
	ch, err := arm.ParseChannel(name)
	if err != nil {
		return err
	}
	angle := d.Arm.Move(ch, value)
	d.Recorder.OnManualMove(ch, angle)
	return nil
}

// RequestHarvest starts a harvest of the named color.
func (d *Dispatcher) RequestHarvest(color string) error {
	c, err := vision.ParseColor(color)
	if err != nil {
		return err
	}
	_, err = d.Harvest.Start(d.background(), c)
	return err
}

// CheckSensor asks the controller to run its sensor diagnostics.
func (d *Dispatcher) CheckSensor() {
	d.Arm.Link.RequestDiagnosticPing()
}

// Record starts a new recording on "start"; anything else stops it and
// saves the sequence.
func (d *Dispatcher) Record(cmd string) error {
	if cmd == "start" {
		d.Recorder.Start()
		d.events().Status("Recording...")
		return nil
	}

	n := d.Recorder.Stop()
	d.events().Status(fmt.Sprintf("Saved %d steps.", n))
	if d.Sequences == nil {
		return nil
	}
	if err := d.Sequences.SaveSequence(d.Recorder.Steps()); err != nil {
		log.Println("ERROR: save sequence:", err)
		return fmt.Errorf("save sequence: %w", err)
	}
	return nil
}

// Play handles "once", "loop" and "stop".
func (d *Dispatcher) Play(cmd string) error {
	if cmd == "stop" {
		d.Player.Stop()
		return nil
	}
	mode, err := motion.ParseMode(cmd)
	if err != nil {
		return err
	}
	_, err = d.Player.Start(d.background(), mode)
	return err
}

func sleep(ctx context.Context, dur time.Duration) {
	if dur <= 0 {
		return
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// GoHome cancels every activity, stops the pump and returns the arm to its
// rest pose one joint at a time.
func (d *Dispatcher) GoHome(ctx context.Context) {
	d.Coord.ClearAll()
	d.Arm.PumpOff()
	d.Arm.Pose.Reset()

	ev := d.events()
	ev.Status("Resetting Arm...")

	rest := arm.RestPose()
	order := []arm.Channel{arm.Gripper, arm.Shoulder, arm.Elbow, arm.Base}
	for i, ch := range order {
		if i > 0 {
			sleep(ctx, d.HomeGap)
		}
		d.Arm.Move(ch, rest[ch])
	}

	for _, ch := range arm.Joints() {
		ev.UpdateUI(ch, rest[ch])
	}
	ev.Status("Reset Done ✅")
}

// Car forwards a single drive or mode command byte.
func (d *Dispatcher) Car(cmd string) error {
	if len(cmd) != 1 || !strings.Contains(CarCommands, cmd) {
		return fmt.Errorf("%w: %q", ErrCarCommand, cmd)
	}
	return d.Arm.Link.WriteByte(cmd[0])
}

// number accepts both 90 and "90". Out-of-range values saturate so the
// channel clamp still sees which end they were past.
type number int

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: not a finite number: %s", ErrBadPayload, s)
	}
	*n = number(math.Max(math.MinInt32, math.Min(math.MaxInt32, f)))
	return nil
}

type movePayload struct {
	ID  string `json:"id"`
	Val number `json:"val"`
}

// Handle decodes and dispatches one inbound control event.
func (d *Dispatcher) Handle(ctx context.Context, name string, data json.RawMessage) error {
	str := func() (string, error) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrBadPayload, name, err)
		}
		return s, nil
	}

	switch name {
	case "move":
		var m movePayload
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("%w: move: %v", ErrBadPayload, err)
		}
		return d.Move(m.ID, int(m.Val))
	case "harvest_request":
		color, err := str()
		if err != nil {
			return err
		}
		return d.RequestHarvest(color)
	case "check_sensor":
		d.CheckSensor()
		return nil
	case "rec_ctrl":
		cmd, err := str()
		if err != nil {
			return err
		}
		return d.Record(cmd)
	case "play_ctrl":
		cmd, err := str()
		if err != nil {
			return err
		}
		return d.Play(cmd)
	case "go_home":
		d.GoHome(ctx)
		return nil
	case "car":
		cmd, err := str()
		if err != nil {
			return err
		}
		return d.Car(cmd)
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}
