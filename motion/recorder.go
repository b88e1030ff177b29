// Package motion records manual arm moves and plays them back with their
// original timing.
package motion

import (
	"sync"
	"time"

	"github.com/bluefox/agrobot/arm"
)

// Step is one recorded move. Delay is the time since the previous step, or
// since the start of the recording for the first one.
type Step struct {
	Channel arm.Channel   `json:"channel"`
	Angle   int           `json:"angle"`
	Delay   time.Duration `json:"delay"`
}

// Recorder captures manual moves into the single retained sequence.
type Recorder struct {
	mx        sync.Mutex
	recording bool
	steps     []Step
	last      time.Time

	now func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Start discards the retained sequence and begins capturing.
func (r *Recorder) Start() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.steps = nil
	r.last = r.now()
	r.recording = true
}

// Stop ends capturing and returns the number of steps retained.
func (r *Recorder) Stop() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.recording = false
	return len(r.steps)
}

// Recording reports whether moves are being captured.
func (r *Recorder) Recording() bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.recording
}

// OnManualMove captures a move while recording. Pump commands are never recorded.
func (r *Recorder) OnManualMove(ch arm.Channel, angle int) {
	if ch == arm.Pump {
		return
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	if !r.recording {
		return
	}
	t := r.now()
	r.steps = append(r.steps, Step{Channel: ch, Angle: angle, Delay: t.Sub(r.last)})
	r.last = t
}

// Steps returns a copy of the retained sequence.
func (r *Recorder) Steps() []Step {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]Step(nil), r.steps...)
}

// Load replaces the retained sequence, e.g. with one restored from storage.
func (r *Recorder) Load(steps []Step) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.steps = append([]Step(nil), steps...)
}
