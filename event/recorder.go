package event

import (
	"sync"

	"github.com/bluefox/agrobot/arm"
)

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	mx     sync.Mutex
	events []Event
}

var _ Sink = &Recorder{}

func (r *Recorder) Status(text string) {
	r.mx.Lock()
	r.events = append(r.events, Event{Kind: Status, Text: text})
	r.mx.Unlock()
}

func (r *Recorder) UpdateUI(ch arm.Channel, value int) {
	r.mx.Lock()
	r.events = append(r.events, Event{Kind: UpdateUI, Channel: ch, Value: value})
	r.mx.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]Event(nil), r.events...)
}

// Statuses returns the recorded status texts in order.
func (r *Recorder) Statuses() []string {
	var res []string
	for _, e := range r.Events() {
		if e.Kind == Status {
			res = append(res, e.Text)
		}
	}
	return res
}

type discard struct{}

func (discard) Status(string) {}
func (discard) UpdateUI(arm.Channel, int) {}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}
