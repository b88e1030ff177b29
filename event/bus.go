// Package event carries the outbound notifications of the control core:
// status text and UI position updates.
package event

import (
	"log"
	"sync"
	"time"

	"github.com/bluefox/agrobot/arm"
)

// Kind identifies an outbound event.
type Kind string

const (
	Status   Kind = "status_msg"
	UpdateUI Kind = "update_ui"
)

// Event is a single outbound notification. It is informational only; nothing
// in the core reads it back.
type Event struct {
	Kind    Kind
	Text    string
	Channel arm.Channel
	Value   int
	Time    time.Time
}

// A Sink receives notifications from the activities.
type Sink interface {
	Status(text string)
	UpdateUI(ch arm.Channel, value int)
}

// Bus fans events out to every subscriber without ever blocking the publisher.
type Bus struct {
	mx     sync.RWMutex
	nextID int
	subs   map[int]chan Event

	// Quiet disables logging of status messages.
	Quiet bool
}

var _ Sink = &Bus{}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that ends the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mx.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mx.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mx.Lock()
			delete(b.subs, id)
			b.mx.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber with room for it.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mx.RLock()
	defer b.mx.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Drop if subscriber is behind
		}
	}
}

func (b *Bus) Status(text string) {
	if !b.Quiet {
		log.Println("status:", text)
	}
	b.Publish(Event{Kind: Status, Text: text})
}

func (b *Bus) UpdateUI(ch arm.Channel, value int) {
	b.Publish(Event{Kind: UpdateUI, Channel: ch, Value: value})
}
