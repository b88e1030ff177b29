// Package actuatortest provides an in-memory actuator.Link for tests.
package actuatortest

import (
	"context"
	"sync"

	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/arm"
)

// Command is one framed command received by the fake.
type Command struct {
	Channel arm.Channel
	Value   int
}

// Link records everything sent to it and answers distance queries from a script.
type Link struct {
	mu        sync.Mutex
	commands  []Command
	raw       []byte
	distances []int
	queries   int
}

var _ actuator.Link = &Link{}

// New returns a Link that answers successive distance queries with distances,
// then with actuator.NoDistance.
func New(distances ...int) *Link {
	return &Link{distances: distances}
}

func (l *Link) Send(ch arm.Channel, angle int) {
	l.mu.Lock()
	l.commands = append(l.commands, Command{Channel: ch, Value: angle})
	l.mu.Unlock()
}

func (l *Link) QueryDistance(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries++
	if len(l.distances) == 0 {
		return actuator.NoDistance
	}
	d := l.distances[0]
	l.distances = l.distances[1:]
	return d
}

func (l *Link) RequestDiagnosticPing() {
	l.Send(arm.DiagnosticPing, 0)
}

func (l *Link) WriteByte(b byte) error {
	l.mu.Lock()
	l.raw = append(l.raw, b)
	l.mu.Unlock()
	return nil
}

// Commands returns a copy of the framed commands in order.
func (l *Link) Commands() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Command(nil), l.commands...)
}

// Sent returns the values sent on ch in order.
func (l *Link) Sent(ch arm.Channel) []int {
	var res []int
	for _, c := range l.Commands() {
		if c.Channel == ch {
			res = append(res, c.Value)
		}
	}
	return res
}

// Raw returns the unframed bytes written so far.
func (l *Link) Raw() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.raw...)
}

// Queries returns how many distance queries were made.
func (l *Link) Queries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queries
}

// Reset forgets recorded commands and bytes.
func (l *Link) Reset() {
	l.mu.Lock()
	l.commands = nil
	l.raw = nil
	l.mu.Unlock()
}
