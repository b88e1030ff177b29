// Package activity coordinates the long-running background activities
// (harvesting and playback) through shared cancellation flags.
package activity

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval bounds how quickly a cleared flag is noticed.
const DefaultPollInterval = 100 * time.Millisecond

// A Flag names one of the shared activity flags.
type Flag int

const (
	Tracking Flag = iota
	Playback
)

func (f Flag) String() string {
	switch f {
	case Tracking:
		return "tracking"
	case Playback:
		return "playback"
	}
	return "unknown"
}

// A Claim is one activity's hold on a flag. Once the flag is cleared the
// claim is dead for good, even if another activity sets the flag again.
type Claim struct {
	flag Flag
	gen  uint64
}

// Flag returns the flag the claim holds.
func (cl Claim) Flag() Flag { return cl.flag }

// Coordinator holds the tracking-active and playback-active flags.
//
// Activities claim their flag with TryStart and check the claim at every
// wait point. Clearing a flag cancels the activity cooperatively, within one
// poll interval. Stopping playback and returning home clear both flags, so
// either of them also aborts a running harvest.
type Coordinator struct {
	mx sync.Mutex

	// gens counts transitions per flag; odd means set.
	gens [2]uint64

	// PollInterval is the granularity of Wait.
	PollInterval time.Duration
}

// NewCoordinator returns a Coordinator with both flags cleared.
func NewCoordinator() *Coordinator {
	return &Coordinator{PollInterval: DefaultPollInterval}
}

// Active reports whether f is set.
func (c *Coordinator) Active(f Flag) bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.gens[f]%2 == 1
}

// TryStart sets f if it is clear and none of the excluded flags are set.
// The check and the claim happen atomically.
func (c *Coordinator) TryStart(f Flag, exclude ...Flag) (Claim, bool) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.gens[f]%2 == 1 {
		return Claim{}, false
	}
	for _, x := range exclude {
		if c.gens[x]%2 == 1 {
			return Claim{}, false
		}
	}
	c.gens[f]++
	return Claim{flag: f, gen: c.gens[f]}, true
}

// Held reports whether cl still owns its flag.
func (c *Coordinator) Held(cl Claim) bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return cl.gen != 0 && c.gens[cl.flag] == cl.gen
}

// Release clears the flag if cl still holds it. A stale claim never clears
// a flag that was claimed again after it.
func (c *Coordinator) Release(cl Claim) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if cl.gen != 0 && c.gens[cl.flag] == cl.gen {
		c.gens[cl.flag]++
	}
}

// Clear resets f, cancelling the activity that holds it.
func (c *Coordinator) Clear(f Flag) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.gens[f]%2 == 1 {
		c.gens[f]++
	}
}

// ClearAll resets both flags.
func (c *Coordinator) ClearAll() {
	c.Clear(Tracking)
	c.Clear(Playback)
}

// Wait sleeps for d while cl holds its flag. It returns true if the whole
// duration elapsed with the claim held, and false as soon as the flag is
// cleared or ctx is done.
func (c *Coordinator) Wait(ctx context.Context, cl Claim, d time.Duration) bool {
	if !c.Held(cl) {
		return false
	}
	poll := c.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.Held(cl)
		}
		step := poll
		if remaining < step {
			step = remaining
		}
		t := time.NewTimer(step)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if !c.Held(cl) {
			return false
		}
	}
}
