package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator() *Coordinator {
	c := NewCoordinator()
	c.PollInterval = 5 * time.Millisecond
	return c
}

func mustStart(t *testing.T, c *Coordinator, f Flag) Claim {
	t.Helper()
	cl, ok := c.TryStart(f)
	require.True(t, ok)
	return cl
}

func TestCoordinator_TryStart(t *testing.T) {
	c := newTestCoordinator()

	mustStart(t, c, Tracking)
	_, ok := c.TryStart(Tracking)
	assert.False(t, ok)
	mustStart(t, c, Playback)

	c.Clear(Tracking)
	assert.False(t, c.Active(Tracking))
	assert.True(t, c.Active(Playback))
	mustStart(t, c, Tracking)

	c.ClearAll()
	assert.False(t, c.Active(Tracking))
	assert.False(t, c.Active(Playback))
}

func TestCoordinator_TryStartExclude(t *testing.T) {
	c := newTestCoordinator()
	pb := mustStart(t, c, Playback)

	_, ok := c.TryStart(Tracking, Playback)
	assert.False(t, ok)
	assert.False(t, c.Active(Tracking))

	c.Release(pb)
	tr, ok := c.TryStart(Tracking, Playback)
	require.True(t, ok)
	assert.Equal(t, Tracking, tr.Flag())

	_, ok = c.TryStart(Playback, Tracking)
	assert.False(t, ok)
}

func TestCoordinator_TryStartExclusive(t *testing.T) {
	c := newTestCoordinator()

	var wg sync.WaitGroup
	var mx sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.TryStart(Playback); ok {
				mx.Lock()
				wins++
				mx.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestCoordinator_StaleClaim(t *testing.T) {
	c := newTestCoordinator()
	first := mustStart(t, c, Tracking)
	c.Clear(Tracking)
	second := mustStart(t, c, Tracking)

	assert.False(t, c.Held(first))
	assert.True(t, c.Held(second))
	assert.False(t, c.Wait(context.Background(), first, 20*time.Millisecond))

	// releasing the dead claim leaves the new holder alone
	c.Release(first)
	assert.True(t, c.Active(Tracking))
	assert.True(t, c.Held(second))

	c.Release(second)
	assert.False(t, c.Active(Tracking))
}

func TestCoordinator_WaitCompletes(t *testing.T) {
	c := newTestCoordinator()
	cl := mustStart(t, c, Tracking)

	start := time.Now()
	assert.True(t, c.Wait(context.Background(), cl, 30*time.Millisecond))
	assert.True(t, time.Since(start) >= 30*time.Millisecond)
}

func TestCoordinator_WaitInactive(t *testing.T) {
	c := newTestCoordinator()
	assert.False(t, c.Wait(context.Background(), Claim{flag: Playback}, time.Second))
}

func TestCoordinator_WaitCancelled(t *testing.T) {
	c := newTestCoordinator()
	cl := mustStart(t, c, Tracking)

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Clear(Tracking)
	}()

	start := time.Now()
	assert.False(t, c.Wait(context.Background(), cl, 5*time.Second))
	assert.True(t, time.Since(start) < time.Second)
}

func TestCoordinator_WaitIgnoresOtherFlag(t *testing.T) {
	c := newTestCoordinator()
	cl := mustStart(t, c, Tracking)
	mustStart(t, c, Playback)
	c.Clear(Playback)

	assert.True(t, c.Wait(context.Background(), cl, 20*time.Millisecond))
}

func TestCoordinator_WaitContext(t *testing.T) {
	c := newTestCoordinator()
	cl := mustStart(t, c, Playback)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, c.Wait(ctx, cl, 5*time.Second))
	assert.True(t, c.Active(Playback))
}
