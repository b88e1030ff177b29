package motion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/actuator/actuatortest"
	"github.com/bluefox/agrobot/arm"
	"github.com/bluefox/agrobot/event"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestRecorder(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	r := NewRecorder()
	r.now = c.now

	// not recording
	r.OnManualMove(arm.Base, 10)
	assert.Empty(t, r.Steps())

	r.Start()
	assert.True(t, r.Recording())
	c.t = c.t.Add(1500 * time.Millisecond)
	r.OnManualMove(arm.Base, 100)
	c.t = c.t.Add(200 * time.Millisecond)
	r.OnManualMove(arm.Pump, 1)
	c.t = c.t.Add(300 * time.Millisecond)
	r.OnManualMove(arm.Shoulder, 80)

	assert.Equal(t, 2, r.Stop())
	assert.False(t, r.Recording())
	assert.Equal(t, []Step{
		{Channel: arm.Base, Angle: 100, Delay: 1500 * time.Millisecond},
		{Channel: arm.Shoulder, Angle: 80, Delay: 500 * time.Millisecond},
	}, r.Steps())

	r.OnManualMove(arm.Elbow, 10)
	assert.Len(t, r.Steps(), 2)

	// a new recording replaces the old one
	r.Start()
	r.OnManualMove(arm.Elbow, 45)
	assert.Equal(t, 1, r.Stop())
	assert.Equal(t, arm.Elbow, r.Steps()[0].Channel)
}

func TestRecorder_Load(t *testing.T) {
	r := NewRecorder()
	steps := []Step{{Channel: arm.Gripper, Angle: 120, Delay: time.Second}}
	r.Load(steps)
	steps[0].Angle = 0
	assert.Equal(t, 120, r.Steps()[0].Angle)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("loop")
	require.NoError(t, err)
	assert.Equal(t, Loop, m)
	m, err = ParseMode("once")
	require.NoError(t, err)
	assert.Equal(t, Once, m)
	_, err = ParseMode("twice")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func newPlayer(steps ...Step) (*Player, *actuatortest.Link, *event.Recorder) {
	link := actuatortest.New()
	coord := activity.NewCoordinator()
	coord.PollInterval = time.Millisecond
	r := NewRecorder()
	r.Load(steps)
	ev := &event.Recorder{}
	return &Player{
		Arm:      &actuator.Arm{Link: link, Pose: arm.NewPose()},
		Coord:    coord,
		Recorder: r,
		Events:   ev,
		Timings:  Timings{Settle: time.Millisecond, RestPause: time.Millisecond},
	}, link, ev
}

func waitClosed(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestPlayer_Once(t *testing.T) {
	p, link, ev := newPlayer(
		Step{Channel: arm.Base, Angle: 100},
		Step{Channel: arm.Shoulder, Angle: 80, Delay: time.Millisecond},
	)

	done, err := p.Start(context.Background(), Once)
	require.NoError(t, err)
	waitClosed(t, done)

	assert.Equal(t, []actuatortest.Command{
		{Channel: arm.Base, Value: 100},
		{Channel: arm.Base, Value: 100},
		{Channel: arm.Shoulder, Value: 80},
		{Channel: arm.Base, Value: 90},
		{Channel: arm.Shoulder, Value: 90},
		{Channel: arm.Elbow, Value: 90},
		{Channel: arm.Gripper, Value: 140},
	}, link.Commands())
	assert.Equal(t, []string{"Stopped."}, ev.Statuses())
	assert.False(t, p.Running())
}

func TestPlayer_LoopUntilStop(t *testing.T) {
	p, link, _ := newPlayer(Step{Channel: arm.Elbow, Angle: 30, Delay: time.Millisecond})

	done, err := p.Start(context.Background(), Loop)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(link.Sent(arm.Elbow)) >= 5 }, 5*time.Second, time.Millisecond)
	assert.True(t, p.Running())

	p.Stop()
	waitClosed(t, done)

	assert.False(t, p.Running())
	assert.Contains(t, link.Sent(arm.Pump), 0)
}

func TestPlayer_Rejects(t *testing.T) {
	p, _, _ := newPlayer()
	_, err := p.Start(context.Background(), Once)
	assert.ErrorIs(t, err, ErrEmptySequence)
	assert.False(t, p.Running())

	p.Recorder.Load([]Step{{Channel: arm.Base, Angle: 10}})
	p.Timings.Settle = time.Minute
	done, err := p.Start(context.Background(), Loop)
	require.NoError(t, err)

	_, err = p.Start(context.Background(), Once)
	assert.ErrorIs(t, err, ErrPlaybackRunning)

	p.Stop()
	waitClosed(t, done)
}

func TestPlayer_StopIdle(t *testing.T) {
	p, link, ev := newPlayer()
	p.Stop()
	assert.Equal(t, []actuatortest.Command{{Channel: arm.Pump, Value: 0}}, link.Commands())
	assert.Equal(t, []string{"Stopping Immediately (Pump OFF)..."}, ev.Statuses())
}

func TestPlayer_StopAbortsTracking(t *testing.T) {
	p, _, _ := newPlayer()
	_, ok := p.Coord.TryStart(activity.Tracking)
	require.True(t, ok)
	p.Stop()
	assert.False(t, p.Coord.Active(activity.Tracking))
}

func TestPlayer_Context(t *testing.T) {
	p, _, ev := newPlayer(Step{Channel: arm.Base, Angle: 10})
	p.Timings.Settle = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done, err := p.Start(ctx, Once)
	require.NoError(t, err)
	cancel()
	waitClosed(t, done)

	assert.False(t, p.Running())
	assert.Empty(t, ev.Statuses())
}

func TestPlayer_RestartAfterStop(t *testing.T) {
	p, link, _ := newPlayer(Step{Channel: arm.Base, Angle: 10})
	p.Coord.PollInterval = 200 * time.Millisecond
	p.Timings.Settle = time.Minute

	first, err := p.Start(context.Background(), Once)
	require.NoError(t, err)
	p.Stop()

	// the stopped goroutine is still unwinding
	_, err = p.Start(context.Background(), Once)
	assert.ErrorIs(t, err, ErrPlaybackRunning)
	waitClosed(t, first)

	p.Coord.PollInterval = time.Millisecond
	p.Timings = Timings{Settle: time.Millisecond, RestPause: time.Millisecond}
	link.Reset()
	second, err := p.Start(context.Background(), Once)
	require.NoError(t, err)
	waitClosed(t, second)

	assert.Equal(t, []int{10, 10, 90}, link.Sent(arm.Base))
	assert.False(t, p.Running())
}

func TestPlayer_RejectsDuringHarvest(t *testing.T) {
	p, link, _ := newPlayer(Step{Channel: arm.Base, Angle: 10})
	_, ok := p.Coord.TryStart(activity.Tracking)
	require.True(t, ok)

	_, err := p.Start(context.Background(), Once)
	assert.ErrorIs(t, err, ErrHarvestRunning)
	assert.False(t, p.Running())
	assert.Empty(t, link.Commands())
}

type sendTime struct {
	ch arm.Channel
	at time.Time
}

// timedLink records when each command was sent.
type timedLink struct {
	*actuatortest.Link

	mx    sync.Mutex
	sends []sendTime
}

func (l *timedLink) Send(ch arm.Channel, angle int) {
	l.mx.Lock()
	l.sends = append(l.sends, sendTime{ch: ch, at: time.Now()})
	l.mx.Unlock()
	l.Link.Send(ch, angle)
}

func (l *timedLink) first(ch arm.Channel, after int) (int, time.Time) {
	l.mx.Lock()
	defer l.mx.Unlock()
	for i := after; i < len(l.sends); i++ {
		if l.sends[i].ch == ch {
			return i, l.sends[i].at
		}
	}
	return -1, time.Time{}
}

func TestPlayer_KeepsRecordedDelays(t *testing.T) {
	p, _, _ := newPlayer(
		Step{Channel: arm.Base, Angle: 10},
		Step{Channel: arm.Shoulder, Angle: 20, Delay: 100 * time.Millisecond},
		Step{Channel: arm.Elbow, Angle: 30, Delay: 50 * time.Millisecond},
	)
	link := &timedLink{Link: actuatortest.New()}
	p.Arm.Link = link

	done, err := p.Start(context.Background(), Once)
	require.NoError(t, err)
	waitClosed(t, done)

	// the positioning move comes first, the pass starts with the second Base send
	i, _ := link.first(arm.Base, 0)
	require.Equal(t, 0, i)
	i, base := link.first(arm.Base, 1)
	require.True(t, i > 0)
	i, shoulder := link.first(arm.Shoulder, i)
	require.True(t, i > 0)
	i, elbow := link.first(arm.Elbow, i)
	require.True(t, i > 0)

	assert.GreaterOrEqual(t, shoulder.Sub(base), 100*time.Millisecond)
	assert.Less(t, shoulder.Sub(base), 250*time.Millisecond)
	assert.GreaterOrEqual(t, elbow.Sub(shoulder), 50*time.Millisecond)
	assert.Less(t, elbow.Sub(shoulder), 200*time.Millisecond)
}
