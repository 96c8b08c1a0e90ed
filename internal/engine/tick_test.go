package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerStartStopIdempotent(t *testing.T) {
	g := newTestGame()
	sess := NewSession(g, g.TakeGig(booted(t, g), "yard_cleanup"))
	sc := NewScheduler(g, sess, nil)
	sc.Interval = time.Millisecond
	sc.TickSeconds = 1

	sc.Stop()
	assert.False(t, sc.Running())

	ctx := context.Background()
	sc.Start(ctx)
	sc.Start(ctx)
	assert.True(t, sc.Running())

	require.Eventually(t, func() bool { return sc.Ticks() >= 3 }, time.Second, time.Millisecond)
	sc.Stop()
	sc.Stop()
	assert.False(t, sc.Running())

	progress := sess.Snapshot().Jobs.Active[0].Progress
	assert.Greater(t, progress, 0.0)

	// Restart after stop resumes ticking.
	ticks := sc.Ticks()
	sc.Start(ctx)
	require.Eventually(t, func() bool { return sc.Ticks() > ticks }, time.Second, time.Millisecond)
	sc.Stop()
}

func TestSchedulerStopsWithContext(t *testing.T) {
	g := newTestGame()
	sc := NewScheduler(g, NewSession(g, nil), nil)
	sc.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	sc.Start(ctx)
	cancel()
	sc.Stop()
	assert.False(t, sc.Running())
}

func TestSchedulerRestartsAfterContextCancel(t *testing.T) {
	g := newTestGame()
	sc := NewScheduler(g, NewSession(g, nil), nil)
	sc.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	sc.Start(ctx)
	cancel()
	require.Eventually(t, func() bool { return !sc.Running() }, time.Second, time.Millisecond)

	ticks := sc.Ticks()
	sc.Start(context.Background())
	assert.True(t, sc.Running())
	require.Eventually(t, func() bool { return sc.Ticks() > ticks }, time.Second, time.Millisecond)
	sc.Stop()
	sc.Stop()
	assert.False(t, sc.Running())
}

func TestSchedulerStepAutosave(t *testing.T) {
	g := newTestGame()
	sess := NewSession(g, nil)

	var saves atomic.Int32
	sc := NewScheduler(g, sess, func(ctx context.Context, s *State) error {
		saves.Add(1)
		return nil
	})
	now := time.Unix(1_700_000_000, 0)
	sc.now = func() time.Time { return now }
	sc.Autosave = 5 * time.Second

	ctx := context.Background()
	sc.Step(ctx)
	assert.Equal(t, int32(1), saves.Load())

	now = now.Add(time.Second)
	sc.Step(ctx)
	assert.Equal(t, int32(1), saves.Load())

	now = now.Add(5 * time.Second)
	sc.Step(ctx)
	assert.Equal(t, int32(2), saves.Load())
	assert.Equal(t, uint64(3), sc.Ticks())
}

func TestSchedulerSaveFailureDoesNotStopTicks(t *testing.T) {
	g := newTestGame()
	s := g.Recompute(edit(g.NewState(nil), func(n *State) {
		n.Upgrades.Owned = []string{"maintenance_contract"}
	}))
	sess := NewSession(g, s)
	sc := NewScheduler(g, sess, func(ctx context.Context, s *State) error {
		return errors.New("disk full")
	})
	sc.Autosave = 0
	sc.TickSeconds = 10

	sc.Step(context.Background())
	sc.Step(context.Background())
	assert.InDelta(t, s.Resources.Cash+1, sess.Snapshot().Resources.Cash, 1e-9)
}

func TestSchedulerPaused(t *testing.T) {
	g := newTestGame()
	sess := NewSession(g, nil)
	sc := NewScheduler(g, sess, nil)
	sc.SetSpeed(-1)
	assert.Equal(t, 0.0, sc.Speed())

	before := sess.Snapshot()
	sc.Step(context.Background())
	assert.Same(t, before, sess.Snapshot())
	assert.Equal(t, uint64(1), sc.Ticks())

	sc.SetSpeed(2)
	sc.Step(context.Background())
	assert.NotSame(t, before, sess.Snapshot())
}
