// Tick scheduler: drives the tick engine on a fixed cadence and autosaves.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StateChannel is the serialized entry point the scheduler reads from and
// writes through. Session implements it.
type StateChannel interface {
	Snapshot() *State
	Update(fn func(*State) *State) (*State, bool)
}

// SaveFunc persists a snapshot. Failures are logged by the scheduler and
// never stop the loop.
type SaveFunc func(ctx context.Context, s *State) error

// Scheduler advances the simulation every Interval by TickSeconds of
// simulated time, scaled by Speed.
type Scheduler struct {
	Game        *Game
	Channel     StateChannel
	Save        SaveFunc
	Interval    time.Duration // wall time between ticks (default 100ms)
	TickSeconds float64       // simulated seconds per tick (default 0.1)
	Autosave    time.Duration // minimum wall time between saves (default 5s)

	now func() time.Time

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	speed    float64 // 1.0 = normal, 0 = paused
	ticks    uint64
	lastSave time.Time
}

// NewScheduler creates a stopped scheduler with default timings.
func NewScheduler(g *Game, ch StateChannel, save SaveFunc) *Scheduler {
	return &Scheduler{
		Game:        g,
		Channel:     ch,
		Save:        save,
		Interval:    100 * time.Millisecond,
		TickSeconds: 0.1,
		Autosave:    5 * time.Second,
		now:         time.Now,
		speed:       1,
	}
}

// Start launches the tick loop. Starting a running scheduler is a no-op.
// The loop also ends when ctx is cancelled.
func (sc *Scheduler) Start(ctx context.Context) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel
	sc.done = make(chan struct{})
	sc.lastSave = sc.now()

	slog.Info("tick scheduler started", "interval", sc.Interval, "tick_seconds", sc.TickSeconds, "ticks", sc.ticks)
	go sc.run(ctx, cancel, sc.done)
}

// Stop halts the loop and waits for it to exit. Stopping a stopped
// scheduler is a no-op.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	cancel, done := sc.cancel, sc.done
	sc.cancel, sc.done = nil, nil
	sc.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("tick scheduler stopped", "ticks", sc.Ticks())
}

// Running reports whether the loop is active.
func (sc *Scheduler) Running() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cancel != nil
}

// Ticks returns the number of ticks stepped so far.
func (sc *Scheduler) Ticks() uint64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.ticks
}

// SetSpeed scales simulated time per tick. Zero pauses; negative values are
// treated as zero.
func (sc *Scheduler) SetSpeed(speed float64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.speed = max(0, speed)
}

// Speed returns the current multiplier.
func (sc *Scheduler) Speed() float64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.speed
}

func (sc *Scheduler) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer sc.release(cancel, done)
	interval := sc.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.Step(ctx)
		}
	}
}

// release clears the running state when the loop ends on its own, which
// happens when the parent context is cancelled. After Stop the fields
// already belong to nobody or to a newer run and are left alone.
func (sc *Scheduler) release(cancel context.CancelFunc, done chan struct{}) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.done != done {
		return
	}
	cancel()
	sc.cancel, sc.done = nil, nil
	slog.Info("tick scheduler stopped by context", "ticks", sc.ticks)
}

// Step advances one tick and autosaves when the autosave interval has
// elapsed. It is safe to call directly while the loop is stopped.
func (sc *Scheduler) Step(ctx context.Context) {
	sc.mu.Lock()
	speed := sc.speed
	sc.mu.Unlock()

	if speed > 0 {
		dt := sc.TickSeconds * speed
		sc.Channel.Update(func(s *State) *State {
			return sc.Game.AdvanceTick(s, dt, "")
		})
	}

	sc.mu.Lock()
	sc.ticks++
	now := sc.now()
	due := sc.Save != nil && now.Sub(sc.lastSave) >= sc.Autosave
	if due {
		sc.lastSave = now
	}
	sc.mu.Unlock()

	if due {
		snapshot := sc.Channel.Snapshot()
		if err := sc.Save(ctx, snapshot); err != nil {
			slog.Warn("autosave failed", "error", err)
			return
		}
		slog.Debug("autosave complete", "day", snapshot.Day)
	}
}
