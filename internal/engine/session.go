package engine

import (
	"log/slog"
	"sync"
)

// Session owns the current snapshot and serializes every transition against
// it. Ticks and player intents both go through Update, so neither ever
// observes the other's intermediate state.
type Session struct {
	game *Game

	mu      sync.Mutex
	state   *State
	changes uint64
}

// NewSession starts a session at s, or at a fresh state when s is nil.
func NewSession(g *Game, s *State) *Session {
	if s == nil {
		s = g.NewState(nil)
	}
	return &Session{game: g, state: s}
}

// Game returns the rules the session applies.
func (s *Session) Game() *Game {
	return s.game
}

// Snapshot returns the current state. Callers must not modify it.
func (s *Session) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Changes counts the transitions that produced a new state.
func (s *Session) Changes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes
}

// Update applies fn to the current state and publishes the result. It
// reports whether fn returned a different snapshot.
func (s *Session) Update(fn func(*State) *State) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.state)
	if next == nil || next == s.state {
		return s.state, false
	}
	s.state = next
	s.changes++
	return next, true
}

// Dispatch applies a player intent. Any change is followed by a recompute of
// derived values.
func (s *Session) Dispatch(in Intent) (*State, bool, error) {
	var err error
	next, changed := s.Update(func(cur *State) *State {
		var out *State
		out, err = s.game.Apply(cur, in)
		if err != nil || out == cur {
			return cur
		}
		return s.game.Recompute(out)
	})
	if err != nil {
		return next, false, err
	}
	slog.Debug("intent applied", "type", in.Type, "id", in.ID, "changed", changed)
	return next, changed, nil
}

// Replace swaps in an externally built state, such as an import or reset.
func (s *Session) Replace(st *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.changes++
}
