package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talgya/career-clicker/internal/catalog"
	"github.com/talgya/career-clicker/internal/engine"
)

// DefaultSaveKey is the slot snapshots are written to.
const DefaultSaveKey = "constructor-career-clicker-save"

// ErrInvalidSaveData is returned for snapshots that cannot be parsed.
var ErrInvalidSaveData = errors.New("invalid save data")

// HistoryRecorder is implemented by stores that keep a log of saves.
type HistoryRecorder interface {
	RecordSave(ctx context.Context, r SaveRecord) error
}

// Saves reads and writes snapshots of one slot and reconciles loaded data
// with the current schema.
type Saves struct {
	Store Store
	Key   string
	Game  *engine.Game

	now func() time.Time
}

// NewSaves creates a reconciler over store. An empty key uses DefaultSaveKey.
func NewSaves(store Store, key string, g *engine.Game) *Saves {
	if key == "" {
		key = DefaultSaveKey
	}
	return &Saves{Store: store, Key: key, Game: g, now: time.Now}
}

// Merge builds a schema-complete state from a raw snapshot. Loaded values are
// overlaid section by section onto a fresh default state, so fields missing
// from older snapshots keep their defaults.
func (sv *Saves) Merge(raw []byte) (*engine.State, error) {
	var probe struct {
		Prestige struct {
			PermanentMods catalog.Bundle `json:"permanentMods"`
		} `json:"prestige"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSaveData, err)
	}

	s := sv.Game.NewState(probe.Prestige.PermanentMods)
	defaults := s.Clone()

	// encoding/json decodes slice elements into the existing ones, so struct
	// slices start empty and get their defaults back only when absent.
	s.Fleet.Vehicles = nil
	s.Crew.Members = nil
	s.Jobs.Active = nil
	s.Jobs.Completed = nil
	s.Ledger = nil
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSaveData, err)
	}
	s.Fleet.Vehicles = orDefault(s.Fleet.Vehicles, defaults.Fleet.Vehicles)
	s.Crew.Members = orDefault(s.Crew.Members, defaults.Crew.Members)
	s.Jobs.Active = orDefault(s.Jobs.Active, defaults.Jobs.Active)
	s.Jobs.Completed = orDefault(s.Jobs.Completed, defaults.Jobs.Completed)
	s.Ledger = engine.TrimLedger(orDefault(s.Ledger, defaults.Ledger))

	sv.normalize(s, defaults)
	sv.repairQueue(s)
	return sv.Game.Recompute(s), nil
}

// orDefault returns loaded unless the snapshot left it out (or null).
func orDefault[T any](loaded, def []T) []T {
	if loaded == nil {
		return def
	}
	return loaded
}

func (sv *Saves) normalize(s, defaults *engine.State) {
	c := sv.Game.Content
	if c.StageIndex(s.Stage) < 0 {
		s.Stage = catalog.StageLaborer
	}

	s.Player.Name = strings.TrimSpace(s.Player.Name)
	if s.Player.Name == "" {
		s.Player.Name = engine.DefaultPlayerName
	}
	if !c.IsCrewSkill(s.Player.Skill) {
		s.Player.Skill = c.DefaultCrewSkill()
	}

	for i := range s.Crew.Members {
		m := &s.Crew.Members[i]
		if m.ID == "" {
			m.ID = fmt.Sprintf("crew-%d", i+1)
		}
		if strings.TrimSpace(m.Name) == "" {
			m.Name = fmt.Sprintf("Crew-%d", i+1)
		}
		if !c.IsCrewSkill(m.Skill) {
			m.Skill = c.DefaultCrewSkill()
		}
	}

	for id, v := range s.Policies {
		p, ok := c.Policy(id)
		if ok && p.Allows(v) {
			continue
		}
		if def, ok := defaults.Policies[id]; ok {
			s.Policies[id] = def
		} else {
			delete(s.Policies, id)
		}
	}
}

// repairQueue adds every job unlocked at the current stage that is neither
// queued nor active. It never removes ids.
func (sv *Saves) repairQueue(s *engine.State) {
	for _, job := range sv.Game.Content.JobsForStage(s.Stage) {
		queued := false
		for _, id := range s.Jobs.Queue {
			if id == job.ID {
				queued = true
				break
			}
		}
		for _, a := range s.Jobs.Active {
			if a.ID == job.ID {
				queued = true
				break
			}
		}
		if !queued {
			s.Jobs.Queue = append(s.Jobs.Queue, job.ID)
		}
	}
}

// Load returns the stored state, or a fresh one when nothing usable is
// stored. It never fails.
func (sv *Saves) Load(ctx context.Context) *engine.State {
	raw, ok, err := sv.Store.Get(ctx, sv.Key)
	if err != nil {
		slog.Warn("save unavailable, starting fresh", "key", sv.Key, "error", err)
		return sv.Game.NewState(nil)
	}
	if !ok || len(raw) == 0 {
		slog.Info("no save found, starting fresh", "key", sv.Key)
		return sv.Game.NewState(nil)
	}
	s, err := sv.Merge(raw)
	if err != nil {
		slog.Warn("failed to parse save, starting fresh", "key", sv.Key, "error", err)
		return sv.Game.NewState(nil)
	}
	slog.Info("save loaded", "key", sv.Key, "day", s.Day, "stage", s.Stage)
	return s
}

// Save writes s with lastSave stamped at write time. s itself is not
// modified.
func (sv *Saves) Save(ctx context.Context, s *engine.State) error {
	snapshot := s.Clone()
	snapshot.LastSave = sv.now().UnixMilli()
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	if err := sv.Store.Set(ctx, sv.Key, raw); err != nil {
		return fmt.Errorf("write save: %w", err)
	}

	if h, ok := sv.Store.(HistoryRecorder); ok {
		err := h.RecordSave(ctx, SaveRecord{
			Slot:       sv.Key,
			SavedAt:    snapshot.LastSave,
			Day:        snapshot.Day,
			Stage:      string(snapshot.Stage),
			Cash:       snapshot.Resources.Cash,
			Reputation: snapshot.Resources.Reputation,
			Charters:   snapshot.Prestige.Charters,
		})
		if err != nil {
			slog.Warn("save history not recorded", "error", err)
		}
	}
	return nil
}

// Export renders s as indented JSON for hand editing.
func (sv *Saves) Export(s *engine.State) ([]byte, error) {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return raw, nil
}

// Import parses an exported snapshot through the same merge path as Load.
// Malformed input fails with ErrInvalidSaveData.
func (sv *Saves) Import(raw []byte) (*engine.State, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidSaveData)
	}
	return sv.Merge(raw)
}

// Clear removes the stored snapshot.
func (sv *Saves) Clear(ctx context.Context) error {
	if err := sv.Store.Remove(ctx, sv.Key); err != nil {
		return fmt.Errorf("clear save: %w", err)
	}
	return nil
}
