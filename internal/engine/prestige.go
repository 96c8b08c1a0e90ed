// Prestige resets: charter rewards and permanent bonuses carried across runs.
package engine

import (
	"math"

	"github.com/talgya/career-clicker/internal/catalog"
)

const (
	cashPerCharter       = 50000
	reputationPerCharter = 200
	chartersPerLandmark  = 2

	// PrestigeReputationGate allows a reset without any landmark completed.
	PrestigeReputationGate = 90
)

// PrestigeSummary is the reward preview shown before a reset.
type PrestigeSummary struct {
	Available bool                     `json:"available"`
	Landmarks int                      `json:"landmarks"`
	Earned    int                      `json:"earned"`
	Banked    int                      `json:"banked"`
	Choices   []catalog.PrestigeChoice `json:"choices"`
}

// LandmarkCount counts completed jobs that are landmarks.
func (g *Game) LandmarkCount(s *State) int {
	n := 0
	for _, c := range s.Jobs.Completed {
		if g.Content.IsLandmark(c.ID) {
			n++
		}
	}
	return n
}

// ChartersEarned is the reward for resetting now.
func (g *Game) ChartersEarned(s *State) int {
	v := s.Resources.Cash/cashPerCharter +
		s.Resources.Reputation/reputationPerCharter +
		float64(g.LandmarkCount(s)*chartersPerLandmark)
	return max(0, int(math.Floor(v)))
}

// CanPrestige reports whether a reset is allowed.
func (g *Game) CanPrestige(s *State) bool {
	return g.LandmarkCount(s) > 0 || s.Resources.Reputation >= PrestigeReputationGate
}

// PrestigeChoices lists the permanent bonuses a reset can buy.
func (g *Game) PrestigeChoices() []catalog.PrestigeChoice {
	return g.Content.PrestigeChoices
}

// PrestigeSummary previews a reset of s.
func (g *Game) PrestigeSummary(s *State) PrestigeSummary {
	earned := g.ChartersEarned(s)
	return PrestigeSummary{
		Available: g.CanPrestige(s),
		Landmarks: g.LandmarkCount(s),
		Earned:    earned,
		Banked:    s.Prestige.Charters + earned,
		Choices:   g.PrestigeChoices(),
	}
}

// PerformPrestige banks earned charters, spends one per selected choice while
// any remain, and starts a fresh run carrying only the prestige record.
// Unknown choice ids are skipped without cost.
func (g *Game) PerformPrestige(s *State, selected []string) *State {
	if !g.CanPrestige(s) {
		return s
	}
	banked := s.Prestige.Charters + g.ChartersEarned(s)
	mods := s.Prestige.PermanentMods.Clone()
	for _, id := range selected {
		if banked <= 0 {
			break
		}
		choice, ok := g.Content.PrestigeChoice(id)
		if !ok {
			continue
		}
		mods = mods.Merge(choice.Effects)
		banked--
	}

	next := g.NewState(mods)
	next.Prestige = Prestige{Charters: banked, PermanentMods: mods}
	return next
}
