package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/career-clicker/internal/catalog"
)

func veteran(g *Game) *State {
	return edit(g.NewState(nil), func(n *State) {
		n.Day = 40
		n.Stage = catalog.StageOwner
		n.Resources.Cash = 120000
		n.Resources.Reputation = 100
		n.Tools.Owned = []string{"work_boots", "laser_level"}
		n.Jobs.Completed = []CompletedJob{
			{ID: "yard_cleanup"},
			{ID: "duplex_frame"},
			{ID: "office_ti"},
		}
	})
}

func TestChartersEarned(t *testing.T) {
	g := newTestGame()
	s := veteran(g)

	assert.Equal(t, 2, g.LandmarkCount(s))
	// floor(120000/50000 + 100/200 + 2*2)
	assert.Equal(t, 6, g.ChartersEarned(s))

	broke := edit(s, func(n *State) { n.Resources.Cash = -1e6 })
	assert.Equal(t, 0, g.ChartersEarned(broke))
}

func TestCanPrestige(t *testing.T) {
	g := newTestGame()
	s := g.NewState(nil)
	assert.False(t, g.CanPrestige(s))

	assert.True(t, g.CanPrestige(edit(s, func(n *State) { n.Resources.Reputation = PrestigeReputationGate })))
	assert.True(t, g.CanPrestige(edit(s, func(n *State) {
		n.Jobs.Completed = []CompletedJob{{ID: "duplex_frame"}}
	})))
}

func TestPerformPrestige(t *testing.T) {
	g := newTestGame()
	s := veteran(g)

	next := g.PerformPrestige(s, []string{"turns", "build_speed", "bogus"})
	assert.Equal(t, 4, next.Prestige.Charters)
	assert.InDelta(t, 1.0, next.Prestige.PermanentMods.Get("turnsPerDay"), 1e-9)
	assert.InDelta(t, 0.05, next.Prestige.PermanentMods.Get("buildSpeed"), 1e-9)

	assert.Equal(t, 1, next.Day)
	assert.Equal(t, catalog.StageLaborer, next.Stage)
	assert.Equal(t, 100.0, next.Resources.Cash)
	assert.Empty(t, next.Tools.Owned)
	assert.Empty(t, next.Jobs.Completed)
	assert.Equal(t, 9, next.TurnsLeft)
	assert.InDelta(t, 1.05, next.Rates.BuildSpeed, 1e-9)

	// The bonuses survive a second reset and stack.
	again := g.PerformPrestige(edit(next, func(n *State) { n.Resources.Reputation = 90 }), []string{"turns"})
	assert.Equal(t, 3, again.Prestige.Charters)
	assert.InDelta(t, 2.0, again.Prestige.PermanentMods.Get("turnsPerDay"), 1e-9)
	assert.Equal(t, 10, again.TurnsLeft)
}

func TestPerformPrestigeSpendsOnlyBanked(t *testing.T) {
	g := newTestGame()
	s := edit(g.NewState(nil), func(n *State) { n.Resources.Reputation = 90 })
	require.Equal(t, 0, g.ChartersEarned(s))

	next := g.PerformPrestige(s, []string{"turns", "crew_cap"})
	assert.Equal(t, 0, next.Prestige.Charters)
	assert.Empty(t, next.Prestige.PermanentMods)
	assert.Equal(t, 8, next.TurnsLeft)
}

func TestPerformPrestigeRequiresEligibility(t *testing.T) {
	g := newTestGame()
	s := g.NewState(nil)
	assert.Same(t, s, g.PerformPrestige(s, []string{"turns"}))
}

func TestPrestigeSummary(t *testing.T) {
	g := newTestGame()
	s := edit(veteran(g), func(n *State) { n.Prestige.Charters = 3 })

	sum := g.PrestigeSummary(s)
	assert.True(t, sum.Available)
	assert.Equal(t, 2, sum.Landmarks)
	assert.Equal(t, 6, sum.Earned)
	assert.Equal(t, 9, sum.Banked)
	assert.Len(t, sum.Choices, 6)
}
