package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/exp/constraints"

	"github.com/talgya/career-clicker/internal/catalog"
)

// Game binds the rules to a content catalog. Its methods are pure
// transitions: they never modify the State they are given.
type Game struct {
	Content *catalog.Catalog

	// NewID generates ledger entry ids.
	NewID func() string
}

// NewGame creates a Game over the given content.
func NewGame(content *catalog.Catalog) *Game {
	return &Game{
		Content: content,
		NewID:   uuid.NewString,
	}
}

// BaseTurns is the daily turn budget for a stage after modifiers.
func (g *Game) BaseTurns(stage catalog.Stage, mods Modifiers) int {
	base := float64(g.Content.StageBaseTurns(stage))
	return max(MinTurnsPerDay, int(roundHalfUp(base+mods.TurnsPerDay)))
}

// recordLedger appends an entry to a state the caller already owns.
func (g *Game) recordLedger(s *State, kind, label, delta string) {
	s.Ledger = append(s.Ledger, LedgerEntry{
		ID:    g.NewID(),
		Type:  kind,
		Label: label,
		Delta: delta,
	})
	s.Ledger = TrimLedger(s.Ledger)
}

// consumeTurn spends one turn on a state the caller already owns.
func consumeTurn(s *State) {
	if s.TurnsLeft <= 0 {
		return
	}
	s.TurnsLeft = max(0, s.TurnsLeft-1)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func money(v float64) string {
	return "$" + humanize.Commaf(v)
}

// materialSummary renders "2 lumber, 4 steel" in display order.
func materialSummary(materials map[string]float64) string {
	var parts []string
	for _, name := range sortedMaterials(materials) {
		if v := materials[name]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", humanize.Ftoa(v), name))
		}
	}
	return strings.Join(parts, ", ")
}

// sortedMaterials orders known materials first, then any others by name.
func sortedMaterials(materials map[string]float64) []string {
	var out, rest []string
	for _, name := range materialNames {
		if _, ok := materials[name]; ok {
			out = append(out, name)
		}
	}
	for name := range materials {
		if !contains(materialNames, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
