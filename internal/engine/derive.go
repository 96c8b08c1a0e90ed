// Effect aggregation: rates and modifiers are folded from a fixed baseline
// over every active effect source, so recomputing is always idempotent.
package engine

import (
	"math"

	"github.com/talgya/career-clicker/internal/catalog"
)

var baseRates = Rates{
	IncomePerSec: 0,
	BuildSpeed:   1,
	CrewEff:      1,
	WinRate:      0.4,
}

var baseModifiers = Modifiers{
	Materials:   1,
	Fuel:        1,
	MoraleFloor: 0.5,
	MoraleCap:   1.5,
}

const (
	minWinRate        = 0.05
	maxWinRate        = 0.99
	maxTruckCondition = 1.5
)

// derived is the accumulator the effect fold writes into.
type derived struct {
	rates          Rates
	mods           Modifiers
	crewCapacity   int
	truckCapacity  float64
	truckCondition float64
}

// effectSources gathers bundles in fold order: permanent prestige modifiers,
// owned tools, owned upgrades, then the selected effect of each policy.
func (g *Game) effectSources(s *State) []catalog.Bundle {
	var out []catalog.Bundle
	if len(s.Prestige.PermanentMods) > 0 {
		out = append(out, s.Prestige.PermanentMods)
	}
	for _, id := range s.Tools.Owned {
		if t, ok := g.Content.Tool(id); ok && len(t.Effects) > 0 {
			out = append(out, t.Effects)
		}
	}
	for _, id := range s.Upgrades.Owned {
		if u, ok := g.Content.Upgrade(id); ok && len(u.Effects) > 0 {
			out = append(out, u.Effects)
		}
	}
	// Catalog order keeps the fold deterministic regardless of map order.
	for _, p := range g.Content.Policies {
		v, ok := s.Policies[p.ID]
		if !ok {
			continue
		}
		if b, ok := p.Effect(v); ok && len(b) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// Recompute re-derives rates, modifiers and capacities from owned content.
// It returns a new State and never modifies s.
func (g *Game) Recompute(s *State) *State {
	next := s.Clone()
	acc := derived{
		rates:          baseRates,
		mods:           baseModifiers,
		crewCapacity:   next.Crew.BaseCapacity,
		truckCapacity:  next.Truck.BaseCapacity,
		truckCondition: next.Truck.BaseCondition,
	}
	acc.mods.TurnsPerDay = float64(next.Progression.BonusTurns)

	for _, bundle := range g.effectSources(next) {
		for _, e := range bundle {
			acc.apply(e)
		}
	}

	next.Rates = acc.rates
	next.Modifiers = acc.mods
	next.Crew.Capacity = max(acc.crewCapacity, len(next.Crew.Members))
	next.Truck.Capacity = acc.truckCapacity
	next.Truck.Condition = acc.truckCondition
	next.Resources.Morale = clamp(next.Resources.Morale, next.Modifiers.MoraleFloor, next.Modifiers.MoraleCap)
	return next
}

func (d *derived) apply(e catalog.Effect) {
	switch e.Kind {
	case catalog.EffectBuildSpeed:
		d.rates.BuildSpeed = math.Max(0, d.rates.BuildSpeed+e.Value)
	case catalog.EffectCrewEff:
		d.rates.CrewEff = math.Max(0, d.rates.CrewEff+e.Value)
	case catalog.EffectIncomePerSec:
		d.rates.IncomePerSec = math.Max(0, d.rates.IncomePerSec+e.Value)
	case catalog.EffectWinRate:
		d.rates.WinRate = clamp(d.rates.WinRate+e.Value, minWinRate, maxWinRate)
	case catalog.EffectMoraleCap:
		d.mods.MoraleCap += e.Value
	case catalog.EffectMoraleDaily:
		d.mods.MoraleDaily += e.Value
	case catalog.EffectMoraleFloor:
		d.mods.MoraleFloor = math.Max(0, d.mods.MoraleFloor+e.Value)
	case catalog.EffectMaterials:
		d.mods.Materials += e.Value
	case catalog.EffectFuel:
		d.mods.Fuel += e.Value
	case catalog.EffectPermitsPassive:
		d.mods.PermitsPassive += e.Value
	case catalog.EffectConcreteSpeed:
		d.mods.ConcreteSpeed += e.Value
	case catalog.EffectStructureSpeed:
		d.mods.StructureSpeed += e.Value
	case catalog.EffectTurnsPerDay:
		d.mods.TurnsPerDay += e.Value
	case catalog.EffectCrewCap:
		d.crewCapacity += int(math.Round(e.Value))
	case catalog.EffectTruckCapacity:
		d.truckCapacity += e.Value
	case catalog.EffectTruckCondition:
		d.truckCondition = clamp(d.truckCondition+e.Value, 0, maxTruckCondition)
	case catalog.EffectRate:
		d.addRate(e.Field, e.Value)
	default:
		// Unrecognized variants contribute nothing.
	}
}

// addRate is the generic "rates.<field>" merge: plain addition, no clamping.
func (d *derived) addRate(field string, v float64) {
	switch field {
	case "incomePerSec":
		d.rates.IncomePerSec += v
	case "buildSpeed":
		d.rates.BuildSpeed += v
	case "crewEff":
		d.rates.CrewEff += v
	case "winRate":
		d.rates.WinRate += v
	default:
		if d.rates.Extra == nil {
			d.rates.Extra = make(map[string]float64)
		}
		d.rates.Extra[field] += v
	}
}
