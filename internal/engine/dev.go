// Developer shortcuts. Each one is a no-op unless Settings.DevMode is on.
package engine

const (
	devCashGrant  = 1000
	devFastTurns  = 5
	devFinishStep = 0 // no simulated time passes when forcing a job complete
)

// devMaterialGrant is what AddMaterials hands out.
var devMaterialGrant = map[string]float64{
	"lumber":   10,
	"steel":    5,
	"concrete": 5,
	"fuel":     20,
}

// AddCash grants cash.
func (g *Game) AddCash(s *State) *State {
	if !s.Settings.DevMode {
		return s
	}
	next := s.Clone()
	next.Resources.Cash += devCashGrant
	return next
}

// AddMaterials grants a fixed bundle of materials.
func (g *Game) AddMaterials(s *State) *State {
	if !s.Settings.DevMode {
		return s
	}
	next := s.Clone()
	for name, qty := range devMaterialGrant {
		next.Resources.add(name, qty)
	}
	return next
}

// FastTurn ends up to five turns, stopping when the day runs out.
func (g *Game) FastTurn(s *State) *State {
	if !s.Settings.DevMode {
		return s
	}
	next := s
	for i := 0; i < devFastTurns && next.TurnsLeft > 0; i++ {
		next = g.EndTurn(next)
	}
	return next
}

// FinishJob completes the first active job through the tick engine, so it
// pays out and releases crew the same way as normal progress.
func (g *Game) FinishJob(s *State) *State {
	if !s.Settings.DevMode || len(s.Jobs.Active) == 0 {
		return s
	}
	next := s.Clone()
	job := &next.Jobs.Active[0]
	required := job.TurnsRequired
	if required <= 0 {
		required = max(job.DurationH, 1)
	}
	job.TurnsRequired = required
	job.Progress = required
	return g.Recompute(g.AdvanceTick(next, devFinishStep, ""))
}
