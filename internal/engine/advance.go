// Job progress and passive accrual over elapsed simulated time.
package engine

import "math"

// crewBonusPerMember is the speed bonus each assigned crew member adds.
const crewBonusPerMember = 0.05

// jobSpeed is the progress rate of job in turns per simulated hour.
func jobSpeed(s *State, job JobInstance) float64 {
	speed := s.Rates.BuildSpeed * s.Rates.CrewEff * s.Resources.Morale
	speed *= 1 + crewBonusPerMember*float64(len(job.AssignedCrew))
	if job.Materials["concrete"] > 0 {
		speed *= 1 + s.Modifiers.ConcreteSpeed
	}
	if job.Materials["lumber"]+job.Materials["steel"] > 0 {
		speed *= 1 + s.Modifiers.StructureSpeed
	}
	return math.Max(0, speed)
}

// AdvanceTick moves active jobs forward by dtSeconds of simulated time.
// With an empty target every active job advances and passive income and
// permits accrue. With a target only that job advances; if it is not active
// or makes no progress the call returns s unchanged.
func (g *Game) AdvanceTick(s *State, dtSeconds float64, target string) *State {
	dtHours := dtSeconds / TurnSeconds
	if target != "" {
		i := s.Jobs.active(target)
		if i < 0 || jobSpeed(s, s.Jobs.Active[i])*dtHours <= 0 {
			return s
		}
	}

	next := s.Clone()
	if target == "" {
		if next.Rates.IncomePerSec > 0 {
			next.Resources.Cash += next.Rates.IncomePerSec * dtSeconds
		}
		if next.Modifiers.PermitsPassive > 0 {
			next.Resources.Permits += next.Modifiers.PermitsPassive * dtHours
		}
	}

	remaining := make([]JobInstance, 0, len(next.Jobs.Active))
	for _, job := range next.Jobs.Active {
		if target != "" && job.ID != target {
			remaining = append(remaining, job)
			continue
		}
		if job.TurnsRequired <= 0 {
			job.TurnsRequired = max(job.DurationH, 1)
		}
		job.Progress += jobSpeed(s, job) * dtHours
		if job.Progress < job.TurnsRequired {
			remaining = append(remaining, job)
			continue
		}
		g.completeJob(next, job)
	}
	next.Jobs.Active = remaining

	next.Resources.Morale = clamp(next.Resources.Morale, next.Modifiers.MoraleFloor, next.Modifiers.MoraleCap)
	next.Ledger = TrimLedger(next.Ledger)
	return next
}

// completeJob pays out a finished job on a state the caller already owns.
// Jobs missing from the catalog are dropped without reward.
func (g *Game) completeJob(s *State, job JobInstance) {
	for i := range s.Crew.Members {
		if s.Crew.Members[i].Assignment == job.ID {
			s.Crew.Members[i].Assignment = ""
		}
	}
	def, ok := g.Content.Job(job.ID)
	if !ok {
		return
	}
	s.Resources.Cash += def.Payout
	s.Resources.Reputation += def.Rep
	s.Jobs.Completed = append(s.Jobs.Completed, CompletedJob{ID: def.ID, Name: def.Name, Day: s.Day})
	s.Jobs.Queue = union(s.Jobs.Queue, def.ID)
	g.recordLedger(s, "job-complete", "Completed "+def.Name, "+"+money(def.Payout))
}
