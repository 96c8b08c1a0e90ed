// Player actions. Each action validates its preconditions against s and
// returns s itself when any of them fail, so callers detect a no-op by
// pointer identity.
package engine

import (
	"fmt"
	"strings"

	"github.com/talgya/career-clicker/internal/catalog"
	"github.com/talgya/career-clicker/internal/rng"
)

// MaterialOrder is a purchase of raw materials. When Cost is zero the price is
// computed from catalog per-unit prices.
type MaterialOrder struct {
	Cost      float64            `json:"cost,omitempty"`
	Materials map[string]float64 `json:"materials"`
}

// TakeGig starts a queued job.
func (g *Game) TakeGig(s *State, jobID string) *State {
	if s.TurnsLeft <= 0 {
		return s
	}
	job, ok := g.Content.Job(jobID)
	if !ok {
		return s
	}
	if !contains(s.Jobs.Queue, jobID) {
		return s
	}
	if !g.Content.StageAtLeast(s.Stage, job.Stage) {
		return s
	}
	for _, tool := range job.ReqTools {
		if !s.Tools.Has(tool) {
			return s
		}
	}
	if !s.Resources.covers(job.Materials) {
		return s
	}

	next := s.Clone()
	for name, qty := range job.Materials {
		next.Resources.add(name, -qty)
	}
	next.Jobs.Queue = without(next.Jobs.Queue, jobID)
	next.Jobs.Active = append(next.Jobs.Active, JobInstance{
		ID:            job.ID,
		Name:          job.Name,
		TurnsRequired: job.TurnsRequired,
		DurationH:     job.TurnsRequired,
		Materials:     cloneMap(job.Materials),
		AssignedCrew:  []string{},
	})
	consumeTurn(next)

	next = g.Recompute(next)
	delta := "ready"
	if summary := materialSummary(job.Materials); summary != "" {
		delta = "-" + summary
	}
	g.recordLedger(next, "job-start", "Mobilized "+job.Name, delta)
	return next
}

// WorkJob spends a turn advancing a single active job.
func (g *Game) WorkJob(s *State, jobID string) *State {
	if s.TurnsLeft <= 0 || jobID == "" {
		return s
	}
	if s.Jobs.active(jobID) < 0 {
		return s
	}
	progressed := g.AdvanceTick(s, TurnSeconds, jobID)
	if progressed == s {
		return s
	}
	consumeTurn(progressed)
	return g.Recompute(progressed)
}

// EndTurn advances every active job by one turn.
func (g *Game) EndTurn(s *State) *State {
	if s.TurnsLeft <= 0 {
		return s
	}
	progressed := g.AdvanceTick(s, TurnSeconds, "")
	consumeTurn(progressed)
	return g.Recompute(progressed)
}

// EndDay rolls to the next day once all turns are spent.
func (g *Game) EndDay(s *State) *State {
	if s.TurnsLeft > 0 {
		return s
	}
	next := s.Clone()
	next.Day++
	next.Resources.Morale = clamp(
		next.Resources.Morale+next.Modifiers.MoraleDaily,
		next.Modifiers.MoraleFloor,
		next.Modifiers.MoraleCap,
	)
	next.TurnsLeft = g.BaseTurns(next.Stage, next.Modifiers)
	return next
}

// BuyTool purchases a tool.
func (g *Game) BuyTool(s *State, toolID string) *State {
	tool, ok := g.Content.Tool(toolID)
	if !ok || s.Tools.Has(toolID) {
		return s
	}
	if s.Resources.Cash < tool.Cost {
		return s
	}
	next := s.Clone()
	next.Resources.Cash -= tool.Cost
	next.Tools.Owned = append(next.Tools.Owned, toolID)
	next = g.Recompute(next)
	g.recordLedger(next, "purchase", "Bought "+tool.Name, "-"+money(tool.Cost))
	return next
}

// BuyUpgrade purchases a stage-gated upgrade.
func (g *Game) BuyUpgrade(s *State, upgradeID string) *State {
	up, ok := g.Content.Upgrade(upgradeID)
	if !ok || s.Upgrades.Has(upgradeID) {
		return s
	}
	if up.ReqStage != "" && !g.Content.StageAtLeast(s.Stage, up.ReqStage) {
		return s
	}
	if s.Resources.Cash < up.Cost {
		return s
	}
	next := s.Clone()
	next.Resources.Cash -= up.Cost
	next.Upgrades.Owned = append(next.Upgrades.Owned, upgradeID)
	next = g.Recompute(next)
	g.recordLedger(next, "upgrade", "Installed "+up.Name, "-"+money(up.Cost))
	return next
}

// MaterialsCost prices an order after the materials modifier.
func (g *Game) MaterialsCost(s *State, order MaterialOrder) float64 {
	total := order.Cost
	if total == 0 {
		for _, name := range sortedMaterials(order.Materials) {
			total += order.Materials[name] * g.Content.MaterialPrice(name)
		}
	}
	return roundHalfUp(total * max(0.1, s.Modifiers.Materials))
}

// BuyMaterials purchases raw materials.
func (g *Game) BuyMaterials(s *State, order MaterialOrder) *State {
	if len(order.Materials) == 0 || order.Cost < 0 {
		return s
	}
	for name, qty := range order.Materials {
		if qty < 0 || !contains(materialNames, name) {
			return s
		}
	}
	cost := g.MaterialsCost(s, order)
	if s.Resources.Cash < cost {
		return s
	}
	next := s.Clone()
	next.Resources.Cash -= cost
	for name, qty := range order.Materials {
		next.Resources.add(name, qty)
	}
	g.recordLedger(next, "materials", "Purchased materials", "-"+money(cost))
	return next
}

// AssignCrew moves a crew member onto an active job, or off all jobs when
// jobID is empty.
func (g *Game) AssignCrew(s *State, jobID, memberID string) *State {
	if s.TurnsLeft <= 0 || !s.Crew.Unlocked {
		return s
	}
	mi := s.Crew.member(memberID)
	if mi < 0 {
		return s
	}
	ji := -1
	if jobID != "" {
		if ji = s.Jobs.active(jobID); ji < 0 {
			return s
		}
	}

	next := s.Clone()
	next.Crew.Members[mi].Assignment = jobID
	for i := range next.Jobs.Active {
		crew := without(next.Jobs.Active[i].AssignedCrew, memberID)
		if i == ji {
			crew = append(crew, memberID)
		}
		next.Jobs.Active[i].AssignedCrew = crew
	}
	consumeTurn(next)
	return next
}

// HireCrewMember adds a crew member while under capacity.
func (g *Game) HireCrewMember(s *State, name, skill string) *State {
	if !s.Crew.Unlocked || len(s.Crew.Members) >= s.Crew.Capacity {
		return s
	}
	next := s.Clone()

	n := len(next.Crew.Members) + 1
	id := fmt.Sprintf("crew-%d", n)
	for next.Crew.member(id) >= 0 {
		n++
		id = fmt.Sprintf("crew-%d", n)
	}

	name = strings.TrimSpace(name)
	if name == "" || g.crewNameTaken(s, name) {
		name = g.nextCrewName(s)
	}
	if !g.Content.IsCrewSkill(skill) {
		skill = g.Content.DefaultCrewSkill()
	}

	next.Crew.Members = append(next.Crew.Members, CrewMember{
		ID:    id,
		Name:  name,
		Skill: skill,
	})
	return next
}

func (g *Game) crewNameTaken(s *State, name string) bool {
	for _, m := range s.Crew.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (g *Game) nextCrewName(s *State) string {
	for _, name := range g.Content.CrewNames {
		if !g.crewNameTaken(s, name) {
			return name
		}
	}
	return fmt.Sprintf("Crew-%d", len(s.Crew.Members)+1)
}

// TogglePolicy selects a policy value from its allowed set.
func (g *Game) TogglePolicy(s *State, policyID string, value catalog.PolicyValue) *State {
	if s.TurnsLeft <= 0 {
		return s
	}
	p, ok := g.Content.Policy(policyID)
	if !ok || !p.Allows(value) {
		return s
	}
	next := s.Clone()
	if next.Policies == nil {
		next.Policies = make(map[string]catalog.PolicyValue)
	}
	next.Policies[policyID] = value
	consumeTurn(next)
	return g.Recompute(next)
}

// milestoneMet reports whether every requirement of m holds in s.
func (g *Game) milestoneMet(s *State, m catalog.Milestone) bool {
	if m.StageReq != "" && !g.Content.StageAtLeast(s.Stage, m.StageReq) {
		return false
	}
	if m.RepReq > 0 && s.Resources.Reputation < m.RepReq {
		return false
	}
	if m.JobReq.JobID != "" {
		for _, c := range s.Jobs.Completed {
			if c.ID == m.JobReq.JobID {
				return true
			}
		}
		return false
	}
	return len(s.Jobs.Completed) >= m.JobReq.Count
}

// PromoteStage completes the first open milestone whose requirements are met
// and applies its reward.
func (g *Game) PromoteStage(s *State) *State {
	var milestone *catalog.Milestone
	for i, m := range g.Content.Milestones {
		if contains(s.Milestones.Completed, m.ID) {
			continue
		}
		if g.milestoneMet(s, m) {
			milestone = &g.Content.Milestones[i]
			break
		}
	}
	if milestone == nil {
		return s
	}

	next := s.Clone()
	next.Milestones.Completed = append(next.Milestones.Completed, milestone.ID)
	reward := milestone.Reward
	if reward.StageSet != "" {
		next.Stage = reward.StageSet
	}
	if reward.TurnsDelta != 0 {
		next.Progression.BonusTurns += reward.TurnsDelta
	}
	if reward.UnlockTab != "" {
		next.UI.UnlockedTabs = union(next.UI.UnlockedTabs, reward.UnlockTab)
	}
	if g.Content.StageAtLeast(next.Stage, catalog.StageForeman) {
		next.Crew.Unlocked = true
		next.Crew.BaseCapacity = max(next.Crew.BaseCapacity, ForemanCrewCapacity)
	}
	for _, j := range g.Content.JobsForStage(next.Stage) {
		next.Jobs.Queue = union(next.Jobs.Queue, j.ID)
	}

	next = g.Recompute(next)
	next.TurnsLeft = g.BaseTurns(next.Stage, next.Modifiers)
	return next
}

// BidJob spends a turn bidding on a contract. The outcome is drawn from the
// state's seed, which then advances.
func (g *Game) BidJob(s *State, jobID string) *State {
	if s.TurnsLeft <= 0 {
		return s
	}
	if !g.Content.StageAtLeast(s.Stage, catalog.StageContractor) {
		return s
	}
	job, ok := g.Content.Job(jobID)
	if !ok {
		return s
	}

	src := rng.New(s.RNGSeed)
	success := src.Chance(BidChance(s))

	next := s.Clone()
	next.RNGSeed = src.NextSeed()
	consumeTurn(next)
	if success {
		next.Jobs.Queue = union(next.Jobs.Queue, jobID)
	}
	next = g.Recompute(next)
	if success {
		g.recordLedger(next, "bid-win", "Won bid for "+job.Name, "+rep")
	} else {
		g.recordLedger(next, "bid-loss", "Lost bid for "+job.Name, "no change")
	}
	return next
}

// BidChance is the probability that a bid succeeds.
func BidChance(s *State) float64 {
	repFactor := clamp(0.5+s.Resources.Reputation/200, 0.5, 2)
	return clamp(s.Rates.WinRate*repFactor, 0, 0.95)
}

// UpdatePlayerProfile renames the player.
func (g *Game) UpdatePlayerProfile(s *State, name string) *State {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlayerName
	}
	if name == s.Player.Name {
		return s
	}
	next := s.Clone()
	next.Player.Name = name
	return next
}

// SetActiveTab switches the displayed tab to an unlocked one.
func (g *Game) SetActiveTab(s *State, tab string) *State {
	if s.UI.ActiveTab == tab || !contains(s.UI.UnlockedTabs, tab) {
		return s
	}
	next := s.Clone()
	next.UI.ActiveTab = tab
	return next
}

// UnlockTab makes a tab available.
func (g *Game) UnlockTab(s *State, tab string) *State {
	if tab == "" || contains(s.UI.UnlockedTabs, tab) {
		return s
	}
	next := s.Clone()
	next.UI.UnlockedTabs = append(next.UI.UnlockedTabs, tab)
	return next
}

// SetDevMode flips the developer settings flag.
func (g *Game) SetDevMode(s *State, on bool) *State {
	if s.Settings.DevMode == on {
		return s
	}
	next := s.Clone()
	next.Settings.DevMode = on
	next.UI.ShowDev = on
	return next
}
