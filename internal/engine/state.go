// Package engine provides the career simulation core: game state, derived
// stat aggregation, the action dispatcher, the tick engine and the scheduler
// that drives it.
package engine

import (
	"github.com/talgya/career-clicker/internal/catalog"
	"github.com/talgya/career-clicker/internal/rng"
)

const (
	// TurnSeconds is the simulated time one turn is worth.
	TurnSeconds = 3600

	// LedgerLimit bounds the audit trail; oldest entries are evicted first.
	LedgerLimit = 25

	// SchemaVersion marks the snapshot layout for the reconciler.
	SchemaVersion = 1

	// DefaultPlayerName replaces blank player names.
	DefaultPlayerName = "Founder"

	// MinTurnsPerDay is the floor applied to the daily turn budget.
	MinTurnsPerDay = 4

	// ForemanCrewCapacity is the base crew capacity granted on reaching Foreman.
	ForemanCrewCapacity = 2
)

// State is the root game snapshot. A State is never mutated once published:
// every action and tick returns a new value (or the same pointer on no-op).
type State struct {
	Day         int                            `json:"day"`
	TurnsLeft   int                            `json:"turnsLeft"`
	Stage       catalog.Stage                  `json:"stage"`
	Resources   Resources                      `json:"resources"`
	Rates       Rates                          `json:"rates"`
	Player      Player                         `json:"player"`
	Truck       Truck                          `json:"truck"`
	Tools       Owned                          `json:"tools"`
	Crew        Crew                           `json:"crew"`
	Fleet       Fleet                          `json:"fleet"`
	Jobs        Jobs                           `json:"jobs"`
	Policies    map[string]catalog.PolicyValue `json:"policies"`
	Upgrades    Owned                          `json:"upgrades"`
	Prestige    Prestige                       `json:"prestige"`
	Milestones  Milestones                     `json:"milestones"`
	Progression Progression                    `json:"progression"`
	RNGSeed     int64                          `json:"rngSeed"`
	Version     int                            `json:"version"`
	Modifiers   Modifiers                      `json:"modifiers"`
	Ledger      []LedgerEntry                  `json:"ledger"`
	Settings    Settings                       `json:"settings"`
	UI          UI                             `json:"ui"`
	LastSave    int64                          `json:"lastSave"` // unix millis, set at write time
}

// Resources are the spendable quantities.
type Resources struct {
	Cash       float64 `json:"cash"`
	Reputation float64 `json:"reputation"`
	Morale     float64 `json:"morale"`
	Permits    float64 `json:"permits"`
	Fuel       float64 `json:"fuel"`
	Lumber     float64 `json:"lumber"`
	Steel      float64 `json:"steel"`
	Concrete   float64 `json:"concrete"`
}

// materialNames lists purchasable materials in display order.
var materialNames = []string{"fuel", "lumber", "steel", "concrete", "permits"}

// MaterialNames returns the purchasable materials in display order.
func MaterialNames() []string {
	return append([]string(nil), materialNames...)
}

// field returns a pointer to the named resource.
func (r *Resources) field(name string) *float64 {
	switch name {
	case "cash":
		return &r.Cash
	case "reputation":
		return &r.Reputation
	case "morale":
		return &r.Morale
	case "permits":
		return &r.Permits
	case "fuel":
		return &r.Fuel
	case "lumber":
		return &r.Lumber
	case "steel":
		return &r.Steel
	case "concrete":
		return &r.Concrete
	}
	return nil
}

// Amount returns the named quantity, zero for unknown names.
func (r Resources) Amount(name string) float64 {
	if p := r.field(name); p != nil {
		return *p
	}
	return 0
}

func (r Resources) covers(cost map[string]float64) bool {
	for k, v := range cost {
		if r.Amount(k) < v {
			return false
		}
	}
	return true
}

func (r *Resources) add(name string, delta float64) {
	if p := r.field(name); p != nil {
		*p += delta
	}
}

// Rates are derived by the aggregator and never authored directly.
type Rates struct {
	IncomePerSec float64 `json:"incomePerSec"`
	BuildSpeed   float64 `json:"buildSpeed"`
	CrewEff      float64 `json:"crewEff"`
	WinRate      float64 `json:"winRate"`
	// Extra holds "rates.<field>" effects with no dedicated field.
	Extra map[string]float64 `json:"extra,omitempty"`
}

// Modifiers are derived additive/multiplicative knobs.
type Modifiers struct {
	Materials      float64 `json:"materials"`
	Fuel           float64 `json:"fuel"`
	MoraleFloor    float64 `json:"moraleFloor"`
	MoraleCap      float64 `json:"moraleCap"`
	MoraleDaily    float64 `json:"moraleDaily"`
	ConcreteSpeed  float64 `json:"concreteSpeed"`
	StructureSpeed float64 `json:"structureSpeed"`
	PermitsPassive float64 `json:"permitsPassive"`
	TurnsPerDay    float64 `json:"turnsPerDay"`
}

// Player is the company owner's profile.
type Player struct {
	Name  string `json:"name"`
	Skill string `json:"skill"`
}

// Truck is the starting work vehicle.
type Truck struct {
	Condition     float64 `json:"condition"`
	Capacity      float64 `json:"capacity"`
	MPG           float64 `json:"mpg"`
	BaseCapacity  float64 `json:"baseCapacity"`
	BaseCondition float64 `json:"baseCondition"`
}

// Vehicle is one fleet entry.
type Vehicle struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Capacity  float64 `json:"capacity"`
	Condition float64 `json:"condition"`
}

// Fleet holds owned vehicles.
type Fleet struct {
	Vehicles       []Vehicle `json:"vehicles"`
	MaintenanceDue float64   `json:"maintenanceDue"`
}

// Owned is a set of content ids.
type Owned struct {
	Owned []string `json:"owned"`
}

// Has reports whether id is in the set.
func (o Owned) Has(id string) bool {
	return contains(o.Owned, id)
}

// CrewMember is a hired worker.
type CrewMember struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Assignment string `json:"assignment"` // active job id, empty when idle
	Skill      string `json:"skill"`
}

// Crew is the hired workforce. Capacity is derived.
type Crew struct {
	Unlocked     bool         `json:"unlocked"`
	Members      []CrewMember `json:"members"`
	Capacity     int          `json:"capacity"`
	BaseCapacity int          `json:"baseCapacity"`
}

func (c Crew) member(id string) int {
	for i, m := range c.Members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// JobInstance is a job in progress.
type JobInstance struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	TurnsRequired float64            `json:"turnsRequired"`
	DurationH     float64            `json:"durationH"`
	Progress      float64            `json:"progress"`
	Materials     map[string]float64 `json:"materials"`
	AssignedCrew  []string           `json:"assignedCrew"`
}

// CompletedJob is a history record.
type CompletedJob struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Day  int    `json:"day"`
}

// Jobs tracks queued, in-progress and finished work.
type Jobs struct {
	Queue     []string       `json:"queue"`
	Active    []JobInstance  `json:"active"`
	Completed []CompletedJob `json:"completed"`
}

func (j Jobs) active(id string) int {
	for i, job := range j.Active {
		if job.ID == id {
			return i
		}
	}
	return -1
}

// Prestige survives a reset.
type Prestige struct {
	Charters      int            `json:"charters"`
	PermanentMods catalog.Bundle `json:"permanentMods"`
}

// Milestones lists claimed milestone ids.
type Milestones struct {
	Completed []string `json:"completed"`
}

// Progression holds rewards that outlive the stage they were earned in.
type Progression struct {
	BonusTurns int `json:"bonusTurns"`
}

// LedgerEntry is one audit record.
type LedgerEntry struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
	Delta string `json:"delta"`
}

// Settings are player preferences. DevMode enables the developer actions.
type Settings struct {
	DevMode bool `json:"devMode"`
}

// UI is presentation state carried in saves.
type UI struct {
	ActiveTab    string   `json:"activeTab"`
	UnlockedTabs []string `json:"unlockedTabs"`
	ShowDev      bool     `json:"showDev"`
}

var defaultTabs = []string{"Dashboard", "Jobs", "Tools", "Upgrades", "Policies", "Finance", "Fleet"}

// NewState returns a fresh default state with permanent modifiers applied.
func (g *Game) NewState(permanentMods catalog.Bundle) *State {
	c := g.Content
	queue := []string{}
	for _, j := range c.JobsForStage(catalog.StageLaborer) {
		queue = append(queue, j.ID)
	}
	s := &State{
		Day:   1,
		Stage: catalog.StageLaborer,
		Resources: Resources{
			Cash:   100,
			Morale: 1,
			Fuel:   20,
		},
		Player: Player{Name: DefaultPlayerName, Skill: c.DefaultCrewSkill()},
		Truck: Truck{
			Condition:     1,
			Capacity:      10,
			MPG:           18,
			BaseCapacity:  10,
			BaseCondition: 1,
		},
		Tools: Owned{Owned: []string{}},
		Crew:  Crew{Members: []CrewMember{}},
		Fleet: Fleet{Vehicles: []Vehicle{{ID: "pickup", Name: "3/4 Ton Pickup", Capacity: 10, Condition: 1}}},
		Jobs: Jobs{
			Queue:     queue,
			Active:    []JobInstance{},
			Completed: []CompletedJob{},
		},
		Policies:   c.DefaultPolicies(),
		Upgrades:   Owned{Owned: []string{}},
		Prestige:   Prestige{PermanentMods: permanentMods.Clone()},
		Milestones: Milestones{Completed: []string{}},
		RNGSeed:    rng.DefaultSeed,
		Version:    SchemaVersion,
		Ledger:     []LedgerEntry{},
		UI: UI{
			ActiveTab:    "Dashboard",
			UnlockedTabs: append([]string(nil), defaultTabs...),
		},
	}
	s = g.Recompute(s)
	s.TurnsLeft = g.BaseTurns(s.Stage, s.Modifiers)
	return s
}

// TrimLedger drops the oldest entries beyond LedgerLimit. The result never
// shares a backing array with a trimmed input.
func TrimLedger(entries []LedgerEntry) []LedgerEntry {
	if n := len(entries); n > LedgerLimit {
		return append([]LedgerEntry(nil), entries[n-LedgerLimit:]...)
	}
	return entries
}

// Clone returns a deep copy. Nil and empty collections are preserved as-is.
func (s *State) Clone() *State {
	next := *s
	next.Rates.Extra = cloneMap(s.Rates.Extra)
	next.Fleet.Vehicles = cloneSlice(s.Fleet.Vehicles)
	next.Tools.Owned = cloneSlice(s.Tools.Owned)
	next.Upgrades.Owned = cloneSlice(s.Upgrades.Owned)
	next.Crew.Members = cloneSlice(s.Crew.Members)
	next.Jobs.Queue = cloneSlice(s.Jobs.Queue)
	next.Jobs.Completed = cloneSlice(s.Jobs.Completed)
	next.Jobs.Active = cloneSlice(s.Jobs.Active)
	for i := range next.Jobs.Active {
		next.Jobs.Active[i].Materials = cloneMap(s.Jobs.Active[i].Materials)
		next.Jobs.Active[i].AssignedCrew = cloneSlice(s.Jobs.Active[i].AssignedCrew)
	}
	next.Policies = cloneMap(s.Policies)
	next.Prestige.PermanentMods = s.Prestige.PermanentMods.Clone()
	next.Milestones.Completed = cloneSlice(s.Milestones.Completed)
	next.Ledger = cloneSlice(s.Ledger)
	next.UI.UnlockedTabs = cloneSlice(s.UI.UnlockedTabs)
	return &next
}

func cloneSlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	return append(make([]T, 0, len(src)), src...)
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	if src == nil {
		return nil
	}
	out := make(map[K]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// union appends the ids from add that are not already present.
func union(list []string, add ...string) []string {
	for _, id := range add {
		if !contains(list, id) {
			list = append(list, id)
		}
	}
	return list
}
