// Package catalog holds the static content the simulation queries by id:
// jobs, tools, upgrades, policies, milestones and prestige choices, plus the
// ordered stage sequence and per-stage turn budget.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrInvalidContent is returned when content fails load-time validation.
var ErrInvalidContent = errors.New("invalid content")

// DefaultMaterialPrice applies to materials without a catalog price.
const DefaultMaterialPrice = 50

// DefaultBaseTurns applies to stages missing from the turn table.
const DefaultBaseTurns = 8

//go:embed content.json
var defaultContent []byte

// Stage is a career tier.
type Stage string

const (
	StageLaborer     Stage = "Laborer"
	StageApprentice  Stage = "Apprentice"
	StageForeman     Stage = "Foreman"
	StageSiteManager Stage = "SiteManager"
	StageContractor  Stage = "Contractor"
	StageOwner       Stage = "Owner"
)

// Job is a contract that can be queued, started and completed.
type Job struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Stage         Stage              `json:"stage"`
	TurnsRequired float64            `json:"turnsRequired"`
	Payout        float64            `json:"payout"`
	Rep           float64            `json:"rep"`
	ReqTools      []string           `json:"reqTools"`
	Materials     map[string]float64 `json:"materials"`
}

// Tool is a one-off purchase with a permanent effect.
type Tool struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Cost    float64 `json:"cost"`
	Effects Bundle  `json:"effects"`
}

// Upgrade is a stage-gated company purchase.
type Upgrade struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Cost     float64 `json:"cost"`
	ReqStage Stage   `json:"reqStage,omitempty"`
	Effects  Bundle  `json:"effects"`
}

// JobRequirement is either a completed-job count or a specific job id.
type JobRequirement struct {
	Count int
	JobID string
}

func (r JobRequirement) MarshalJSON() ([]byte, error) {
	if r.JobID != "" {
		return json.Marshal(r.JobID)
	}
	if r.Count > 0 {
		return json.Marshal(r.Count)
	}
	return []byte("null"), nil
}

func (r *JobRequirement) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = JobRequirement{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.JobID)
	}
	return json.Unmarshal(data, &r.Count)
}

// Reward is applied when a milestone completes.
type Reward struct {
	StageSet   Stage  `json:"stageSet,omitempty"`
	TurnsDelta int    `json:"turnsDelta,omitempty"`
	UnlockTab  string `json:"unlockTab,omitempty"`
}

// Milestone gates stage promotion.
type Milestone struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	StageReq Stage          `json:"stageReq,omitempty"`
	RepReq   float64        `json:"repReq,omitempty"`
	JobReq   JobRequirement `json:"jobReq"`
	Reward   Reward         `json:"reward"`
}

// PrestigeChoice is a permanent bonus bought with charters.
type PrestigeChoice struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Effects Bundle `json:"effects"`
}

// Catalog is the full content set with id indexes.
type Catalog struct {
	Stages          []Stage            `json:"stages"`
	BaseTurns       map[Stage]int      `json:"baseTurns"`
	MaterialPrices  map[string]float64 `json:"materialPrices"`
	CrewSkills      []string           `json:"crewSkills"`
	CrewNames       []string           `json:"crewNames"`
	Landmarks       []string           `json:"landmarks"`
	Jobs            []Job              `json:"jobs"`
	Tools           []Tool             `json:"tools"`
	Upgrades        []Upgrade          `json:"upgrades"`
	Policies        []Policy           `json:"policies"`
	Milestones      []Milestone        `json:"milestones"`
	PrestigeChoices []PrestigeChoice   `json:"prestigeChoices"`

	jobs     map[string]int
	tools    map[string]int
	upgrades map[string]int
	policies map[string]int
	stageIdx map[Stage]int
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded content. It panics if the embedded file is
// invalid, which is a build defect rather than a runtime condition.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(bytes.NewReader(defaultContent))
		if err != nil {
			panic(fmt.Sprintf("embedded content: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads content from a JSON file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes, indexes and validates content.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidContent, err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.stageIdx = make(map[Stage]int, len(c.Stages))
	for i, s := range c.Stages {
		c.stageIdx[s] = i
	}
	var err error
	if c.jobs, err = indexIDs("job", len(c.Jobs), func(i int) string { return c.Jobs[i].ID }); err != nil {
		return err
	}
	if c.tools, err = indexIDs("tool", len(c.Tools), func(i int) string { return c.Tools[i].ID }); err != nil {
		return err
	}
	if c.upgrades, err = indexIDs("upgrade", len(c.Upgrades), func(i int) string { return c.Upgrades[i].ID }); err != nil {
		return err
	}
	if c.policies, err = indexIDs("policy", len(c.Policies), func(i int) string { return c.Policies[i].ID }); err != nil {
		return err
	}
	for i := range c.Policies {
		if err := c.Policies[i].bind(); err != nil {
			return err
		}
	}
	return nil
}

func indexIDs(kind string, n int, id func(int) string) (map[string]int, error) {
	out := make(map[string]int, n)
	for i := 0; i < n; i++ {
		key := id(i)
		if key == "" {
			return nil, fmt.Errorf("%w: %s #%d has no id", ErrInvalidContent, kind, i)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %s id %q", ErrInvalidContent, kind, key)
		}
		out[key] = i
	}
	return out, nil
}

// Validate checks minimum content counts and cross references.
func (c *Catalog) Validate() error {
	switch {
	case len(c.Stages) == 0:
		return fmt.Errorf("%w: no stages", ErrInvalidContent)
	case len(c.Jobs) < 6:
		return fmt.Errorf("%w: job content missing", ErrInvalidContent)
	case len(c.Tools) < 8:
		return fmt.Errorf("%w: tool content missing", ErrInvalidContent)
	case len(c.Upgrades) < 10:
		return fmt.Errorf("%w: upgrade content missing", ErrInvalidContent)
	case len(c.Policies) < 3:
		return fmt.Errorf("%w: policy content missing", ErrInvalidContent)
	case len(c.Milestones) < 3:
		return fmt.Errorf("%w: milestone content missing", ErrInvalidContent)
	case len(c.CrewSkills) == 0:
		return fmt.Errorf("%w: no crew skills", ErrInvalidContent)
	}
	for _, j := range c.Jobs {
		if c.StageIndex(j.Stage) < 0 {
			return fmt.Errorf("%w: job %s has unknown stage %q", ErrInvalidContent, j.ID, j.Stage)
		}
		for _, t := range j.ReqTools {
			if _, ok := c.tools[t]; !ok {
				return fmt.Errorf("%w: job %s requires unknown tool %q", ErrInvalidContent, j.ID, t)
			}
		}
	}
	for _, u := range c.Upgrades {
		if u.ReqStage != "" && c.StageIndex(u.ReqStage) < 0 {
			return fmt.Errorf("%w: upgrade %s has unknown stage %q", ErrInvalidContent, u.ID, u.ReqStage)
		}
	}
	for _, p := range c.Policies {
		if len(p.Values) == 0 {
			return fmt.Errorf("%w: policy %s declares no values", ErrInvalidContent, p.ID)
		}
		if p.Default != nil && !p.Allows(*p.Default) {
			return fmt.Errorf("%w: policy %s defaults to undeclared value %s", ErrInvalidContent, p.ID, p.Default)
		}
	}
	for _, m := range c.Milestones {
		if m.StageReq != "" && c.StageIndex(m.StageReq) < 0 {
			return fmt.Errorf("%w: milestone %s has unknown stage %q", ErrInvalidContent, m.ID, m.StageReq)
		}
		if m.Reward.StageSet != "" && c.StageIndex(m.Reward.StageSet) < 0 {
			return fmt.Errorf("%w: milestone %s rewards unknown stage %q", ErrInvalidContent, m.ID, m.Reward.StageSet)
		}
		if m.JobReq.JobID != "" {
			if _, ok := c.jobs[m.JobReq.JobID]; !ok {
				return fmt.Errorf("%w: milestone %s requires unknown job %q", ErrInvalidContent, m.ID, m.JobReq.JobID)
			}
		}
	}
	return nil
}

// StageIndex returns the position of s in the stage order, or -1.
func (c *Catalog) StageIndex(s Stage) int {
	if i, ok := c.stageIdx[s]; ok {
		return i
	}
	return -1
}

// StageAtLeast reports whether have is at or beyond want.
func (c *Catalog) StageAtLeast(have, want Stage) bool {
	return c.StageIndex(have) >= c.StageIndex(want)
}

// StageBaseTurns returns the per-day turn budget before modifiers.
func (c *Catalog) StageBaseTurns(s Stage) int {
	if n, ok := c.BaseTurns[s]; ok {
		return n
	}
	return DefaultBaseTurns
}

func (c *Catalog) Job(id string) (Job, bool) {
	i, ok := c.jobs[id]
	if !ok {
		return Job{}, false
	}
	return c.Jobs[i], true
}

func (c *Catalog) Tool(id string) (Tool, bool) {
	i, ok := c.tools[id]
	if !ok {
		return Tool{}, false
	}
	return c.Tools[i], true
}

func (c *Catalog) Upgrade(id string) (Upgrade, bool) {
	i, ok := c.upgrades[id]
	if !ok {
		return Upgrade{}, false
	}
	return c.Upgrades[i], true
}

func (c *Catalog) Policy(id string) (Policy, bool) {
	i, ok := c.policies[id]
	if !ok {
		return Policy{}, false
	}
	return c.Policies[i], true
}

func (c *Catalog) Milestone(id string) (Milestone, bool) {
	for _, m := range c.Milestones {
		if m.ID == id {
			return m, true
		}
	}
	return Milestone{}, false
}

func (c *Catalog) PrestigeChoice(id string) (PrestigeChoice, bool) {
	for _, p := range c.PrestigeChoices {
		if p.ID == id {
			return p, true
		}
	}
	return PrestigeChoice{}, false
}

// JobsForStage returns every job unlocked at or below s, in catalog order.
func (c *Catalog) JobsForStage(s Stage) []Job {
	idx := c.StageIndex(s)
	var out []Job
	for _, j := range c.Jobs {
		if c.StageIndex(j.Stage) <= idx {
			out = append(out, j)
		}
	}
	return out
}

// AvailableTools lists tools not yet owned.
func (c *Catalog) AvailableTools(owned []string) []Tool {
	var out []Tool
	for _, t := range c.Tools {
		if !contains(owned, t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// AvailableUpgrades lists unowned upgrades whose stage requirement is met.
func (c *Catalog) AvailableUpgrades(owned []string, s Stage) []Upgrade {
	var out []Upgrade
	for _, u := range c.Upgrades {
		if contains(owned, u.ID) {
			continue
		}
		if u.ReqStage != "" && !c.StageAtLeast(s, u.ReqStage) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// PolicyValues returns the allowed values for a policy.
func (c *Catalog) PolicyValues(id string) []PolicyValue {
	p, ok := c.Policy(id)
	if !ok {
		return nil
	}
	return p.Values
}

// MaterialPrice returns the per-unit price used when a bundle has no explicit cost.
func (c *Catalog) MaterialPrice(name string) float64 {
	if p, ok := c.MaterialPrices[name]; ok {
		return p
	}
	return DefaultMaterialPrice
}

// IsCrewSkill reports whether skill is recognized.
func (c *Catalog) IsCrewSkill(skill string) bool {
	return contains(c.CrewSkills, skill)
}

// DefaultCrewSkill is the fallback for unknown skills.
func (c *Catalog) DefaultCrewSkill() string {
	return c.CrewSkills[0]
}

// IsLandmark reports whether completing jobID counts toward prestige.
func (c *Catalog) IsLandmark(jobID string) bool {
	return contains(c.Landmarks, jobID)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// DefaultPolicies returns every policy set to its default value.
func (c *Catalog) DefaultPolicies() map[string]PolicyValue {
	out := make(map[string]PolicyValue, len(c.Policies))
	for _, p := range c.Policies {
		out[p.ID] = p.DefaultValue()
	}
	return out
}
