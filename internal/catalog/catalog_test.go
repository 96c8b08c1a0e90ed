package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultContentValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	job, ok := c.Job("yard_cleanup")
	require.True(t, ok)
	assert.Equal(t, StageLaborer, job.Stage)

	_, ok = c.Tool("work_boots")
	assert.True(t, ok)
	_, ok = c.Job("nope")
	assert.False(t, ok)
}

func TestStageOrdering(t *testing.T) {
	c := Default()
	assert.Equal(t, 0, c.StageIndex(StageLaborer))
	assert.Equal(t, 5, c.StageIndex(StageOwner))
	assert.Equal(t, -1, c.StageIndex("Astronaut"))
	assert.True(t, c.StageAtLeast(StageForeman, StageApprentice))
	assert.False(t, c.StageAtLeast(StageApprentice, StageForeman))
	assert.Equal(t, 9, c.StageBaseTurns(StageForeman))
	assert.Equal(t, DefaultBaseTurns, c.StageBaseTurns("Astronaut"))
}

func TestJobsForStage(t *testing.T) {
	c := Default()
	var ids []string
	for _, j := range c.JobsForStage(StageLaborer) {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"yard_cleanup", "fence_repair"}, ids)
	assert.Len(t, c.JobsForStage(StageOwner), len(c.Jobs))
}

func TestAvailableUpgradesRespectsStage(t *testing.T) {
	c := Default()
	for _, u := range c.AvailableUpgrades(nil, StageLaborer) {
		assert.Empty(t, u.ReqStage, u.ID)
	}
	owned := []string{"business_cards"}
	for _, u := range c.AvailableUpgrades(owned, StageOwner) {
		assert.NotEqual(t, "business_cards", u.ID)
	}
	assert.Len(t, c.AvailableTools([]string{"work_boots"}), len(c.Tools)-1)
}

func TestPolicyEffects(t *testing.T) {
	c := Default()
	safety, ok := c.Policy("safety")
	require.True(t, ok)
	assert.True(t, safety.Allows(Level(2)))
	assert.False(t, safety.Allows(Level(3)))
	assert.False(t, safety.Allows(Toggle(true)))

	b, ok := safety.Effect(Level(2))
	require.True(t, ok)
	assert.InDelta(t, 0.2, b.Get("moraleCap"), 1e-9)

	overtime, _ := c.Policy("overtime")
	_, ok = overtime.Effect(Toggle(false))
	assert.False(t, ok, "values without an entry contribute nothing")
	assert.Len(t, c.PolicyValues("greenCodes"), 3)
}

func TestDefaultPolicies(t *testing.T) {
	c := Default()
	assert.Equal(t, map[string]PolicyValue{
		"overtime":   Toggle(false),
		"safety":     Level(1),
		"greenCodes": Level(0),
	}, c.DefaultPolicies())

	fresh, err := Load(bytes.NewReader(defaultContent))
	require.NoError(t, err)
	bad := Level(9)
	fresh.Policies[1].Default = &bad
	assert.True(t, errors.Is(fresh.Validate(), ErrInvalidContent))
}

func TestPolicyBindRejectsUndeclaredValue(t *testing.T) {
	p := Policy{
		ID:             "bad",
		Values:         []PolicyValue{Level(0), Level(1)},
		EffectsByLevel: map[string]Bundle{"5": {{Kind: EffectBuildSpeed, Value: 1}}},
	}
	err := p.bind()
	assert.True(t, errors.Is(err, ErrInvalidContent))
}

func TestBundleJSONPreservesOrderAndIgnoresUnknown(t *testing.T) {
	var b Bundle
	err := json.Unmarshal([]byte(`{"winRate":0.02,"mystery":4,"rates.bidAccuracy":0.5,"crewCap":1,"winRate":0.01}`), &b)
	require.NoError(t, err)
	require.Len(t, b, 3)
	assert.Equal(t, EffectWinRate, b[0].Kind)
	assert.InDelta(t, 0.03, b[0].Value, 1e-12)
	assert.Equal(t, Effect{Kind: EffectRate, Field: "bidAccuracy", Value: 0.5}, b[1])
	assert.Equal(t, EffectCrewCap, b[2].Kind)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"winRate":0.03,"rates.bidAccuracy":0.5,"crewCap":1}`, string(out))
}

func TestBundleMerge(t *testing.T) {
	a := Bundle{{Kind: EffectTurnsPerDay, Value: 1}}
	b := Bundle{{Kind: EffectTurnsPerDay, Value: 1}, {Kind: EffectCrewCap, Value: 1}}
	m := a.Merge(b)
	assert.Equal(t, 2.0, m.Get("turnsPerDay"))
	assert.Equal(t, 1.0, m.Get("crewCap"))
	assert.Equal(t, 1.0, a.Get("turnsPerDay"), "merge must not mutate the receiver")

	var empty Bundle
	assert.Nil(t, empty.Merge(nil))
}

func TestPolicyValueJSON(t *testing.T) {
	var vals []PolicyValue
	require.NoError(t, json.Unmarshal([]byte(`[true, 2, 0.5]`), &vals))
	assert.Equal(t, []PolicyValue{Toggle(true), Level(2), Level(0.5)}, vals)
	assert.Equal(t, "true", vals[0].String())
	assert.Equal(t, "2", vals[1].String())

	out, err := json.Marshal(vals)
	require.NoError(t, err)
	assert.Equal(t, `[true,2,0.5]`, string(out))

	v, err := ParsePolicyValue("off")
	require.NoError(t, err)
	assert.Equal(t, Toggle(false), v)
	_, err = ParsePolicyValue("lots")
	assert.Error(t, err)
}

func TestLoadRejectsThinContent(t *testing.T) {
	_, err := Load(strings.NewReader(`{"stages":["Laborer"],"jobs":[]}`))
	assert.True(t, errors.Is(err, ErrInvalidContent))

	_, err = Load(strings.NewReader(`not json`))
	assert.True(t, errors.Is(err, ErrInvalidContent))
}

func TestMilestoneJobRequirement(t *testing.T) {
	c := Default()
	m, ok := c.Milestone("milestone_apprentice")
	require.True(t, ok)
	assert.Equal(t, 2, m.JobReq.Count)
	m, _ = c.Milestone("milestone_site_manager")
	assert.Equal(t, "garage_addition", m.JobReq.JobID)
	assert.True(t, c.IsLandmark("duplex_frame"))
	assert.Equal(t, 50.0, c.MaterialPrice("permits"))
	assert.Equal(t, 40.0, c.MaterialPrice("lumber"))
}
