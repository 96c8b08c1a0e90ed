package console

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/career-clicker/internal/catalog"
	"github.com/talgya/career-clicker/internal/engine"
)

func newTestParser() (*Parser, *engine.State) {
	g := engine.NewGame(catalog.Default())
	s := g.NewState(nil).Clone()
	s.Crew.Unlocked = true
	s.Crew.Members = []engine.CrewMember{
		{ID: "crew-1", Name: "Harper", Skill: "general"},
		{ID: "crew-2", Name: "Sam", Skill: "carpentry"},
	}
	return NewParser(g.Content), s
}

func parseIntent(t *testing.T, p *Parser, s *engine.State, line string) engine.Intent {
	t.Helper()
	cmd, err := p.Parse(s, line)
	require.NoError(t, err, line)
	require.NotNil(t, cmd.Intent, line)
	return *cmd.Intent
}

func TestParseIntents(t *testing.T) {
	p, s := newTestParser()
	overtime := catalog.Toggle(true)
	level2 := catalog.Level(2)

	cases := map[string]engine.Intent{
		"take yard_cleanup":               {Type: engine.IntentTakeGig, ID: "yard_cleanup"},
		"TAKE Yard_Cleanup":               {Type: engine.IntentTakeGig, ID: "yard_cleanup"},
		"work fence":                      {Type: engine.IntentWorkJob, ID: "fence_repair"},
		"end turn":                        {Type: engine.IntentEndTurn},
		"end day":                         {Type: engine.IntentEndDay},
		"buy tool work_boots":             {Type: engine.IntentBuyTool, ID: "work_boots"},
		"buy upgrade " + firstUpgrade(p):  {Type: engine.IntentBuyUpgrade, ID: firstUpgrade(p)},
		"buy materials lumber 4 steel 2":  {Type: engine.IntentBuyMaterials, Materials: map[string]float64{"lumber": 4, "steel": 2}},
		"assign sam yard_cleanup":         {Type: engine.IntentAssignCrew, ID: "yard_cleanup", Member: "crew-2"},
		"assign crew-1":                   {Type: engine.IntentAssignCrew, Member: "crew-1"},
		"hire":                            {Type: engine.IntentHireCrew},
		"hire Mary Jo plumbing":           {Type: engine.IntentHireCrew, Name: "Mary Jo", Skill: "plumbing"},
		"policy overtime on":              {Type: engine.IntentTogglePolicy, ID: "overtime", Value: &overtime},
		"policy greencodes 2":             {Type: engine.IntentTogglePolicy, ID: "greenCodes", Value: &level2},
		"promote":                         {Type: engine.IntentPromoteStage},
		"bid office_ti":                   {Type: engine.IntentBidJob, ID: "office_ti"},
		"prestige":                        {Type: engine.IntentPrestige, Choices: []string{}},
		"prestige turns build_speed":      {Type: engine.IntentPrestige, Choices: []string{"turns", "build_speed"}},
		"start yard_cleanup":              {Type: engine.IntentTakeGig, ID: "yard_cleanup"},
		"dev on":                          {Type: engine.IntentSetDevMode, Flag: true},
		"dev off":                         {Type: engine.IntentSetDevMode},
		"dev cash":                        {Type: engine.IntentAddCash},
		"dev mat":                         {Type: engine.IntentAddMaterials},
		"dev turns":                       {Type: engine.IntentFastTurn},
		"dev finish":                      {Type: engine.IntentFinishJob},
	}
	for line, want := range cases {
		assert.Equal(t, want, parseIntent(t, p, s, line), line)
	}
}

func firstUpgrade(p *Parser) string {
	return p.content.Upgrades[0].ID
}

func TestParseQueries(t *testing.T) {
	p, s := newTestParser()
	for line, want := range map[string]Query{
		"status": QueryStatus,
		"st":     QueryStatus,
		"help":   QueryHelp,
		"?":      QueryHelp,
		"quit":   QueryQuit,
		"exit":   QueryQuit,
	} {
		cmd, err := p.Parse(s, line)
		require.NoError(t, err, line)
		assert.Nil(t, cmd.Intent)
		assert.Equal(t, want, cmd.Query, line)
	}
}

func TestParseSuggestions(t *testing.T) {
	p, s := newTestParser()

	cases := map[string]string{
		"tske yard_cleanup":     "take",
		"take yard_claenup":     "yard_cleanup",
		"buy tool work_bots":    "work_boots",
		"buy materials lumbr 2": "lumber",
		"assign samm":           "sam",
		"policy ovretime on":    "overtime",
	}
	for line, want := range cases {
		_, err := p.Parse(s, line)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), line)
		assert.Contains(t, perr.Suggestions, want, line)
		assert.Contains(t, err.Error(), "did you mean", line)
	}
}

func TestParseErrors(t *testing.T) {
	p, s := newTestParser()
	for _, line := range []string{
		"",
		"xyzzy",
		"take",
		"take skyscraper_on_mars",
		"end",
		"buy",
		"buy tool",
		"buy materials lumber",
		"buy materials lumber -3",
		"buy materials gold 3",
		"assign",
		"policy overtime",
		"policy safety high",
		"dev",
		"dev warp",
		"pr",
	} {
		_, err := p.Parse(s, line)
		assert.Error(t, err, line)
	}

	_, err := p.Parse(s, "pr")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"prestige", "promote"}, perr.Suggestions)
}
