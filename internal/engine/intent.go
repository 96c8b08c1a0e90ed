// Intent routing shared by every front end.
package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/career-clicker/internal/catalog"
)

// ErrUnknownIntent is returned by Apply for unrecognized intent types.
var ErrUnknownIntent = errors.New("unknown intent")

// IntentType names a player action.
type IntentType string

const (
	IntentTakeGig       IntentType = "takeGig"
	IntentWorkJob       IntentType = "workJob"
	IntentEndTurn       IntentType = "endTurn"
	IntentEndDay        IntentType = "endDay"
	IntentBuyTool       IntentType = "buyTool"
	IntentBuyUpgrade    IntentType = "buyUpgrade"
	IntentBuyMaterials  IntentType = "buyMaterials"
	IntentAssignCrew    IntentType = "assignCrew"
	IntentHireCrew      IntentType = "hireCrewMember"
	IntentTogglePolicy  IntentType = "togglePolicy"
	IntentPromoteStage  IntentType = "promoteStage"
	IntentBidJob        IntentType = "bidJob"
	IntentPrestige      IntentType = "prestige"
	IntentUpdateProfile IntentType = "updatePlayerProfile"
	IntentSetActiveTab  IntentType = "setActiveTab"
	IntentUnlockTab     IntentType = "unlockTab"
	IntentSetDevMode    IntentType = "setDevMode"

	// Developer actions, ignored unless dev mode is on.
	IntentAddCash      IntentType = "addCash"
	IntentAddMaterials IntentType = "addMaterials"
	IntentFastTurn     IntentType = "fastTurn"
	IntentFinishJob    IntentType = "finishJob"
)

// Intent is a serializable player action. Only the fields the type needs are
// read.
type Intent struct {
	Type      IntentType           `json:"type"`
	ID        string               `json:"id,omitempty"` // job, tool, upgrade, policy or tab id
	Member    string               `json:"member,omitempty"`
	Name      string               `json:"name,omitempty"`
	Skill     string               `json:"skill,omitempty"`
	Value     *catalog.PolicyValue `json:"value,omitempty"`
	Materials map[string]float64   `json:"materials,omitempty"`
	Cost      float64              `json:"cost,omitempty"`
	Flag      bool                 `json:"flag,omitempty"`
	Choices   []string             `json:"choices,omitempty"`
}

// Apply dispatches in against s. Precondition failures are not errors: the
// same state pointer comes back.
func (g *Game) Apply(s *State, in Intent) (*State, error) {
	switch in.Type {
	case IntentTakeGig:
		return g.TakeGig(s, in.ID), nil
	case IntentWorkJob:
		return g.WorkJob(s, in.ID), nil
	case IntentEndTurn:
		return g.EndTurn(s), nil
	case IntentEndDay:
		return g.EndDay(s), nil
	case IntentBuyTool:
		return g.BuyTool(s, in.ID), nil
	case IntentBuyUpgrade:
		return g.BuyUpgrade(s, in.ID), nil
	case IntentBuyMaterials:
		return g.BuyMaterials(s, MaterialOrder{Cost: in.Cost, Materials: in.Materials}), nil
	case IntentAssignCrew:
		return g.AssignCrew(s, in.ID, in.Member), nil
	case IntentHireCrew:
		return g.HireCrewMember(s, in.Name, in.Skill), nil
	case IntentTogglePolicy:
		if in.Value == nil {
			return s, nil
		}
		return g.TogglePolicy(s, in.ID, *in.Value), nil
	case IntentPromoteStage:
		return g.PromoteStage(s), nil
	case IntentBidJob:
		return g.BidJob(s, in.ID), nil
	case IntentPrestige:
		return g.PerformPrestige(s, in.Choices), nil
	case IntentUpdateProfile:
		return g.UpdatePlayerProfile(s, in.Name), nil
	case IntentSetActiveTab:
		return g.SetActiveTab(s, in.ID), nil
	case IntentUnlockTab:
		return g.UnlockTab(s, in.ID), nil
	case IntentSetDevMode:
		return g.SetDevMode(s, in.Flag), nil
	case IntentAddCash:
		return g.AddCash(s), nil
	case IntentAddMaterials:
		return g.AddMaterials(s), nil
	case IntentFastTurn:
		return g.FastTurn(s), nil
	case IntentFinishJob:
		return g.FinishJob(s), nil
	}
	return s, fmt.Errorf("%w: %q", ErrUnknownIntent, in.Type)
}
