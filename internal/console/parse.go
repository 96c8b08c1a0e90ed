// Package console maps typed command lines to game intents.
package console

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/talgya/career-clicker/internal/catalog"
	"github.com/talgya/career-clicker/internal/engine"
)

// Query names a command answered by the console itself.
type Query string

const (
	QueryNone   Query = ""
	QueryStatus Query = "status"
	QueryHelp   Query = "help"
	QueryQuit   Query = "quit"
)

// Command is one parsed line: an intent for the session or a local query.
type Command struct {
	Intent *engine.Intent
	Query  Query
}

// ParseError explains a line that could not be mapped, with close matches
// when there are any.
type ParseError struct {
	Msg         string
	Suggestions []string
}

func (e *ParseError) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (did you mean: %s?)", e.Msg, strings.Join(e.Suggestions, ", "))
}

var verbs = []string{
	"take", "work", "end", "buy", "assign", "hire", "policy",
	"promote", "bid", "prestige", "dev", "status", "help", "quit",
}

var verbAliases = map[string]string{
	"start": "take",
	"gig":   "take",
	"st":    "status",
	"h":     "help",
	"?":     "help",
	"exit":  "quit",
	"q":     "quit",
}

// Parser resolves command words and content ids, tolerating typos.
type Parser struct {
	content *catalog.Catalog
}

func NewParser(c *catalog.Catalog) *Parser {
	return &Parser{content: c}
}

// Parse maps line to a command. s supplies state-dependent names such as
// crew members.
func (p *Parser) Parse(s *engine.State, line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, &ParseError{Msg: "enter a command, or help"}
	}
	verb, err := resolveVerb(strings.ToLower(fields[0]))
	if err != nil {
		return Command{}, err
	}
	args := fields[1:]

	switch verb {
	case "status":
		return Command{Query: QueryStatus}, nil
	case "help":
		return Command{Query: QueryHelp}, nil
	case "quit":
		return Command{Query: QueryQuit}, nil
	case "promote":
		return intent(engine.Intent{Type: engine.IntentPromoteStage}), nil
	case "take", "work", "bid":
		if len(args) == 0 {
			return Command{}, &ParseError{Msg: verb + " which job?"}
		}
		id, err := resolve("job", args[0], p.jobIDs())
		if err != nil {
			return Command{}, err
		}
		types := map[string]engine.IntentType{
			"take": engine.IntentTakeGig,
			"work": engine.IntentWorkJob,
			"bid":  engine.IntentBidJob,
		}
		return intent(engine.Intent{Type: types[verb], ID: id}), nil
	case "end":
		return p.parseEnd(args)
	case "buy":
		return p.parseBuy(args)
	case "assign":
		return p.parseAssign(s, args)
	case "hire":
		return p.parseHire(args), nil
	case "policy":
		return p.parsePolicy(args)
	case "dev":
		return parseDev(args)
	case "prestige":
		choices := make([]string, 0, len(args))
		for _, a := range args {
			id, err := resolve("prestige choice", a, p.choiceIDs())
			if err != nil {
				return Command{}, err
			}
			choices = append(choices, id)
		}
		return intent(engine.Intent{Type: engine.IntentPrestige, Choices: choices}), nil
	}
	return Command{}, &ParseError{Msg: fmt.Sprintf("unknown command %q", fields[0])}
}

func intent(in engine.Intent) Command {
	return Command{Intent: &in}
}

func (p *Parser) parseEnd(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &ParseError{Msg: "end turn or end day?"}
	}
	what, err := resolve("end", strings.ToLower(args[0]), []string{"turn", "day"})
	if err != nil {
		return Command{}, err
	}
	if what == "day" {
		return intent(engine.Intent{Type: engine.IntentEndDay}), nil
	}
	return intent(engine.Intent{Type: engine.IntentEndTurn}), nil
}

func (p *Parser) parseBuy(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &ParseError{Msg: "buy tool, upgrade or materials?"}
	}
	kind, err := resolve("purchase", strings.ToLower(args[0]), []string{"tool", "upgrade", "materials"})
	if err != nil {
		return Command{}, err
	}
	rest := args[1:]

	switch kind {
	case "tool", "upgrade":
		if len(rest) == 0 {
			return Command{}, &ParseError{Msg: "buy which " + kind + "?"}
		}
		if kind == "tool" {
			id, err := resolve("tool", rest[0], p.toolIDs())
			if err != nil {
				return Command{}, err
			}
			return intent(engine.Intent{Type: engine.IntentBuyTool, ID: id}), nil
		}
		id, err := resolve("upgrade", rest[0], p.upgradeIDs())
		if err != nil {
			return Command{}, err
		}
		return intent(engine.Intent{Type: engine.IntentBuyUpgrade, ID: id}), nil
	}

	if len(rest) == 0 || len(rest)%2 != 0 {
		return Command{}, &ParseError{Msg: "usage: buy materials <name> <qty> [<name> <qty>...]"}
	}
	order := make(map[string]float64, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		name, err := resolve("material", strings.ToLower(rest[i]), engine.MaterialNames())
		if err != nil {
			return Command{}, err
		}
		qty, err := strconv.ParseFloat(rest[i+1], 64)
		if err != nil || qty <= 0 {
			return Command{}, &ParseError{Msg: fmt.Sprintf("quantity %q must be a positive number", rest[i+1])}
		}
		order[name] += qty
	}
	return intent(engine.Intent{Type: engine.IntentBuyMaterials, Materials: order}), nil
}

func (p *Parser) parseAssign(s *engine.State, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &ParseError{Msg: "assign whom?"}
	}
	names := make([]string, 0, 2*len(s.Crew.Members))
	byName := make(map[string]string, 2*len(s.Crew.Members))
	for _, m := range s.Crew.Members {
		for _, key := range []string{strings.ToLower(m.ID), strings.ToLower(m.Name)} {
			if _, ok := byName[key]; !ok {
				names = append(names, key)
				byName[key] = m.ID
			}
		}
	}
	who, err := resolve("crew member", strings.ToLower(args[0]), names)
	if err != nil {
		return Command{}, err
	}

	in := engine.Intent{Type: engine.IntentAssignCrew, Member: byName[who]}
	if len(args) > 1 {
		if in.ID, err = resolve("job", args[1], p.jobIDs()); err != nil {
			return Command{}, err
		}
	}
	return intent(in), nil
}

// parseHire reads "hire [name...] [skill]". A trailing crew skill is taken
// as the skill; everything before it is the name.
func (p *Parser) parseHire(args []string) Command {
	in := engine.Intent{Type: engine.IntentHireCrew}
	if n := len(args); n > 0 && p.content.IsCrewSkill(strings.ToLower(args[n-1])) {
		in.Skill = strings.ToLower(args[n-1])
		args = args[:n-1]
	}
	in.Name = strings.Join(args, " ")
	return intent(in)
}

func (p *Parser) parsePolicy(args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &ParseError{Msg: "usage: policy <id> <value>"}
	}
	id, err := resolve("policy", args[0], p.policyIDs())
	if err != nil {
		return Command{}, err
	}
	v, err := catalog.ParsePolicyValue(strings.ToLower(args[1]))
	if err != nil {
		var allowed []string
		for _, pv := range p.content.PolicyValues(id) {
			allowed = append(allowed, pv.String())
		}
		return Command{}, &ParseError{Msg: fmt.Sprintf("invalid value %q for %s", args[1], id), Suggestions: allowed}
	}
	return intent(engine.Intent{Type: engine.IntentTogglePolicy, ID: id, Value: &v}), nil
}

var devCommands = map[string]engine.Intent{
	"on":        {Type: engine.IntentSetDevMode, Flag: true},
	"off":       {Type: engine.IntentSetDevMode},
	"cash":      {Type: engine.IntentAddCash},
	"materials": {Type: engine.IntentAddMaterials},
	"turns":     {Type: engine.IntentFastTurn},
	"finish":    {Type: engine.IntentFinishJob},
}

func parseDev(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &ParseError{Msg: "usage: dev on|off|cash|materials|turns|finish"}
	}
	names := make([]string, 0, len(devCommands))
	for name := range devCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	name, err := resolve("dev command", args[0], names)
	if err != nil {
		return Command{}, err
	}
	return intent(devCommands[name]), nil
}

func (p *Parser) jobIDs() []string {
	ids := make([]string, len(p.content.Jobs))
	for i, j := range p.content.Jobs {
		ids[i] = j.ID
	}
	return ids
}

func (p *Parser) toolIDs() []string {
	ids := make([]string, len(p.content.Tools))
	for i, t := range p.content.Tools {
		ids[i] = t.ID
	}
	return ids
}

func (p *Parser) upgradeIDs() []string {
	ids := make([]string, len(p.content.Upgrades))
	for i, u := range p.content.Upgrades {
		ids[i] = u.ID
	}
	return ids
}

func (p *Parser) policyIDs() []string {
	ids := make([]string, len(p.content.Policies))
	for i, pol := range p.content.Policies {
		ids[i] = pol.ID
	}
	return ids
}

func (p *Parser) choiceIDs() []string {
	ids := make([]string, len(p.content.PrestigeChoices))
	for i, c := range p.content.PrestigeChoices {
		ids[i] = c.ID
	}
	return ids
}

func resolveVerb(token string) (string, error) {
	if canon, ok := verbAliases[token]; ok {
		return canon, nil
	}
	return resolve("command", token, verbs)
}

// resolve accepts an exact match or a unique prefix of at least two
// characters, ignoring case. Anything else fails with the nearest candidates
// by edit distance.
func resolve(kind, token string, candidates []string) (string, error) {
	want := strings.ToLower(token)
	var prefixed []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == want {
			return c, nil
		}
		if len(want) >= 2 && strings.HasPrefix(lc, want) {
			prefixed = append(prefixed, c)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], nil
	}
	if len(prefixed) > 1 {
		sort.Strings(prefixed)
		return "", &ParseError{Msg: fmt.Sprintf("%s %q is ambiguous", kind, token), Suggestions: prefixed}
	}
	return "", &ParseError{Msg: fmt.Sprintf("unknown %s %q", kind, token), Suggestions: bestMatches(want, candidates)}
}

// bestMatches returns up to three candidates within edit distance, closest
// first.
func bestMatches(token string, candidates []string) []string {
	type scored struct {
		val  string
		dist int
	}
	var results []scored
	for _, cand := range candidates {
		dist := levenshtein.ComputeDistance(token, strings.ToLower(cand))
		if dist > levenshteinLimit(len(cand)) {
			continue
		}
		results = append(results, scored{val: cand, dist: dist})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].dist == results[j].dist {
			return results[i].val < results[j].val
		}
		return results[i].dist < results[j].dist
	})

	out := make([]string, 0, 3)
	for _, r := range results {
		if len(out) == 3 {
			break
		}
		out = append(out, r.val)
	}
	return out
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
