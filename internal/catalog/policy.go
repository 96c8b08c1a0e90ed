package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PolicyValue is either a toggle (bool) or a numeric level. It is comparable
// and is used directly as the key of a policy's effect table.
type PolicyValue struct {
	IsToggle bool
	On       bool
	Level    float64
}

// Toggle builds a boolean policy value.
func Toggle(on bool) PolicyValue { return PolicyValue{IsToggle: true, On: on} }

// Level builds a numeric policy value.
func Level(n float64) PolicyValue { return PolicyValue{Level: n} }

// String renders the value the way effect tables are keyed ("true", "2").
func (v PolicyValue) String() string {
	if v.IsToggle {
		return strconv.FormatBool(v.On)
	}
	return strconv.FormatFloat(v.Level, 'f', -1, 64)
}

func (v PolicyValue) MarshalJSON() ([]byte, error) {
	if v.IsToggle {
		return json.Marshal(v.On)
	}
	return json.Marshal(v.Level)
}

func (v *PolicyValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*v = Toggle(true)
	case bytes.Equal(data, []byte("false")):
		*v = Toggle(false)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("policy value: %w", err)
		}
		*v = Level(n)
	}
	return nil
}

// ParsePolicyValue reads console/API text ("true", "off", "2").
func ParsePolicyValue(s string) (PolicyValue, error) {
	switch s {
	case "true", "on", "yes":
		return Toggle(true), nil
	case "false", "off", "no":
		return Toggle(false), nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return PolicyValue{}, fmt.Errorf("policy value %q: %w", s, err)
	}
	return Level(n), nil
}

// Policy is a player-selectable company setting.
type Policy struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           string            `json:"type"` // "toggle" or "level"
	Values         []PolicyValue     `json:"values"`
	Default        *PolicyValue      `json:"default,omitempty"` // first value when unset
	EffectsByLevel map[string]Bundle `json:"effectsByLevel"`

	effects map[PolicyValue]Bundle
}

// Allows reports whether v is one of the declared values.
func (p Policy) Allows(v PolicyValue) bool {
	want := v.String()
	for _, allowed := range p.Values {
		if allowed.String() == want {
			return true
		}
	}
	return false
}

// DefaultValue is the value a fresh game starts with.
func (p Policy) DefaultValue() PolicyValue {
	if p.Default != nil {
		return *p.Default
	}
	if len(p.Values) == 0 {
		return PolicyValue{}
	}
	return p.Values[0]
}

// Effect returns the bundle selected by v. Values without an entry contribute
// nothing.
func (p Policy) Effect(v PolicyValue) (Bundle, bool) {
	b, ok := p.effects[v]
	return b, ok
}

// bind resolves the string-keyed effect table into typed keys.
func (p *Policy) bind() error {
	p.effects = make(map[PolicyValue]Bundle, len(p.EffectsByLevel))
	for key, bundle := range p.EffectsByLevel {
		matched := false
		for _, v := range p.Values {
			if v.String() == key {
				p.effects[v] = bundle
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("%w: policy %s has effects for undeclared value %q", ErrInvalidContent, p.ID, key)
		}
	}
	return nil
}
