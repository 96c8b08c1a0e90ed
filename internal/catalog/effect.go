package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EffectKind is the closed set of effect variants the aggregator knows how to
// fold. Each kind has exactly one combine rule.
type EffectKind uint8

const (
	EffectUnknown EffectKind = iota
	EffectBuildSpeed
	EffectCrewEff
	EffectIncomePerSec
	EffectWinRate
	EffectMoraleCap
	EffectMoraleDaily
	EffectMoraleFloor
	EffectMaterials
	EffectFuel
	EffectPermitsPassive
	EffectConcreteSpeed
	EffectStructureSpeed
	EffectTurnsPerDay
	EffectCrewCap
	EffectTruckCapacity
	EffectTruckCondition
	// EffectRate is the generic "rates.<field>" additive merge.
	EffectRate
)

var effectKeys = map[string]EffectKind{
	"buildSpeed":         EffectBuildSpeed,
	"crewEff":            EffectCrewEff,
	"incomePerSec":       EffectIncomePerSec,
	"winRate":            EffectWinRate,
	"moraleCap":          EffectMoraleCap,
	"moraleDaily":        EffectMoraleDaily,
	"moraleFloor":        EffectMoraleFloor,
	"materialsMod":       EffectMaterials,
	"fuelCostMod":        EffectFuel,
	"permitsPassive":     EffectPermitsPassive,
	"job.concreteSpeed":  EffectConcreteSpeed,
	"job.structureSpeed": EffectStructureSpeed,
	"turnsPerDay":        EffectTurnsPerDay,
	"crewCap":            EffectCrewCap,
	"truck.capacity":     EffectTruckCapacity,
	"truck.condition":    EffectTruckCondition,
}

// Effect is a single named delta.
type Effect struct {
	Kind  EffectKind
	Field string // only set for EffectRate
	Value float64
}

// Key returns the content key the effect was parsed from.
func (e Effect) Key() string {
	if e.Kind == EffectRate {
		return "rates." + e.Field
	}
	for k, kind := range effectKeys {
		if kind == e.Kind {
			return k
		}
	}
	return ""
}

// ParseEffect maps a content key to its variant. Unrecognized keys report false.
func ParseEffect(key string, value float64) (Effect, bool) {
	if kind, ok := effectKeys[key]; ok {
		return Effect{Kind: kind, Value: value}, true
	}
	group, field, found := strings.Cut(key, ".")
	if found && group == "rates" && field != "" && !strings.Contains(field, ".") {
		return Effect{Kind: EffectRate, Field: field, Value: value}, true
	}
	return Effect{}, false
}

// Bundle is an ordered set of effects. It serializes as a JSON object keyed by
// effect key, preserving order.
type Bundle []Effect

// Merge returns a new bundle with other's values added key by key.
func (b Bundle) Merge(other Bundle) Bundle {
	var out Bundle
	out = append(out, b...)
	for _, e := range other {
		merged := false
		for i := range out {
			if out[i].Kind == e.Kind && out[i].Field == e.Field {
				out[i].Value += e.Value
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns an independent copy.
func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	out := make(Bundle, len(b))
	copy(out, b)
	return out
}

// Get returns the summed value for a key.
func (b Bundle) Get(key string) float64 {
	var total float64
	for _, e := range b {
		if e.Key() == key {
			total += e.Value
		}
	}
	return total
}

func (b Bundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *Bundle) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("effect bundle: expected object, got %v", tok)
	}
	var out Bundle
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("effect %q: %w", key, err)
		}
		if e, ok := ParseEffect(key, value); ok {
			out = out.Merge(Bundle{e})
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}
