// Package facts models the normalized well facts the engine consumes.
//
// Facts are produced by external collaborators (document extraction, data
// entry) and passed in as a map of fact key to value with provenance. The
// engine never mutates a fact; everything it derives lands on the plan.
package facts

import (
	"fmt"
	"strings"
)

// Well-known fact keys. The required set drives completeness; the optional
// set enables additional generator behavior when present.
const (
	KeyAPI14          = "api14"
	KeyDistrict       = "district"
	KeyCounty         = "county"
	KeyField          = "field"
	KeySurfaceShoe    = "surface_shoe_ft"
	KeyProductionShoe = "production_shoe_ft"
	KeyHasUQW         = "has_uqw"
	KeyUQWBase        = "uqw_base_ft"
	KeyFormationTops  = "formation_tops_map"

	KeyExistingBarriers = "existing_mechanical_barriers"
	KeyExistingCIBP     = "existing_cibp_ft"
	KeyPackerFt         = "packer_ft"
	KeyDVToolFt         = "dv_tool_ft"
	KeyKickoffMD        = "kop.kop_md_ft"
	KeyAnnularGaps      = "annular_gaps"
	KeyPerfIntervals    = "perf_intervals"
	KeyPerfInterval     = "perf_interval"

	KeyCasingID   = "casing_id_in"
	KeyCasingOD   = "casing_od_in"
	KeyStingerOD  = "stinger_od_in"
	KeyHoleSize   = "hole_size_in"
	KeyLinerTop   = "liner_top_ft"
	KeyLinerShoe  = "liner_shoe_ft"
)

// Fact is one normalized well fact with provenance.
type Fact struct {
	Value      any     `json:"value"`
	Units      string  `json:"units,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Facts is the caller-supplied fact map. The engine treats it as read-only.
type Facts map[string]Fact

// Interval is a producing, injection, or disposal interval.
type Interval struct {
	TopFt    float64 `json:"top_ft"`
	BottomFt float64 `json:"bottom_ft"`
	Kind     string  `json:"type,omitempty"`
}

// AnnularGap is one uncemented annular interval flagged by the caller.
type AnnularGap struct {
	TopFt             float64 `json:"top_ft"`
	BottomFt          float64 `json:"bottom_ft"`
	RequiresIsolation bool    `json:"requires_isolation"`
	CementPresent     bool    `json:"cement_present"`
}

// Float returns a numeric fact value.
func (f Facts) Float(key string) (float64, bool) {
	fact, ok := f[key]
	if !ok {
		return 0, false
	}
	return toFloat(fact.Value)
}

// String returns a string fact value.
func (f Facts) String(key string) (string, bool) {
	fact, ok := f[key]
	if !ok {
		return "", false
	}
	s, ok := fact.Value.(string)
	return s, ok
}

// Bool returns a boolean fact value.
func (f Facts) Bool(key string) (bool, bool) {
	fact, ok := f[key]
	if !ok {
		return false, false
	}
	b, ok := fact.Value.(bool)
	return b, ok
}

// Strings returns a string-list fact value, e.g. existing mechanical
// barriers.
func (f Facts) Strings(key string) []string {
	fact, ok := f[key]
	if !ok {
		return nil
	}
	switch v := fact.Value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// HasBarrier reports whether the existing-mechanical-barriers fact lists the
// given barrier type (case-insensitive).
func (f Facts) HasBarrier(barrier string) bool {
	for _, b := range f.Strings(KeyExistingBarriers) {
		if strings.EqualFold(b, barrier) {
			return true
		}
	}
	return false
}

// FormationTops returns the formation-tops map fact as formation name to
// measured depth.
func (f Facts) FormationTops() map[string]float64 {
	fact, ok := f[KeyFormationTops]
	if !ok {
		return nil
	}

	switch v := fact.Value.(type) {
	case map[string]float64:
		return v
	case map[string]any:
		out := make(map[string]float64, len(v))
		for name, depth := range v {
			if d, ok := toFloat(depth); ok {
				out[name] = d
			}
		}
		return out
	default:
		return nil
	}
}

// Intervals returns the producing/injection/disposal interval list. Both the
// structured perf_intervals list and the legacy two-element perf_interval
// form are accepted.
func (f Facts) Intervals() []Interval {
	if fact, ok := f[KeyPerfIntervals]; ok {
		if list, ok := fact.Value.([]any); ok {
			out := make([]Interval, 0, len(list))
			for _, e := range list {
				if iv, ok := decodeInterval(e); ok {
					out = append(out, iv)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}

	if fact, ok := f[KeyPerfInterval]; ok {
		if pair, ok := fact.Value.([]any); ok && len(pair) == 2 {
			top, okT := toFloat(pair[0])
			bottom, okB := toFloat(pair[1])
			if okT && okB {
				return []Interval{{TopFt: top, BottomFt: bottom, Kind: "producing"}}
			}
		}
	}

	return nil
}

// AnnularGaps returns the caller-flagged annular gap list.
func (f Facts) AnnularGaps() []AnnularGap {
	fact, ok := f[KeyAnnularGaps]
	if !ok {
		return nil
	}
	list, ok := fact.Value.([]any)
	if !ok {
		return nil
	}

	out := make([]AnnularGap, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		gap := AnnularGap{}
		if v, ok := toFloat(m["top_ft"]); ok {
			gap.TopFt = v
		}
		if v, ok := toFloat(m["bottom_ft"]); ok {
			gap.BottomFt = v
		}
		if v, ok := m["requires_isolation"].(bool); ok {
			gap.RequiresIsolation = v
		}
		if v, ok := m["cement_present"].(bool); ok {
			gap.CementPresent = v
		}
		out = append(out, gap)
	}
	return out
}

func decodeInterval(v any) (Interval, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Interval{}, false
	}
	top, okT := toFloat(m["top_ft"])
	bottom, okB := toFloat(m["bottom_ft"])
	if !okT || !okB {
		return Interval{}, false
	}
	iv := Interval{TopFt: top, BottomFt: bottom}
	if kind, ok := m["type"].(string); ok {
		iv.Kind = kind
	}
	return iv, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// NewFloat is a convenience constructor for tests and callers assembling
// fact maps in code.
func NewFloat(value float64, source string) Fact {
	return Fact{Value: value, Units: "ft", Source: source, Confidence: 1}
}

// NewString is a convenience constructor for string facts.
func NewString(value, source string) Fact {
	return Fact{Value: value, Source: source, Confidence: 1}
}

// Describe renders a fact for diagnostics.
func (fa Fact) Describe() string {
	return fmt.Sprintf("%v (%s, source=%s, confidence=%.2f)", fa.Value, fa.Units, fa.Source, fa.Confidence)
}
