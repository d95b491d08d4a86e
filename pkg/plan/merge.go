package plan

import (
	"sort"
)

// MergeOptions configures the optional adjacent-step merge pass.
type MergeOptions struct {
	// ThresholdFt is the maximum gap between two same-type steps that may
	// be coalesced into one.
	ThresholdFt float64

	// Types restricts which step types merge. Defaults to formation-top
	// plugs only; merging across differing types is never allowed.
	Types []StepType

	// Recompute fills in materials for a merged step's unified interval.
	// The caller owns geometry and recipe selection; nil leaves the merged
	// step without a sack count.
	Recompute func(*Step)
}

// MergeAdjacent coalesces consecutive same-type steps whose depth gap is
// within the threshold into one step spanning the union interval. Citations
// are unioned, the merge provenance is recorded on details, a tag
// requirement on any source propagates, and materials are recomputed for
// the unified interval.
func MergeAdjacent(steps []*Step, opts MergeOptions) []*Step {
	if opts.ThresholdFt <= 0 || len(steps) < 2 {
		return steps
	}

	mergeable := make(map[StepType]bool)
	if len(opts.Types) == 0 {
		mergeable[StepFormationTopPlug] = true
	} else {
		for _, t := range opts.Types {
			mergeable[t] = true
		}
	}

	sorted := make([]*Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TopFt < sorted[j].TopFt
	})

	var out []*Step
	for _, s := range sorted {
		if len(out) == 0 {
			out = append(out, s)
			continue
		}

		prev := out[len(out)-1]
		if !canMerge(prev, s, mergeable, opts.ThresholdFt) {
			out = append(out, s)
			continue
		}
		out[len(out)-1] = mergeSteps(prev, s, opts)
	}

	return out
}

func canMerge(a, b *Step, mergeable map[StepType]bool, thresholdFt float64) bool {
	if a.Type != b.Type || !mergeable[a.Type] {
		return false
	}
	if a.BottomFt == nil || b.BottomFt == nil {
		return false
	}
	gap := b.TopFt - *a.BottomFt
	return gap <= thresholdFt
}

// mergeSteps combines two adjacent compatible steps into one spanning step.
func mergeSteps(a, b *Step, opts MergeOptions) *Step {
	top := a.TopFt
	if b.TopFt < top {
		top = b.TopFt
	}
	bottom := *a.BottomFt
	if *b.BottomFt > bottom {
		bottom = *b.BottomFt
	}

	merged := NewStep(a.Type, top, bottom)
	merged.RegulatoryBasis = unionStrings(a.RegulatoryBasis, b.RegulatoryBasis)
	merged.SetDetail("merged", true)
	merged.SetDetail("merged_steps", append(sourceEntries(a), sourceEntries(b)...))
	if a.DetailBool("tag_required") || b.DetailBool("tag_required") {
		merged.SetDetail("tag_required", true)
	}
	if v, ok := a.Details["verification"]; ok {
		merged.SetDetail("verification", v)
	} else if v, ok := b.Details["verification"]; ok {
		merged.SetDetail("verification", v)
	}
	// Default when no recompute is injected; a recompute callback re-selects
	// the class against the unified midpoint.
	merged.CementClass = a.CementClass

	if opts.Recompute != nil {
		opts.Recompute(merged)
	}

	return merged
}

// sourceEntries flattens a step (possibly itself a prior merge) into merge
// provenance entries.
func sourceEntries(s *Step) []map[string]any {
	if prior, ok := s.Details["merged_steps"].([]map[string]any); ok {
		return prior
	}

	entry := map[string]any{
		"top_ft": s.TopFt,
	}
	if s.BottomFt != nil {
		entry["bottom_ft"] = *s.BottomFt
	}
	if formation, ok := s.Details["formation"].(string); ok {
		entry["formation"] = formation
	}
	return []map[string]any{entry}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
