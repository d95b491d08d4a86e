package generator

import (
	"sort"

	"caprock-hq/mesa/pkg/plan"
	"caprock-hq/mesa/pkg/policy"
)

// formationTopPlugs emits a symmetric plug centered on each formation top
// the resolved policy requires. The well's own formation-tops fact is
// preferred; when a regionally-expected formation has no well-specific top,
// the district fallback anchor is used and flagged.
func formationTopPlugs(r *run) {
	specs := r.eff.Formations()
	if len(specs) == 0 {
		return
	}

	span := r.eff.FloatOr("requirements.formation_plug_span_ft", defaultFormationSpanFt)
	wellTops := r.facts.FormationTops()

	// Deterministic emission order regardless of map iteration.
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := specs[name]

		depth, source, ok := formationDepth(name, wellTops, spec)
		if !ok {
			r.violate(plan.SeverityWarning, "FORMATION_TOP_UNKNOWN",
				"policy requires formation isolation but no top depth is known",
				map[string]any{"formation": name})
			continue
		}

		step := plan.NewStep(plan.StepFormationTopPlug, depth-span, depth+span)
		step.SetDetail("formation", name)
		step.SetDetail("formation_top_ft", depth)
		step.SetDetail("top_source", source)
		if spec.TagRequired {
			step.SetDetail("tag_required", true)
		}
		if len(spec.Citations) > 0 {
			step.RegulatoryBasis = spec.Citations
		} else {
			step.RegulatoryBasis = r.eff.Citations("requirements.formations.citations")
		}
		r.add(step)
	}
}

// formationDepth resolves a formation's top depth: the well-specific top
// wins, the district anchor is the fallback. Top names are scanned in sorted
// order so two aliases matching the same formation pick one depth every run.
func formationDepth(name string, wellTops map[string]float64, spec policy.FormationSpec) (float64, string, bool) {
	topNames := make([]string, 0, len(wellTops))
	for topName := range wellTops {
		topNames = append(topNames, topName)
	}
	sort.Strings(topNames)
	for _, topName := range topNames {
		if policy.FieldNamesMatch(topName, name) {
			return wellTops[topName], "well_log", true
		}
	}
	if spec.AnchorFt != nil {
		return *spec.AnchorFt, "district_anchor", true
	}
	return 0, "", false
}

// suppressOverlaps drops any formation or cement plug fully contained inside
// a perforate/squeeze/cap interval; the squeeze already isolates that
// interval and a redundant plug would double-count materials.
func suppressOverlaps(r *run) {
	var covers []*plan.Step
	for _, s := range r.steps {
		switch s.Type {
		case plan.StepPerforateAndSqueeze, plan.StepBridgePlugCap:
			covers = append(covers, s)
		}
	}
	if len(covers) == 0 {
		return
	}

	kept := r.steps[:0]
	for _, s := range r.steps {
		if suppressible(s) && containedInAny(s, covers) {
			r.logger.Debug("suppressing plug contained in squeeze interval",
				"type", string(s.Type),
				"top_ft", s.TopFt,
			)
			continue
		}
		kept = append(kept, s)
	}
	r.steps = kept
}

func suppressible(s *plan.Step) bool {
	switch s.Type {
	case plan.StepFormationTopPlug, plan.StepMechanicalIsolation, plan.StepProductiveHorizonPlug:
		return true
	default:
		return false
	}
}

func containedInAny(s *plan.Step, covers []*plan.Step) bool {
	if s.BottomFt == nil {
		return false
	}
	for _, c := range covers {
		if c != s && c.Covers(s.TopFt, *s.BottomFt) {
			return true
		}
	}
	return false
}
