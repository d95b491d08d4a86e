package generator

import (
	"caprock-hq/mesa/pkg/plan"
	"caprock-hq/mesa/pkg/policy"
)

// taggedByDefault are step types whose placement must be verified by
// tagging regardless of overlay flags.
var taggedByDefault = map[plan.StepType]bool{
	plan.StepBridgePlugCap: true,
}

// enrichTagging attaches the verification requirement to every step whose
// type or overlay flag requires a tag after placement.
func enrichTagging(r *run) {
	waitHr := r.eff.FloatOr("requirements.tagging.required_wait_hr", defaultTagWaitHr)
	requiredTypes := make(map[plan.StepType]bool, len(taggedByDefault))
	for t := range taggedByDefault {
		requiredTypes[t] = true
	}
	if types, ok := r.eff.StringsKnob("requirements.tagging.step_types"); ok {
		for _, t := range types {
			requiredTypes[plan.StepType(t)] = true
		}
	}

	for _, s := range r.steps {
		if !requiredTypes[s.Type] && !s.DetailBool("tag_required") {
			continue
		}
		s.SetDetail("verification", map[string]any{
			"action":           "TAG",
			"required_wait_hr": waitHr,
		})
	}
}

// CementClassFor picks the shallow or deep cement class for an interval
// midpoint against the policy cutoff depth. Exposed so a post-generation
// transform over a changed interval picks the same class the pipeline would.
func CementClassFor(eff *policy.Effective, midpointFt float64) string {
	cutoff := eff.FloatOr("cement_class.cutoff_ft", defaultCementCutoffFt)
	shallow, _ := eff.String("cement_class.shallow")
	deep, _ := eff.String("cement_class.deep")
	if shallow == "" {
		shallow = "A"
	}
	if deep == "" {
		deep = "H"
	}
	if midpointFt >= cutoff {
		return deep
	}
	return shallow
}

// selectCementClass picks the cement class for every cement-bearing step by
// comparing the interval midpoint to the policy cutoff depth.
func selectCementClass(r *run) {
	for _, s := range r.steps {
		if !s.CementBearing() {
			continue
		}
		s.CementClass = CementClassFor(r.eff, s.Midpoint())
	}
}

// sackFloorExempt are step types outside the minimum-sack rule: mechanical
// devices and the caps poured directly on them.
var sackFloorExempt = map[plan.StepType]bool{
	plan.StepBridgePlug:     true,
	plan.StepCementRetainer: true,
	plan.StepBridgePlugCap:  true,
}

// minimumSacks is the regulatory floor for a cement plug.
const minimumSacks = 25

// ApplySackFloor raises any non-exempt cement-bearing step computed below
// the 25-sack minimum to exactly 25 sacks, recording the original
// computation. Manual materials overrides are left alone. Runs after the
// materials engine has filled in sack counts.
func ApplySackFloor(steps []*plan.Step) {
	for _, s := range steps {
		if !s.CementBearing() || sackFloorExempt[s.Type] {
			continue
		}
		if s.DetailBool("materials_override") {
			continue
		}
		if s.Sacks == nil || *s.Sacks >= minimumSacks {
			continue
		}

		original := *s.Sacks
		floored := minimumSacks
		s.Sacks = &floored
		s.SetDetail("texas_25_sack_minimum_applied", true)
		s.SetDetail("original_calculated_sacks", original)
	}
}
