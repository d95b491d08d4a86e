package generator

import (
	"math"

	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
)

// gateExistingBarriers handles wells that already carry a CIBP: a cement
// cap above the existing barrier is synthesized if no step provides one.
// Suppression of perforate work below the barrier lives in the annular-gap
// detector, which declines those gaps before emitting anything.
func gateExistingBarriers(r *run) {
	if !r.facts.HasBarrier("CIBP") {
		return
	}

	cibpDepth, haveDepth := r.facts.Float(facts.KeyExistingCIBP)
	if !haveDepth {
		r.violate(plan.SeverityWarning, "EXISTING_CIBP_DEPTH_UNKNOWN",
			"existing CIBP reported without a set depth; cap not synthesized",
			map[string]any{"fact": facts.KeyExistingCIBP})
		return
	}

	capLen := r.eff.FloatOr("requirements.cement_above_cibp_min_ft", defaultCIBPCapLengthFt)
	for _, s := range r.steps {
		if s.CementBearing() && s.Covers(cibpDepth, cibpDepth) {
			return // a cement step already sits on the barrier
		}
	}

	cap := plan.NewStep(plan.StepBridgePlugCap, cibpDepth, cibpDepth+capLen)
	cap.SetDetail("caps_existing_cibp", true)
	cap.SetDetail("cibp_ft", cibpDepth)
	cap.RegulatoryBasis = r.eff.Citations("requirements.cibp.citations")
	r.add(cap)
}

// detectNewCIBP is the fixed (non-heuristic) bridge-plug detector. The
// producing top is the top of the interval with the deepest bottom; when
// that interval is exposed below the production shoe and no squeeze already
// covers it, a CIBP is set just above it with a cement cap on top.
//
// When both a perforation-based and a kick-off-point-based depth are
// computable, the shallowest wins: min(producing_top - 10, kop_md - 50).
func detectNewCIBP(r *run) {
	if r.facts.HasBarrier("CIBP") {
		return // existing barrier already gated
	}

	producingTop, deepestBottom, ok := r.producingTop()
	if !ok {
		return
	}

	shoe, haveShoe := r.facts.Float(facts.KeyProductionShoe)
	if !haveShoe {
		return
	}
	if deepestBottom < shoe && producingTop < shoe {
		return // interval fully behind pipe, not exposed
	}

	for _, s := range r.steps {
		if s.Type == plan.StepPerforateAndSqueeze && s.Covers(producingTop, producingTop) {
			return // squeeze work already isolates the producing top
		}
	}

	depth := producingTop - 10
	if kop, ok := r.facts.Float(facts.KeyKickoffMD); ok {
		depth = math.Min(depth, kop-50)
	}

	bridge := plan.NewPointStep(plan.StepBridgePlug, depth)
	bridge.SetDetail("producing_top_ft", producingTop)
	if r.geom.CasingIDIn != nil {
		bridge.SetDetail("recommended_cibp_size_in", *r.geom.CasingIDIn-cibpClearanceIn)
	}
	bridge.RegulatoryBasis = r.eff.Citations("requirements.cibp.citations")
	r.add(bridge)

	capLen := r.eff.FloatOr("requirements.cement_above_cibp_min_ft", defaultCIBPCapLengthFt)
	cap := plan.NewStep(plan.StepBridgePlugCap, depth, depth+capLen)
	cap.SetDetail("caps_new_cibp", true)
	cap.RegulatoryBasis = r.eff.Citations("requirements.cibp.citations")
	r.add(cap)
}
