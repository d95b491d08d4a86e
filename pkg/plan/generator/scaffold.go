package generator

import (
	"fmt"

	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
)

// scaffoldSteps emits the baseline steps every plan starts from: casing-shoe
// plugs, the usable-quality-water isolation plug, a productive-horizon
// isolation plug when casing crosses a producing interval, and the top plug
// with casing cut. Missing critical facts degrade to a minimal scaffold plus
// a violation, never an abort.
func scaffoldSteps(r *run) {
	surfaceShoe(r)
	productionShoe(r)
	usableWaterIsolation(r)
	productiveHorizon(r)
	topPlugAndCut(r)
}

func surfaceShoe(r *run) {
	shoe, ok := r.facts.Float(facts.KeySurfaceShoe)
	if !ok {
		r.violate(plan.SeverityError, plan.RuleSurfaceShoeDepthUnknown,
			"surface casing shoe depth unknown; surface shoe plug omitted",
			map[string]any{"fact": facts.KeySurfaceShoe})
		return
	}

	length := r.eff.FloatOr("requirements.surface_casing_shoe_plug.length_ft", defaultShoePlugLengthFt)
	step := plan.NewStep(plan.StepCasingShoePlug, shoe-length/2, shoe+length/2)
	step.SetDetail("shoe", "surface")
	step.SetDetail("shoe_depth_ft", shoe)
	step.RegulatoryBasis = r.eff.Citations("requirements.surface_casing_shoe_plug.citations")
	r.add(step)
}

func productionShoe(r *run) {
	shoe, ok := r.facts.Float(facts.KeyProductionShoe)
	if !ok {
		r.violate(plan.SeverityWarning, plan.RuleProductionShoeDepthUnknown,
			"production casing shoe depth unknown; production shoe plug omitted",
			map[string]any{"fact": facts.KeyProductionShoe})
		return
	}

	length := r.eff.FloatOr("requirements.production_casing_shoe_plug.length_ft", defaultShoePlugLengthFt)
	step := plan.NewStep(plan.StepCasingShoePlug, shoe-length/2, shoe+length/2)
	step.SetDetail("shoe", "production")
	step.SetDetail("shoe_depth_ft", shoe)
	step.RegulatoryBasis = r.eff.Citations("requirements.production_casing_shoe_plug.citations")
	r.add(step)
}

func usableWaterIsolation(r *run) {
	hasUQW, ok := r.facts.Bool(facts.KeyHasUQW)
	if !ok || !hasUQW {
		return
	}

	base, ok := r.facts.Float(facts.KeyUQWBase)
	if !ok {
		r.violate(plan.SeverityError, plan.RuleUQWBaseUnknown,
			"well reports usable-quality water but no UQW base depth",
			map[string]any{"fact": facts.KeyUQWBase})
		return
	}

	above := r.eff.FloatOr("requirements.usable_water_isolation.above_ft", defaultUQWSpanFt)
	below := r.eff.FloatOr("requirements.usable_water_isolation.below_ft", defaultUQWSpanFt)
	step := plan.NewStep(plan.StepUQWIsolationPlug, base-above, base+below)
	step.SetDetail("uqw_base_ft", base)
	step.RegulatoryBasis = r.eff.Citations("requirements.usable_water_isolation.citations")
	r.add(step)
}

// productiveHorizon emits an isolation plug across the shallowest producing
// interval a casing string crosses: casing covers the interval top while
// the interval keeps producing into the annulus.
func productiveHorizon(r *run) {
	shoe, ok := r.facts.Float(facts.KeyProductionShoe)
	if !ok {
		return
	}

	for _, iv := range r.facts.Intervals() {
		if iv.TopFt > shoe {
			continue // interval entirely below the casing string
		}
		above := r.eff.FloatOr("requirements.productive_horizon.above_ft", defaultHorizonPlugAboveFt)
		bottom := iv.BottomFt
		if bottom > shoe {
			bottom = shoe
		}
		step := plan.NewStep(plan.StepProductiveHorizonPlug, iv.TopFt-above, bottom)
		step.SetDetail("interval", map[string]any{
			"top_ft":    iv.TopFt,
			"bottom_ft": iv.BottomFt,
			"type":      iv.Kind,
		})
		step.RegulatoryBasis = r.eff.Citations("requirements.productive_horizon.citations")
		r.add(step)
		return
	}
}

func topPlugAndCut(r *run) {
	cutDepth := r.eff.FloatOr("requirements.casing_cut_below_surface_ft", defaultCasingCutFt)
	length := r.eff.FloatOr("requirements.top_plug.length_ft", defaultTopPlugLengthFt)

	top := plan.NewStep(plan.StepTopPlug, cutDepth, cutDepth+length)
	top.RegulatoryBasis = r.eff.Citations("requirements.top_plug.citations")
	r.add(top)

	cut := plan.NewPointStep(plan.StepCasingCut, cutDepth)
	cut.SetDetail("below_surface_ft", cutDepth)
	cut.RegulatoryBasis = r.eff.Citations("requirements.top_plug.citations")
	r.add(cut)

	if len(r.steps) == 2 {
		// Nothing but the top plug and cut survived fact gaps; note the
		// degraded scaffold for the reviewer.
		r.violate(plan.SeverityInfo, "MINIMAL_SCAFFOLD",
			fmt.Sprintf("only %d baseline steps could be generated from available facts", len(r.steps)), nil)
	}
}
