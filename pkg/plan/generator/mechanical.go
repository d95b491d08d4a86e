package generator

import (
	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
)

// mechanicalIsolationPlugs emits a cement plug around each detected packer
// or DV-tool depth, unless an existing cement step already spans it. Left
// downhole, these tools are leak paths; the plug seals across them.
func mechanicalIsolationPlugs(r *run) {
	span := r.eff.FloatOr("requirements.mechanical_isolation_span_ft", defaultMechanicalSpanFt)

	devices := []struct {
		key  string
		name string
	}{
		{facts.KeyPackerFt, "packer"},
		{facts.KeyDVToolFt, "dv_tool"},
	}

	for _, dev := range devices {
		depth, ok := r.facts.Float(dev.key)
		if !ok {
			continue
		}

		top, bottom := depth-span, depth+span
		if spannedByCement(r.steps, top, bottom) {
			r.logger.Debug("mechanical device already spanned by cement",
				"device", dev.name,
				"depth_ft", depth,
			)
			continue
		}

		step := plan.NewStep(plan.StepMechanicalIsolation, top, bottom)
		step.SetDetail("device", dev.name)
		step.SetDetail("device_depth_ft", depth)
		step.RegulatoryBasis = r.eff.Citations("requirements.mechanical_isolation.citations")
		r.add(step)
	}
}

// spannedByCement reports whether any existing cement step fully contains
// [top, bottom].
func spannedByCement(steps []*plan.Step, top, bottom float64) bool {
	for _, s := range steps {
		if s.CementBearing() && s.Covers(top, bottom) {
			return true
		}
	}
	return false
}
