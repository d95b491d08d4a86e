package generator

import (
	"math"

	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
	"caprock-hq/mesa/pkg/plan/materials"
)

// detectAnnularGaps emits a compound perforate-and-squeeze step for every
// annular gap the caller flagged as requiring isolation without cement
// behind pipe: perforations over a squeeze sub-interval centered in the gap,
// squeeze behind pipe, and a fixed-length cement cap above.
func detectAnnularGaps(r *run) {
	gaps := r.facts.AnnularGaps()
	if len(gaps) == 0 {
		return
	}

	existingCIBP, haveCIBP := r.facts.Float(facts.KeyExistingCIBP)
	maxSqueeze := r.eff.FloatOr("requirements.squeeze_interval_max_ft", defaultSqueezeMaxFt)
	capLen := r.eff.FloatOr("requirements.squeeze_cap_length_ft", defaultSqueezeCapLengthFt)

	for _, gap := range gaps {
		if !gap.RequiresIsolation || gap.CementPresent {
			continue
		}
		if r.facts.HasBarrier("CIBP") && haveCIBP && gap.TopFt > existingCIBP {
			// Behind-pipe work below an existing CIBP conflicts with the
			// barrier; the gating rule owns that region.
			continue
		}

		// Squeeze sub-interval: centered in the gap, length-capped.
		center := (gap.TopFt + gap.BottomFt) / 2
		length := math.Min(gap.BottomFt-gap.TopFt, maxSqueeze)
		sqTop := center - length/2
		sqBottom := center + length/2

		context := materials.SqueezeContext(sqBottom, r.geom)

		step := plan.NewStep(plan.StepPerforateAndSqueeze, sqTop-capLen, sqBottom)
		step.SetDetail("squeeze", map[string]any{
			"top_ft":    sqTop,
			"bottom_ft": sqBottom,
		})
		step.SetDetail("cap", map[string]any{
			"length_ft": capLen,
			"top_ft":    sqTop - capLen,
			"bottom_ft": sqTop,
		})
		step.SetDetail("geometry_for_squeeze", map[string]any{
			"context": context,
		})
		step.SetDetail("annular_gap", map[string]any{
			"top_ft":    gap.TopFt,
			"bottom_ft": gap.BottomFt,
		})
		step.RegulatoryBasis = r.eff.Citations("requirements.annular_isolation.citations")
		r.add(step)
	}
}
