// Package materials computes annular capacities, slurry volumes, and sack
// counts for plugging steps. Every function is pure: geometry in, volumes
// out, no I/O. A step missing the geometry needed to compute a volume keeps
// a nil sack count; a volume is never fabricated from absent data.
package materials

import (
	"math"

	"caprock-hq/mesa/pkg/plan"
)

const (
	// bblDivisor converts in² annular area to bbl/ft.
	bblDivisor = 1029.4

	// ft3PerBbl converts barrels of slurry to cubic feet for sack counts.
	ft3PerBbl = 5.615

	// capExcessFraction is the fixed excess applied to cement caps in both
	// cased and open-hole contexts.
	capExcessFraction = 0.4

	// squeezeFactorCased multiplies squeeze volume behind pipe.
	squeezeFactorCased = 1.5

	// squeezeFactorOpenHole multiplies squeeze volume below the production
	// shoe outside any liner.
	squeezeFactorOpenHole = 2.0

	// openHoleEstimateIn is the stopgap hole-size estimate added to casing
	// OD when no drilled hole size is on record.
	openHoleEstimateIn = 2.0
)

// Squeeze geometry contexts recorded on details.geometry_for_squeeze.
const (
	ContextCased             = "cased"
	ContextOpenHole          = "open_hole"
	ContextOpenHoleEstimated = "open_hole_estimated"
)

// Geometry is the wellbore geometry relevant to volume computation. Nil
// fields are unknown.
type Geometry struct {
	CasingIDIn       *float64
	CasingODIn       *float64
	StingerODIn      *float64
	HoleSizeIn       *float64
	ProductionShoeFt *float64
	LinerTopFt       *float64
	LinerShoeFt      *float64
}

// Recipe is one cement slurry recipe.
type Recipe struct {
	Class           string
	YieldFt3PerSack float64
	WaterGalPerSack float64
}

// DefaultRecipes are the compiled-in neat slurry recipes, overridable per
// pack under cement_class.recipes.
var DefaultRecipes = map[string]Recipe{
	"A": {Class: "A", YieldFt3PerSack: 1.18, WaterGalPerSack: 5.2},
	"C": {Class: "C", YieldFt3PerSack: 1.32, WaterGalPerSack: 6.3},
	"H": {Class: "H", YieldFt3PerSack: 1.20, WaterGalPerSack: 4.3},
}

// RecipeFor returns the recipe for a cement class, defaulting to Class H
// when the class is unknown.
func RecipeFor(class string) Recipe {
	if r, ok := DefaultRecipes[class]; ok {
		return r
	}
	return DefaultRecipes["H"]
}

// AnnularCapacityBblPerFt returns the volume per foot of the annulus
// between two concentric diameters, in bbl/ft.
func AnnularCapacityBblPerFt(outerIn, innerIn float64) float64 {
	return math.Pi / 4 * (outerIn*outerIn - innerIn*innerIn) / bblDivisor
}

// SackCount converts a slurry volume to whole sacks, always rounding up.
// Rounding up is a safety requirement: short cement is a failed plug.
func SackCount(totalBbl, yieldFt3PerSack float64) int {
	if totalBbl <= 0 || yieldFt3PerSack <= 0 {
		return 0
	}
	return int(math.Ceil(totalBbl * ft3PerBbl / yieldFt3PerSack))
}

// DepthScaledExcess scales a base excess fraction by +10% per 1000 ft of
// depth, applied multiplicatively to the excess fraction itself.
func DepthScaledExcess(baseExcess, depthFt float64) float64 {
	return baseExcess * (1 + 0.10*depthFt/1000)
}

// SqueezeContext classifies a perforation bottom as cased or open hole:
// open hole only below the production-casing shoe and outside any liner.
func SqueezeContext(perfBottomFt float64, geom Geometry) string {
	if geom.ProductionShoeFt != nil && perfBottomFt > *geom.ProductionShoeFt && !insideLiner(perfBottomFt, geom) {
		return ContextOpenHole
	}
	return ContextCased
}

// SqueezeFactor returns the squeeze multiplier for a perforation depth:
// 2.0 in open-hole context, else 1.5.
func SqueezeFactor(perfBottomFt float64, geom Geometry) float64 {
	if SqueezeContext(perfBottomFt, geom) == ContextOpenHole {
		return squeezeFactorOpenHole
	}
	return squeezeFactorCased
}

func insideLiner(depthFt float64, geom Geometry) bool {
	if geom.LinerTopFt == nil || geom.LinerShoeFt == nil {
		return false
	}
	return depthFt >= *geom.LinerTopFt && depthFt <= *geom.LinerShoeFt
}

// Result is the outcome of one step's materials computation.
type Result struct {
	Sacks      *int
	SqueezeBbl float64
	CapBbl     float64
	TotalBbl   float64
}

// ComputeStep computes and attaches slurry volumes and a sack count for one
// step. Steps that carry no cement, or carry a manual materials override,
// are left untouched. Missing geometry leaves Sacks nil and records why.
func ComputeStep(step *plan.Step, geom Geometry, recipe Recipe, baseExcess float64) Result {
	if !step.CementBearing() || step.DetailBool("materials_override") {
		return Result{}
	}

	if step.Type == plan.StepPerforateAndSqueeze {
		return computeSqueeze(step, geom, recipe)
	}
	return computePlug(step, geom, recipe, baseExcess)
}

// computePlug handles standard cement plugs and CIBP caps: interval length
// times annular capacity plus excess. Caps use the fixed cap excess; plugs
// use the depth-scaled policy excess.
func computePlug(step *plan.Step, geom Geometry, recipe Recipe, baseExcess float64) Result {
	if geom.CasingIDIn == nil || geom.StingerODIn == nil {
		step.SetDetail("materials_skipped_reason", "missing casing ID or stinger OD")
		return Result{}
	}
	interval := step.IntervalFt()
	if interval <= 0 {
		step.SetDetail("materials_skipped_reason", "step has no interval")
		return Result{}
	}

	annCap := AnnularCapacityBblPerFt(*geom.CasingIDIn, *geom.StingerODIn)

	excess := capExcessFraction
	if step.Type != plan.StepBridgePlugCap {
		excess = DepthScaledExcess(baseExcess, step.Midpoint())
	}

	totalBbl := interval * annCap * (1 + excess)
	sacks := SackCount(totalBbl, recipe.YieldFt3PerSack)

	step.Sacks = &sacks
	step.CementClass = recipe.Class
	step.Materials = &plan.Materials{Slurry: &plan.Slurry{
		TotalBbl: totalBbl,
		YieldFt3: recipe.YieldFt3PerSack,
	}}

	return Result{Sacks: &sacks, TotalBbl: totalBbl}
}

// computeSqueeze handles compound perforate-and-squeeze steps: a squeeze
// volume pumped behind pipe (or into open hole) plus a fixed cement cap
// above the perforations.
func computeSqueeze(step *plan.Step, geom Geometry, recipe Recipe) Result {
	sq, ok := step.Details["squeeze"].(map[string]any)
	if !ok {
		step.SetDetail("materials_skipped_reason", "squeeze sub-interval missing")
		return Result{}
	}
	sqTop, okT := toFloat(sq["top_ft"])
	sqBottom, okB := toFloat(sq["bottom_ft"])
	if !okT || !okB || sqBottom <= sqTop {
		step.SetDetail("materials_skipped_reason", "squeeze sub-interval invalid")
		return Result{}
	}

	if geom.StingerODIn == nil {
		step.SetDetail("materials_skipped_reason", "missing stinger OD")
		return Result{}
	}

	context, _ := squeezeContext(step)

	// The squeeze annulus outer diameter is the casing ID behind pipe but
	// the drilled hole diameter in open hole.
	var outer float64
	switch context {
	case ContextCased:
		if geom.CasingIDIn == nil {
			step.SetDetail("materials_skipped_reason", "missing casing ID")
			return Result{}
		}
		outer = *geom.CasingIDIn
	default:
		if geom.HoleSizeIn != nil {
			outer = *geom.HoleSizeIn
		} else {
			if geom.CasingODIn == nil {
				step.SetDetail("materials_skipped_reason", "missing hole size and casing OD")
				return Result{}
			}
			// Stopgap estimate carried from the source system; flagged so
			// the provenance is auditable.
			outer = *geom.CasingODIn + openHoleEstimateIn
			context = ContextOpenHoleEstimated
			setSqueezeContext(step, context)
		}
	}

	factor := squeezeFactorCased
	if context != ContextCased {
		factor = squeezeFactorOpenHole
	}

	sqCap := AnnularCapacityBblPerFt(outer, *geom.StingerODIn)
	squeezeBbl := (sqBottom - sqTop) * sqCap * factor

	// The cap always sits inside casing above the perforations.
	capLen := 0.0
	if capTree, ok := step.Details["cap"].(map[string]any); ok {
		capLen, _ = toFloat(capTree["length_ft"])
	}
	capBbl := 0.0
	if capLen > 0 {
		if geom.CasingIDIn == nil {
			step.SetDetail("materials_skipped_reason", "missing casing ID for cap")
			return Result{}
		}
		inCasingCap := AnnularCapacityBblPerFt(*geom.CasingIDIn, *geom.StingerODIn)
		capBbl = capLen * inCasingCap * (1 + capExcessFraction)
	}

	totalBbl := squeezeBbl + capBbl
	sacks := SackCount(totalBbl, recipe.YieldFt3PerSack)

	step.Sacks = &sacks
	step.CementClass = recipe.Class
	step.Materials = &plan.Materials{Slurry: &plan.Slurry{
		SqueezeBbl: squeezeBbl,
		CapBbl:     capBbl,
		TotalBbl:   totalBbl,
		YieldFt3:   recipe.YieldFt3PerSack,
	}}

	return Result{Sacks: &sacks, SqueezeBbl: squeezeBbl, CapBbl: capBbl, TotalBbl: totalBbl}
}

// squeezeContext reads details.geometry_for_squeeze.context.
func squeezeContext(step *plan.Step) (string, bool) {
	g, ok := step.Details["geometry_for_squeeze"].(map[string]any)
	if !ok {
		return ContextCased, false
	}
	ctx, ok := g["context"].(string)
	if !ok {
		return ContextCased, false
	}
	return ctx, true
}

func setSqueezeContext(step *plan.Step, context string) {
	g, ok := step.Details["geometry_for_squeeze"].(map[string]any)
	if !ok {
		g = make(map[string]any)
		step.SetDetail("geometry_for_squeeze", g)
	}
	g["context"] = context
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
