// Package generator synthesizes the ordered plugging-step list for one well
// from its facts and the resolved effective policy.
//
// Generation is a fixed pipeline of independent rules, each a pure
// (facts, policy, steps) -> steps-delta function, run in a fixed order:
// baseline scaffold, mechanical-barrier gating, new-CIBP detection,
// annular-gap perforate-and-squeeze, mechanical isolation, formation-top
// plugs, overlap suppression, tagging enrichment, cement-class selection.
// Rules append violations instead of failing; generation always produces a
// best-effort step list.
package generator

import (
	"log/slog"

	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
	"caprock-hq/mesa/pkg/plan/materials"
	"caprock-hq/mesa/pkg/policy"
)

// Policy knob defaults, used when the resolved policy omits the knob. The
// resolver reports the omission separately; generation still proceeds.
const (
	defaultShoePlugLengthFt    = 100.0
	defaultUQWSpanFt           = 50.0
	defaultTopPlugLengthFt     = 100.0
	defaultCasingCutFt         = 3.0
	defaultCIBPCapLengthFt     = 100.0
	defaultSqueezeCapLengthFt  = 50.0
	defaultSqueezeMaxFt        = 100.0
	defaultMechanicalSpanFt    = 50.0
	defaultFormationSpanFt     = 50.0
	defaultTagWaitHr           = 4.0
	defaultExcessFraction      = 0.4
	defaultCementCutoffFt      = 4000.0
	defaultHorizonPlugAboveFt  = 50.0

	// cibpClearanceIn is subtracted from casing ID to recommend a CIBP size.
	cibpClearanceIn = 0.25
)

// ruleFunc is one generation rule. Rules mutate the run in place: append
// steps, drop steps, raise violations.
type ruleFunc func(r *run)

// run is the mutable state threaded through the rule pipeline for one well.
type run struct {
	facts  facts.Facts
	eff    *policy.Effective
	geom   materials.Geometry
	steps  []*plan.Step
	logger *slog.Logger

	violations []plan.Violation
}

// Generator synthesizes plugging steps for wells under one resolved policy.
type Generator struct {
	eff    *policy.Effective
	logger *slog.Logger
}

// New creates a generator over a resolved effective policy.
func New(eff *policy.Effective, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		eff:    eff,
		logger: logger.With("component", "plan.generator"),
	}
}

// Generate runs the rule pipeline and returns the unordered step list and
// any violations raised. Ordering and step ids are the assembler's job.
func (g *Generator) Generate(f facts.Facts) ([]*plan.Step, []plan.Violation) {
	r := &run{
		facts:  f,
		eff:    g.eff,
		geom:   GeometryFromFacts(f),
		logger: g.logger,
	}

	rules := []ruleFunc{
		scaffoldSteps,
		gateExistingBarriers,
		detectNewCIBP,
		detectAnnularGaps,
		mechanicalIsolationPlugs,
		formationTopPlugs,
		suppressOverlaps,
		enrichTagging,
		selectCementClass,
	}
	for _, rule := range rules {
		rule(r)
	}

	g.logger.Debug("generation complete",
		"steps", len(r.steps),
		"violations", len(r.violations),
	)
	return r.steps, r.violations
}

// GeometryFromFacts extracts wellbore geometry facts for the materials
// engine. Absent facts stay nil; volumes are never computed from guesses.
func GeometryFromFacts(f facts.Facts) materials.Geometry {
	g := materials.Geometry{}
	if v, ok := f.Float(facts.KeyCasingID); ok {
		g.CasingIDIn = &v
	}
	if v, ok := f.Float(facts.KeyCasingOD); ok {
		g.CasingODIn = &v
	}
	if v, ok := f.Float(facts.KeyStingerOD); ok {
		g.StingerODIn = &v
	}
	if v, ok := f.Float(facts.KeyHoleSize); ok {
		g.HoleSizeIn = &v
	}
	if v, ok := f.Float(facts.KeyProductionShoe); ok {
		g.ProductionShoeFt = &v
	}
	if v, ok := f.Float(facts.KeyLinerTop); ok {
		g.LinerTopFt = &v
	}
	if v, ok := f.Float(facts.KeyLinerShoe); ok {
		g.LinerShoeFt = &v
	}
	return g
}

// violate records a diagnostic without interrupting generation.
func (r *run) violate(severity plan.Severity, ruleID, message string, context map[string]any) {
	r.violations = append(r.violations, plan.Violation{
		Severity: severity,
		RuleID:   ruleID,
		Message:  message,
		Context:  context,
	})
}

// add appends a step to the run.
func (r *run) add(steps ...*plan.Step) {
	r.steps = append(r.steps, steps...)
}

// producingTop computes the top of the interval with the deepest bottom,
// preferring the explicit producing/injection/disposal interval list and
// falling back to the deepest formation top. The second return is the
// deepest bottom (equal to the top in the formation fallback), the third
// reports whether anything was found.
func (r *run) producingTop() (float64, float64, bool) {
	ivs := r.facts.Intervals()
	if len(ivs) > 0 {
		deepest := ivs[0]
		for _, iv := range ivs[1:] {
			if iv.BottomFt > deepest.BottomFt {
				deepest = iv
			}
		}
		return deepest.TopFt, deepest.BottomFt, true
	}

	tops := r.facts.FormationTops()
	if len(tops) == 0 {
		return 0, 0, false
	}
	deepest := 0.0
	found := false
	for _, depth := range tops {
		if depth > deepest {
			deepest = depth
			found = true
		}
	}
	return deepest, deepest, found
}
