// Package engine is the one-call facade over the plugging-plan compiler:
// resolve policy, generate steps, compute materials, optionally merge
// adjacent steps, assemble the plan, and record the compliance trail.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caprock-hq/mesa/pkg/audit"
	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
	"caprock-hq/mesa/pkg/plan/generator"
	"caprock-hq/mesa/pkg/plan/materials"
	"caprock-hq/mesa/pkg/policy"
	"caprock-hq/mesa/pkg/policy/geo"
	"caprock-hq/mesa/pkg/telemetry/metrics"
)

// Jurisdiction identifies which policy layers apply to a well.
type Jurisdiction struct {
	District string
	County   string
	Field    string
}

// Options tunes one compile invocation.
type Options struct {
	// MergeAdjacentFt enables the adjacent-step merge pass with the given
	// depth threshold. Zero disables merging.
	MergeAdjacentFt float64
}

// Engine compiles plugging plans. It is purely functional per invocation:
// the pack snapshot and centroid table are immutable inputs, and concurrent
// compiles for different wells need no coordination.
type Engine struct {
	registry  *policy.Registry
	centroids *geo.Table
	logger    *slog.Logger
	metrics   *metrics.Collector
	recorder  *audit.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithAuditRecorder attaches a compliance-trail recorder.
func WithAuditRecorder(r *audit.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New creates an engine over a pack registry and centroid table. The
// centroid table may be nil, which disables geospatial field fallback.
func New(registry *policy.Registry, centroids *geo.Table, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		registry:  registry,
		centroids: centroids,
		logger:    logger.With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile builds the plugging plan for one well. Per-well data-quality
// problems never fail a compile; they surface as violations on the plan.
// The only error is having no pack loaded, which is an operator problem.
func (e *Engine) Compile(ctx context.Context, f facts.Facts, j Jurisdiction, opts Options) (*plan.Plan, *policy.Effective, error) {
	pack := e.registry.Current()
	if pack == nil {
		return nil, nil, fmt.Errorf("no policy pack loaded")
	}

	start := time.Now()

	resolver := policy.NewResolver(pack, e.centroids, e.logger)
	eff := resolver.Resolve(j.District, j.County, j.Field)

	gen := generator.New(eff, e.logger)
	steps, violations := gen.Generate(f)

	if !eff.Complete {
		violations = append(violations, plan.Violation{
			Severity: plan.SeverityWarning,
			RuleID:   plan.RulePolicyIncomplete,
			Message:  fmt.Sprintf("effective policy is missing %d required knob(s)", len(eff.IncompleteReasons)),
			Context:  map[string]any{"missing": eff.IncompleteReasons},
		})
	}

	geom := generator.GeometryFromFacts(f)
	baseExcess := eff.FloatOr("requirements.excess_factor", 0.4)
	recipeFor := recipeResolver(eff)

	for _, s := range steps {
		materials.ComputeStep(s, geom, recipeFor(s.CementClass), baseExcess)
	}

	if opts.MergeAdjacentFt > 0 {
		steps = plan.MergeAdjacent(steps, plan.MergeOptions{
			ThresholdFt: opts.MergeAdjacentFt,
			Recompute: func(s *plan.Step) {
				// The unified midpoint may cross the class cutoff.
				s.CementClass = generator.CementClassFor(eff, s.Midpoint())
				materials.ComputeStep(s, geom, recipeFor(s.CementClass), baseExcess)
			},
		})
	}

	// The sack floor runs after merging so a recomputed unified interval is
	// still held to the minimum.
	generator.ApplySackFloor(steps)

	p := plan.Assemble(steps, violations, eff.PolicyID, eff.PolicyVersion)

	e.observe(ctx, f, eff, p, time.Since(start))

	return p, eff, nil
}

// recipeResolver returns a recipe lookup honoring per-pack recipe
// overrides under cement_class.recipes.{class}.
func recipeResolver(eff *policy.Effective) func(class string) materials.Recipe {
	return func(class string) materials.Recipe {
		recipe := materials.RecipeFor(class)
		prefix := "cement_class.recipes." + class
		if y, ok := eff.Float(prefix + ".yield_ft3_per_sack"); ok {
			recipe.YieldFt3PerSack = y
		}
		if w, ok := eff.Float(prefix + ".water_gal_per_sack"); ok {
			recipe.WaterGalPerSack = w
		}
		recipe.Class = class
		return recipe
	}
}

// observe emits metrics and the audit event for one compile.
func (e *Engine) observe(ctx context.Context, f facts.Facts, eff *policy.Effective, p *plan.Plan, elapsed time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordCompile(string(eff.FieldResolution.Method), eff.Complete, len(p.Steps), elapsed)
		for _, v := range p.Violations {
			e.metrics.RecordViolation(string(v.Severity))
		}
	}

	if e.recorder != nil {
		api14, _ := f.String(facts.KeyAPI14)
		event := audit.Event{
			API14:             api14,
			PolicyID:          eff.PolicyID,
			PolicyVersion:     eff.PolicyVersion,
			District:          eff.District,
			County:            eff.County,
			Field:             eff.Field,
			ResolutionMethod:  string(eff.FieldResolution.Method),
			MatchedField:      eff.FieldResolution.MatchedField,
			MatchedInCounty:   eff.FieldResolution.MatchedInCounty,
			NearestDistanceKM: eff.FieldResolution.NearestDistanceKM,
			PolicyComplete:    eff.Complete,
			IncompleteReasons: eff.IncompleteReasons,
			PlanID:            p.PlanID,
			StepCount:         len(p.Steps),
			ViolationCount:    len(p.Violations),
		}
		if err := e.recorder.Record(ctx, event); err != nil {
			e.logger.Warn("audit record failed", "error", err)
		}
	}
}
