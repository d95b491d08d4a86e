// Package metrics exposes prometheus instrumentation for the plan compiler.
//
// Metrics:
//   - mesa_plans_compiled_total: compiles by field-resolution method
//   - mesa_policy_incomplete_total: compiles against an incomplete policy
//   - mesa_plan_steps: step-count distribution of compiled plans
//   - mesa_violations_total: violations raised, by severity
//   - mesa_compile_duration_seconds: compile latency distribution
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks plan-compilation metrics.
type Collector struct {
	plansCompiled    *prometheus.CounterVec
	policyIncomplete prometheus.Counter
	planSteps        prometheus.Histogram
	violations       *prometheus.CounterVec
	compileDuration  prometheus.Histogram
}

// NewCollector creates and registers the compiler metrics on the given
// registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		plansCompiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mesa_plans_compiled_total",
			Help: "Total plugging plans compiled, by field-resolution method.",
		}, []string{"resolution_method"}),

		policyIncomplete: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesa_policy_incomplete_total",
			Help: "Total compiles where the effective policy was incomplete.",
		}),

		planSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mesa_plan_steps",
			Help:    "Number of steps per compiled plan.",
			Buckets: prometheus.LinearBuckets(2, 2, 10),
		}),

		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mesa_violations_total",
			Help: "Total plan violations raised, by severity.",
		}, []string{"severity"}),

		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mesa_compile_duration_seconds",
			Help:    "Plan compile latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	registry.MustRegister(
		c.plansCompiled,
		c.policyIncomplete,
		c.planSteps,
		c.violations,
		c.compileDuration,
	)
	return c
}

// RecordCompile records one plan compilation.
func (c *Collector) RecordCompile(resolutionMethod string, policyComplete bool, stepCount int, elapsed time.Duration) {
	c.plansCompiled.WithLabelValues(resolutionMethod).Inc()
	if !policyComplete {
		c.policyIncomplete.Inc()
	}
	c.planSteps.Observe(float64(stepCount))
	c.compileDuration.Observe(elapsed.Seconds())
}

// RecordViolation records one raised violation.
func (c *Collector) RecordViolation(severity string) {
	c.violations.WithLabelValues(severity).Inc()
}
