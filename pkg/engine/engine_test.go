package engine

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"caprock-hq/mesa/pkg/audit"
	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
	"caprock-hq/mesa/pkg/policy"
	"caprock-hq/mesa/pkg/telemetry/metrics"
)

func testRegistry(t *testing.T) *policy.Registry {
	t.Helper()
	registry := policy.NewRegistry(nil)
	if _, err := registry.Load(filepath.Join("testdata", "pack", "base.yml")); err != nil {
		t.Fatalf("pack load failed: %v", err)
	}
	return registry
}

// wellFacts is a plugged-back producer: perforations exposed below the
// production shoe, usable water up hole.
func wellFacts() facts.Facts {
	return facts.Facts{
		facts.KeyAPI14:          facts.NewString("42-329-12345-00-00", "filing"),
		facts.KeySurfaceShoe:    facts.NewFloat(1850, "w2"),
		facts.KeyProductionShoe: facts.NewFloat(6815, "w2"),
		facts.KeyHasUQW:         {Value: true},
		facts.KeyUQWBase:        facts.NewFloat(1200, "gw1"),
		facts.KeyCasingID:       {Value: 4.778, Units: "in"},
		facts.KeyCasingOD:       {Value: 5.5, Units: "in"},
		facts.KeyStingerOD:      {Value: 2.375, Units: "in"},
		facts.KeyPerfIntervals: {Value: []any{
			map[string]any{"top_ft": 6748.0, "bottom_ft": 6865.0, "type": "producing"},
		}},
	}
}

func TestCompile(t *testing.T) {
	eng := New(testRegistry(t), nil, nil)

	p, eff, err := eng.Compile(context.Background(), wellFacts(), Jurisdiction{
		District: "8",
		County:   "Midland",
	}, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if eff.District != "08a" {
		t.Errorf("district = %q, want 08a", eff.District)
	}
	if p.PolicyID != "tx-rrc-w3a" || p.PolicyVersion != "2026.1" {
		t.Errorf("policy stamp = %s@%s", p.PolicyID, p.PolicyVersion)
	}

	var bridge, cap *plan.Step
	for _, s := range p.Steps {
		switch s.Type {
		case plan.StepBridgePlug:
			bridge = s
		case plan.StepBridgePlugCap:
			cap = s
		}
	}
	if bridge == nil || bridge.TopFt != 6738 {
		t.Fatalf("bridge plug = %+v, want point at 6738", bridge)
	}
	if cap == nil || cap.TopFt != 6738 || *cap.BottomFt != 6758 {
		t.Fatalf("cap = %+v, want [6738, 6758]", cap)
	}
	if cap.Sacks == nil {
		t.Error("cap missing a computed sack count")
	}

	// Every cement-bearing step with geometry on record got materials and
	// the deep steps got Class H per the cutoff.
	for _, s := range p.Steps {
		if !s.CementBearing() {
			continue
		}
		if s.Sacks == nil {
			t.Errorf("%s at %v ft missing sacks", s.Type, s.TopFt)
			continue
		}
		if s.Type != plan.StepBridgePlugCap && !s.DetailBool("materials_override") && *s.Sacks < 25 {
			t.Errorf("%s has %d sacks, below the floor", s.Type, *s.Sacks)
		}
	}

	if p.MaterialsTotals.TotalSacks == 0 {
		t.Error("missing materials totals")
	}
	if len(p.RRCExport) != len(p.Steps) {
		t.Errorf("export rows = %d, steps = %d", len(p.RRCExport), len(p.Steps))
	}
}

func TestCompileDeterministic(t *testing.T) {
	eng := New(testRegistry(t), nil, nil)
	j := Jurisdiction{District: "08", County: "Midland"}

	first, _, err := eng.Compile(context.Background(), wellFacts(), j, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := eng.Compile(context.Background(), wellFacts(), j, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Plan ids differ per invocation; everything derived from inputs must
	// not.
	first.PlanID = ""
	second.PlanID = ""
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced differing plans")
	}
}

func TestCompileMergedStepKeepsSackFloor(t *testing.T) {
	eng := New(testRegistry(t), nil, nil)

	// Two district anchor plugs 50 ft apart merge into one interval whose
	// recomputed volume still lands under 25 sacks.
	f := facts.Facts{
		facts.KeyCasingID:  {Value: 4.778, Units: "in"},
		facts.KeyStingerOD: {Value: 2.375, Units: "in"},
	}

	p, _, err := eng.Compile(context.Background(), f, Jurisdiction{District: "7C"}, Options{
		MergeAdjacentFt: 100,
	})
	if err != nil {
		t.Fatal(err)
	}

	merged := false
	for _, s := range p.Steps {
		if s.Type != plan.StepFormationTopPlug {
			continue
		}
		if !s.DetailBool("merged") {
			t.Fatalf("formation plug [%v, %v] not merged", s.TopFt, *s.BottomFt)
		}
		merged = true
		if s.TopFt != 3150 || *s.BottomFt != 3400 {
			t.Errorf("merged span = [%v, %v], want [3150, 3400]", s.TopFt, *s.BottomFt)
		}
		if s.Sacks == nil || *s.Sacks != 25 {
			t.Errorf("merged sacks = %v, want floored to 25", s.Sacks)
		}
		if !s.DetailBool("texas_25_sack_minimum_applied") {
			t.Error("merged step missing the floor flag")
		}
		if s.Details["original_calculated_sacks"] != 24 {
			t.Errorf("original sacks = %v, want 24", s.Details["original_calculated_sacks"])
		}
	}
	if !merged {
		t.Fatal("no merged formation plug in the plan")
	}

	want := []string{"Queen", "Seven Rivers"}
	if !reflect.DeepEqual(p.FormationsTargeted, want) {
		t.Errorf("formations targeted = %v, want %v", p.FormationsTargeted, want)
	}
}

func TestCompileMergedStepCrossingClassCutoff(t *testing.T) {
	eng := New(testRegistry(t), nil, nil)

	// Anchors at 3950 and 4100: shallow and deep class individually, but
	// the merged interval's midpoint (4025) sits past the 4000 ft cutoff.
	f := facts.Facts{
		facts.KeyCasingID:  {Value: 4.778, Units: "in"},
		facts.KeyStingerOD: {Value: 2.375, Units: "in"},
	}

	p, _, err := eng.Compile(context.Background(), f, Jurisdiction{District: "7B"}, Options{
		MergeAdjacentFt: 100,
	})
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, s := range p.Steps {
		if s.Type != plan.StepFormationTopPlug {
			continue
		}
		found = true
		if !s.DetailBool("merged") || s.TopFt != 3900 || *s.BottomFt != 4150 {
			t.Fatalf("formation plug = [%v, %v] merged=%v, want merged [3900, 4150]",
				s.TopFt, *s.BottomFt, s.DetailBool("merged"))
		}
		if s.CementClass != "H" {
			t.Errorf("merged class = %q, want H past the cutoff", s.CementClass)
		}
		if s.Materials == nil || s.Materials.Slurry == nil || s.Materials.Slurry.YieldFt3 != 1.20 {
			t.Error("merged materials not recomputed with the deep-class recipe")
		}
	}
	if !found {
		t.Fatal("no formation plug in the plan")
	}
}

func TestCompileDegraded(t *testing.T) {
	eng := New(testRegistry(t), nil, nil)

	p, _, err := eng.Compile(context.Background(), facts.Facts{}, Jurisdiction{District: "8"}, Options{})
	if err != nil {
		t.Fatalf("Compile should not fail on missing facts: %v", err)
	}

	var surfaceUnknown bool
	for _, v := range p.Violations {
		if v.RuleID == plan.RuleSurfaceShoeDepthUnknown {
			surfaceUnknown = true
		}
	}
	if !surfaceUnknown {
		t.Error("missing SURFACE_SHOE_DEPTH_UNKNOWN violation")
	}
	if len(p.Steps) == 0 {
		t.Error("degraded compile should still scaffold a plan")
	}
}

func TestCompileNoPack(t *testing.T) {
	eng := New(policy.NewRegistry(nil), nil, nil)

	if _, _, err := eng.Compile(context.Background(), wellFacts(), Jurisdiction{}, Options{}); err == nil {
		t.Error("expected an error with no pack loaded")
	}
}

func TestCompileRecordsAudit(t *testing.T) {
	storage := audit.NewMemoryStorage()
	recorder := audit.NewRecorder(storage, nil, nil)
	eng := New(testRegistry(t), nil, nil, WithAuditRecorder(recorder))

	_, _, err := eng.Compile(context.Background(), wellFacts(), Jurisdiction{
		District: "8",
		County:   "Midland",
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	recorder.Close()

	events, err := storage.Query(context.Background(), &audit.Query{API14: "42-329-12345-00-00"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d audit events, want 1", len(events))
	}

	e := events[0]
	if e.PolicyID != "tx-rrc-w3a" || e.District != "08a" {
		t.Errorf("event = %+v", e)
	}
	if e.PlanID == "" || e.StepCount == 0 {
		t.Errorf("event missing plan linkage: %+v", e)
	}
	if e.PayloadHash == "" {
		t.Error("event missing payload hash")
	}
}

func TestCompileEmitsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	eng := New(testRegistry(t), nil, nil, WithMetrics(collector))

	_, _, err := eng.Compile(context.Background(), wellFacts(), Jurisdiction{
		District: "8",
		County:   "Midland",
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var compiled bool
	for _, f := range families {
		if f.GetName() != "mesa_plans_compiled_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			if m.GetCounter().GetValue() > 0 {
				compiled = true
			}
		}
	}
	if !compiled {
		t.Error("compile did not increment mesa_plans_compiled_total")
	}
}
