package policy

import (
	"path/filepath"
	"strings"
	"testing"

	"caprock-hq/mesa/pkg/policy/geo"
)

func loadTestPack(t *testing.T) *Pack {
	t.Helper()
	pack, err := LoadPack(filepath.Join("testdata", "pack", "base.yml"))
	if err != nil {
		t.Fatalf("LoadPack failed: %v", err)
	}
	return pack
}

func loadTestCentroids(t *testing.T) *geo.Table {
	t.Helper()
	table, err := geo.LoadTable(filepath.Join("testdata", "centroids.json"))
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	return table
}

func TestResolveLayering(t *testing.T) {
	r := NewResolver(loadTestPack(t), loadTestCentroids(t), nil)

	t.Run("base only", func(t *testing.T) {
		eff := r.Resolve("", "", "")
		if !eff.Complete {
			t.Errorf("expected complete base policy, missing %v", eff.IncompleteReasons)
		}
		if v, _ := eff.Float("requirements.top_plug.length_ft"); v != 100 {
			t.Errorf("base top_plug = %v, want 100", v)
		}
	})

	t.Run("district layer wins over base", func(t *testing.T) {
		eff := r.Resolve("8", "", "")
		if eff.District != "08a" {
			t.Errorf("district normalized to %q, want 08a", eff.District)
		}
		// Inline stub sets 120; the external district file raises the CIBP
		// cement minimum.
		if v, _ := eff.Float("requirements.top_plug.length_ft"); v != 120 {
			t.Errorf("district top_plug = %v, want 120", v)
		}
		if v, _ := eff.Float("requirements.cement_above_cibp_min_ft"); v != 25 {
			t.Errorf("district cibp min = %v, want 25", v)
		}
	})

	t.Run("county layer wins over district", func(t *testing.T) {
		eff := r.Resolve("08A", "Midland County", "")
		if eff.County != "midland" {
			t.Errorf("county normalized to %q, want midland", eff.County)
		}
		if v, _ := eff.Float("requirements.top_plug.length_ft"); v != 150 {
			t.Errorf("county top_plug = %v, want 150", v)
		}
		// District values untouched by the county survive.
		if v, _ := eff.Float("requirements.cement_above_cibp_min_ft"); v != 25 {
			t.Errorf("district cibp min lost, got %v", v)
		}
	})

	t.Run("inline county stub applies", func(t *testing.T) {
		eff := r.Resolve("8", "Ector", "")
		if v, _ := eff.Float("requirements.excess_factor"); v != 0.45 {
			t.Errorf("ector excess = %v, want 0.45", v)
		}
	})

	t.Run("field layer wins over county", func(t *testing.T) {
		eff := r.Resolve("8", "Glasscock", "Spraberry")
		if eff.FieldResolution.Method != MethodExactInCounty {
			t.Fatalf("method = %s, want exact_in_county", eff.FieldResolution.Method)
		}
		if v, _ := eff.Float("requirements.excess_factor"); v != 0.5 {
			t.Errorf("field excess = %v, want 0.5", v)
		}
		// Pack-level field overlay merges underneath the county's field tree.
		if v, _ := eff.Float("requirements.tagging.required_wait_hr"); v != 6 {
			t.Errorf("field tag wait = %v, want 6", v)
		}
	})
}

func TestResolveFieldFallback(t *testing.T) {
	r := NewResolver(loadTestPack(t), loadTestCentroids(t), nil)

	t.Run("nearest county exact match", func(t *testing.T) {
		// Midland has no Spraberry entry; Glasscock, the nearest county in
		// the district, carries it.
		eff := r.Resolve("08", "Midland", "Spraberry")

		res := eff.FieldResolution
		if res.Method != MethodNearestCounty {
			t.Fatalf("method = %s, want nearest_county", res.Method)
		}
		if res.MatchedInCounty != "glasscock" {
			t.Errorf("matched county = %q, want glasscock", res.MatchedInCounty)
		}
		if res.MatchedField != "spraberry (trend area)" {
			t.Errorf("matched field = %q", res.MatchedField)
		}
		if res.NearestDistanceKM == nil {
			t.Fatal("expected a nearest distance")
		}
		if *res.NearestDistanceKM < 30 || *res.NearestDistanceKM > 60 {
			t.Errorf("distance = %v km, want roughly 45", *res.NearestDistanceKM)
		}
		if v, _ := eff.Float("requirements.excess_factor"); v != 0.5 {
			t.Errorf("borrowed field excess = %v, want 0.5", v)
		}
	})

	t.Run("nearest county occurrence", func(t *testing.T) {
		// Dean appears only as a mention in Martin's notes.
		eff := r.Resolve("08", "Midland", "Dean")

		res := eff.FieldResolution
		if res.Method != MethodNearestCountyOccurrence {
			t.Fatalf("method = %s, want nearest_county_occurrence", res.Method)
		}
		if res.MatchedInCounty != "martin" {
			t.Errorf("matched county = %q, want martin", res.MatchedInCounty)
		}
		if res.NearestDistanceKM == nil {
			t.Error("expected a nearest distance")
		}
	})

	t.Run("unresolvable field", func(t *testing.T) {
		eff := r.Resolve("08", "Midland", "Canyon Sand")
		if eff.FieldResolution.Method != MethodNone {
			t.Errorf("method = %s, want none", eff.FieldResolution.Method)
		}
		if eff.FieldLayer != nil {
			t.Error("expected no field layer")
		}
	})

	t.Run("pack overlay without county", func(t *testing.T) {
		eff := r.Resolve("", "", "Spraberry")
		if eff.FieldResolution.Method != MethodExactInCounty {
			t.Errorf("method = %s, want exact_in_county", eff.FieldResolution.Method)
		}
		if v, _ := eff.Float("requirements.tagging.required_wait_hr"); v != 6 {
			t.Errorf("pack overlay tag wait = %v, want 6", v)
		}
	})

	t.Run("no centroid table disables fallback", func(t *testing.T) {
		noGeo := NewResolver(loadTestPack(t), nil, nil)
		eff := noGeo.Resolve("08", "Midland", "Dean")
		if eff.FieldResolution.Method != MethodNone {
			t.Errorf("method = %s, want none without centroids", eff.FieldResolution.Method)
		}
	})
}

func TestResolveCompleteness(t *testing.T) {
	pack := loadTestPack(t)

	// Strip a required knob from the base layer.
	reqs := pack.Base["requirements"].(Tree)
	delete(reqs, "excess_factor")

	r := NewResolver(pack, nil, nil)
	eff := r.Resolve("08", "Midland", "")

	if eff.Complete {
		t.Fatal("expected incomplete policy")
	}

	var found bool
	for _, reason := range eff.IncompleteReasons {
		if strings.Contains(reason, "requirements.excess_factor") &&
			strings.Contains(reason, "[district:08a]") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a district-scoped reason for excess_factor, got %v", eff.IncompleteReasons)
	}
}
