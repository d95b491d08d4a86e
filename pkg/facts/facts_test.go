package facts

import "testing"

func TestAccessors(t *testing.T) {
	f := Facts{
		KeySurfaceShoe: NewFloat(1850, "w2"),
		KeyAPI14:       NewString("42-329-12345-00-00", "filing"),
		KeyHasUQW:      {Value: true},
		"depth_as_int": {Value: 6815},
	}

	if v, ok := f.Float(KeySurfaceShoe); !ok || v != 1850 {
		t.Errorf("Float = %v, %v", v, ok)
	}
	if v, ok := f.Float("depth_as_int"); !ok || v != 6815 {
		t.Errorf("Float(int) = %v, %v", v, ok)
	}
	if v, ok := f.String(KeyAPI14); !ok || v != "42-329-12345-00-00" {
		t.Errorf("String = %v, %v", v, ok)
	}
	if v, ok := f.Bool(KeyHasUQW); !ok || !v {
		t.Errorf("Bool = %v, %v", v, ok)
	}
	if _, ok := f.Float("absent"); ok {
		t.Error("expected missing fact to report not found")
	}
	if _, ok := f.Float(KeyAPI14); ok {
		t.Error("expected type mismatch to report not found")
	}
}

func TestHasBarrier(t *testing.T) {
	f := Facts{
		KeyExistingBarriers: {Value: []any{"CIBP", "packer"}},
	}

	if !f.HasBarrier("cibp") {
		t.Error("expected case-insensitive CIBP match")
	}
	if !f.HasBarrier("Packer") {
		t.Error("expected packer match")
	}
	if f.HasBarrier("cement_retainer") {
		t.Error("unexpected barrier match")
	}
	if (Facts{}).HasBarrier("cibp") {
		t.Error("expected no match on empty facts")
	}
}

func TestFormationTops(t *testing.T) {
	f := Facts{
		KeyFormationTops: {Value: map[string]any{
			"San Andres": 4550.0,
			"Yates":      1520,
			"bad":        "not a depth",
		}},
	}

	tops := f.FormationTops()
	if len(tops) != 2 {
		t.Fatalf("got %d tops, want 2", len(tops))
	}
	if tops["San Andres"] != 4550 || tops["Yates"] != 1520 {
		t.Errorf("tops = %v", tops)
	}
}

func TestIntervals(t *testing.T) {
	t.Run("structured list", func(t *testing.T) {
		f := Facts{
			KeyPerfIntervals: {Value: []any{
				map[string]any{"top_ft": 6748.0, "bottom_ft": 6865.0, "type": "producing"},
				map[string]any{"top_ft": 5200.0, "bottom_ft": 5240.0},
			}},
		}

		ivs := f.Intervals()
		if len(ivs) != 2 {
			t.Fatalf("got %d intervals, want 2", len(ivs))
		}
		if ivs[0].TopFt != 6748 || ivs[0].BottomFt != 6865 || ivs[0].Kind != "producing" {
			t.Errorf("interval[0] = %+v", ivs[0])
		}
	})

	t.Run("legacy pair", func(t *testing.T) {
		f := Facts{
			KeyPerfInterval: {Value: []any{6748.0, 6865.0}},
		}

		ivs := f.Intervals()
		if len(ivs) != 1 {
			t.Fatalf("got %d intervals, want 1", len(ivs))
		}
		if ivs[0].TopFt != 6748 || ivs[0].BottomFt != 6865 || ivs[0].Kind != "producing" {
			t.Errorf("interval = %+v", ivs[0])
		}
	})

	t.Run("absent", func(t *testing.T) {
		if ivs := (Facts{}).Intervals(); ivs != nil {
			t.Errorf("expected nil, got %v", ivs)
		}
	})
}

func TestAnnularGaps(t *testing.T) {
	f := Facts{
		KeyAnnularGaps: {Value: []any{
			map[string]any{"top_ft": 3000.0, "bottom_ft": 3400.0, "requires_isolation": true},
			map[string]any{"top_ft": 1000.0, "bottom_ft": 1200.0, "requires_isolation": true, "cement_present": true},
		}},
	}

	gaps := f.AnnularGaps()
	if len(gaps) != 2 {
		t.Fatalf("got %d gaps, want 2", len(gaps))
	}
	if !gaps[0].RequiresIsolation || gaps[0].CementPresent {
		t.Errorf("gap[0] = %+v", gaps[0])
	}
	if !gaps[1].CementPresent {
		t.Errorf("gap[1] = %+v", gaps[1])
	}
}
