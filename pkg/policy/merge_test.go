package policy

import (
	"reflect"
	"testing"
)

func TestDeepMerge(t *testing.T) {
	t.Run("nested maps recurse", func(t *testing.T) {
		dst := Tree{
			"requirements": Tree{
				"top_plug":      Tree{"length_ft": 100},
				"excess_factor": 0.4,
			},
		}
		src := Tree{
			"requirements": Tree{
				"top_plug": Tree{"length_ft": 150},
			},
		}

		out := DeepMerge(dst, src)

		if got, _ := LookupFloat(out, "requirements.top_plug.length_ft"); got != 150 {
			t.Errorf("expected overlay to win, got %v", got)
		}
		if got, _ := LookupFloat(out, "requirements.excess_factor"); got != 0.4 {
			t.Errorf("expected untouched sibling to survive, got %v", got)
		}
	})

	t.Run("lists replace, never append", func(t *testing.T) {
		dst := Tree{"citations": []any{"3.14(a)", "3.14(b)"}}
		src := Tree{"citations": []any{"3.14(c)"}}

		out := DeepMerge(dst, src)

		got, ok := LookupStrings(out, "citations")
		if !ok || !reflect.DeepEqual(got, []string{"3.14(c)"}) {
			t.Errorf("expected list replacement, got %v", got)
		}
	})

	t.Run("scalar replaces map", func(t *testing.T) {
		dst := Tree{"tagging": Tree{"required_wait_hr": 4}}
		src := Tree{"tagging": "disabled"}

		out := DeepMerge(dst, src)

		if out["tagging"] != "disabled" {
			t.Errorf("expected scalar to replace map, got %v", out["tagging"])
		}
	})

	t.Run("inputs not mutated", func(t *testing.T) {
		dst := Tree{"a": Tree{"x": 1}}
		src := Tree{"a": Tree{"y": 2}}

		out := DeepMerge(dst, src)
		out["a"].(Tree)["x"] = 99

		if dst["a"].(Tree)["x"] != 1 {
			t.Error("merge aliased the destination tree")
		}
		if _, ok := src["a"].(Tree)["x"]; ok {
			t.Error("merge mutated the source tree")
		}
	})

	t.Run("layer precedence", func(t *testing.T) {
		base := Tree{"requirements": Tree{"top_plug": Tree{"length_ft": 100}}}
		district := Tree{"requirements": Tree{"top_plug": Tree{"length_ft": 120}}}
		county := Tree{"requirements": Tree{"top_plug": Tree{"length_ft": 140}}}
		field := Tree{"requirements": Tree{"top_plug": Tree{"length_ft": 160}}}

		out := DeepMerge(DeepMerge(DeepMerge(base, district), county), field)

		if got, _ := LookupFloat(out, "requirements.top_plug.length_ft"); got != 160 {
			t.Errorf("expected field layer to win, got %v", got)
		}
	})
}

func TestLookup(t *testing.T) {
	tree := Tree{
		"cement_class": Tree{
			"cutoff_ft": 4000,
			"shallow":   "A",
			"deep":      "H",
		},
		"tagging": Tree{"required": true},
		"older":   map[any]any{"shape": "legacy"},
	}

	if v, ok := LookupFloat(tree, "cement_class.cutoff_ft"); !ok || v != 4000 {
		t.Errorf("LookupFloat = %v, %v", v, ok)
	}
	if v, ok := LookupString(tree, "cement_class.deep"); !ok || v != "H" {
		t.Errorf("LookupString = %v, %v", v, ok)
	}
	if v, ok := LookupBool(tree, "tagging.required"); !ok || !v {
		t.Errorf("LookupBool = %v, %v", v, ok)
	}
	if v, ok := LookupString(tree, "older.shape"); !ok || v != "legacy" {
		t.Errorf("legacy map shape lookup = %v, %v", v, ok)
	}
	if _, ok := Lookup(tree, "cement_class.missing"); ok {
		t.Error("expected missing key to report not found")
	}
	if _, ok := Lookup(tree, "cement_class.deep.too_far"); ok {
		t.Error("expected descent through a scalar to report not found")
	}
}

func TestMentions(t *testing.T) {
	tree := Tree{
		"fields": Tree{
			"spraberry (trend area)": Tree{"requirements": Tree{}},
		},
		"notes": []any{"applies to the Wolfcamp interval"},
	}

	if !Mentions(tree, "Spraberry") {
		t.Error("expected match on nested map key")
	}
	if !Mentions(tree, "Wolfcamp") {
		t.Error("expected match inside a string list")
	}
	if Mentions(tree, "Canyon Sand") {
		t.Error("unexpected match for unmentioned field")
	}
}
