package policy

import (
	"fmt"
	"strings"
)

// Tree is the generic JSON-like representation of a policy layer. Overlay
// fragments are merged as Trees and only materialized into typed accessors
// after merge and validation.
type Tree = map[string]any

// DeepMerge merges src over dst and returns a new tree; neither input is
// mutated. Nested maps recurse; any scalar or list value in src replaces the
// dst value outright (lists never append). Layering order is the caller's
// responsibility: base < district < county < field.
func DeepMerge(dst, src Tree) Tree {
	out := make(Tree, len(dst)+len(src))
	for k, v := range dst {
		out[k] = copyValue(v)
	}

	for k, v := range src {
		srcMap, srcIsMap := asTree(v)
		dstMap, dstIsMap := asTree(out[k])
		if srcIsMap && dstIsMap {
			out[k] = DeepMerge(dstMap, srcMap)
			continue
		}
		out[k] = copyValue(v)
	}

	return out
}

// copyValue deep-copies a tree value so merged layers never alias the
// immutable pack.
func copyValue(v any) any {
	switch tv := v.(type) {
	case Tree:
		out := make(Tree, len(tv))
		for k, e := range tv {
			out[k] = copyValue(e)
		}
		return out
	case map[any]any:
		out := make(Tree, len(tv))
		for k, e := range tv {
			out[fmt.Sprintf("%v", k)] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// asTree normalizes both map[string]any and map[any]any (older YAML decode
// shapes) into a Tree.
func asTree(v any) (Tree, bool) {
	switch tv := v.(type) {
	case Tree:
		return tv, true
	case map[any]any:
		out := make(Tree, len(tv))
		for k, e := range tv {
			out[fmt.Sprintf("%v", k)] = e
		}
		return out, true
	default:
		return nil, false
	}
}

// Lookup resolves a dotted path ("cement_class.cutoff_ft") inside a tree.
func Lookup(tree Tree, dotted string) (any, bool) {
	cur := any(tree)
	for _, part := range strings.Split(dotted, ".") {
		m, ok := asTree(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupFloat resolves a dotted path to a float64, accepting the numeric
// shapes YAML decoding produces.
func LookupFloat(tree Tree, dotted string) (float64, bool) {
	v, ok := Lookup(tree, dotted)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// LookupString resolves a dotted path to a string.
func LookupString(tree Tree, dotted string) (string, bool) {
	v, ok := Lookup(tree, dotted)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// LookupBool resolves a dotted path to a bool.
func LookupBool(tree Tree, dotted string) (bool, bool) {
	v, ok := Lookup(tree, dotted)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// LookupStrings resolves a dotted path to a string slice.
func LookupStrings(tree Tree, dotted string) ([]string, bool) {
	v, ok := Lookup(tree, dotted)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Mentions walks a tree recursively and reports whether the needle appears
// in any map key or string value, compared as normalized field names. This
// is the loosest field-resolution fallback: the field is merely referenced
// somewhere in the county's configuration.
func Mentions(tree Tree, needle string) bool {
	for k, v := range tree {
		if FieldNamesMatch(k, needle) {
			return true
		}
		if mentionsValue(v, needle) {
			return true
		}
	}
	return false
}

func mentionsValue(v any, needle string) bool {
	switch tv := v.(type) {
	case string:
		return FieldNamesMatch(tv, needle)
	case []any:
		for _, e := range tv {
			if mentionsValue(e, needle) {
				return true
			}
		}
		return false
	default:
		if m, ok := asTree(v); ok {
			return Mentions(m, needle)
		}
		return false
	}
}
