package policy

import (
	"regexp"
	"strings"
)

var (
	districtRe    = regexp.MustCompile(`^(\d+)\s*([A-Za-z]?)$`)
	parentheticRe = regexp.MustCompile(`\([^)]*\)`)
	dashRe        = regexp.MustCompile(`[\x{2010}-\x{2015}]`)
	spaceRe       = regexp.MustCompile(`\s+`)
	skeletonRe    = regexp.MustCompile(`[^a-z0-9]`)
)

// NormalizeDistrict canonicalizes a district code: the numeric part is
// zero-padded to two digits and a missing letter suffix defaults to "A",
// so "8", "08", "8A", and "08A" all normalize to "08a".
func NormalizeDistrict(district string) string {
	d := strings.TrimSpace(district)
	if d == "" {
		return ""
	}

	m := districtRe.FindStringSubmatch(d)
	if m == nil {
		// Not in numeric+suffix form; lowercase as-is so lookups stay stable.
		return strings.ToLower(d)
	}

	num := strings.TrimLeft(m[1], "0")
	if num == "" {
		num = "0"
	}
	if len(num) < 2 {
		num = "0" + num
	}

	suffix := strings.ToLower(m[2])
	if suffix == "" {
		suffix = "a"
	}

	return num + suffix
}

// NormalizeCounty canonicalizes a county name: lowercase, trimmed, with any
// trailing " county" stripped.
func NormalizeCounty(county string) string {
	c := strings.ToLower(strings.TrimSpace(county))
	c = strings.TrimSuffix(c, " county")
	return strings.TrimSpace(c)
}

// NormalizeFieldName canonicalizes a field name for matching: lowercase,
// parentheticals stripped, dash variants unified, whitespace collapsed.
func NormalizeFieldName(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	f = parentheticRe.ReplaceAllString(f, " ")
	f = dashRe.ReplaceAllString(f, "-")
	f = spaceRe.ReplaceAllString(f, " ")
	return strings.TrimSpace(f)
}

// fieldSkeleton reduces a field name to its letters and digits only, the
// loosest comparison form ("SPRABERRY (TREND AREA)" -> "sprabeerrytrendarea"
// minus the parenthetical once normalized).
func fieldSkeleton(field string) string {
	return skeletonRe.ReplaceAllString(NormalizeFieldName(field), "")
}

// FieldNamesMatch reports whether two field names refer to the same field.
// Names match on bidirectional substring containment of the normalized
// forms, or on equality of the letter/digit-only skeletons.
func FieldNamesMatch(a, b string) bool {
	na, nb := NormalizeFieldName(a), NormalizeFieldName(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return fieldSkeleton(a) == fieldSkeleton(b)
}
