package policy

import (
	"fmt"
	"log/slog"
	"sort"

	"caprock-hq/mesa/pkg/policy/geo"
)

// FieldResolutionMethod identifies how a requested field was matched.
type FieldResolutionMethod string

const (
	// MethodExactInCounty means the field matched (exactly or fuzzily)
	// inside the requested county's fields map.
	MethodExactInCounty FieldResolutionMethod = "exact_in_county"
	// MethodNearestCounty means the field key matched exactly in the
	// geographically nearest other county of the district.
	MethodNearestCounty FieldResolutionMethod = "nearest_county"
	// MethodNearestCountyOccurrence means the field name was merely
	// mentioned somewhere in the nearest county's configuration tree.
	MethodNearestCountyOccurrence FieldResolutionMethod = "nearest_county_occurrence"
	// MethodNone means the field could not be resolved.
	MethodNone FieldResolutionMethod = "none"
)

// FieldResolution records how a field request was satisfied, for the audit
// trail.
type FieldResolution struct {
	Method            FieldResolutionMethod `json:"method"`
	MatchedField      string                `json:"matched_field,omitempty"`
	MatchedInCounty   string                `json:"matched_in_county,omitempty"`
	NearestDistanceKM *float64              `json:"nearest_distance_km,omitempty"`
}

// Effective is the result of resolving a pack for one well's jurisdiction.
// It is built per request and never persisted by the engine.
type Effective struct {
	PolicyID      string `json:"policy_id"`
	PolicyVersion string `json:"policy_version"`

	// Requested jurisdiction, normalized.
	District string `json:"district,omitempty"`
	County   string `json:"county,omitempty"`
	Field    string `json:"field,omitempty"`

	// Base is the unmerged statewide layer; Merged is the fully layered
	// result (base < district < county < field).
	Base   Tree `json:"base"`
	Merged Tree `json:"effective"`

	// Individual layers as applied, for audit.
	DistrictLayer Tree `json:"district_layer,omitempty"`
	CountyLayer   Tree `json:"county_layer,omitempty"`
	FieldLayer    Tree `json:"field_layer,omitempty"`

	FieldResolution FieldResolution `json:"field_resolution"`

	Complete          bool     `json:"complete"`
	IncompleteReasons []string `json:"incomplete_reasons,omitempty"`
}

// requiredKeys are the requirement and cement-class knobs every resolvable
// policy must carry. Missing keys are reported by name, never silently
// dropped.
var requiredKeys = []string{
	"requirements.surface_casing_shoe_plug.length_ft",
	"requirements.production_casing_shoe_plug.length_ft",
	"requirements.usable_water_isolation.above_ft",
	"requirements.usable_water_isolation.below_ft",
	"requirements.top_plug.length_ft",
	"requirements.casing_cut_below_surface_ft",
	"requirements.cement_above_cibp_min_ft",
	"requirements.excess_factor",
	"requirements.tagging.required_wait_hr",
	"cement_class.cutoff_ft",
	"cement_class.shallow",
	"cement_class.deep",
}

// Resolver resolves effective policies from an immutable pack snapshot and
// centroid table. It holds no per-request state and is safe for concurrent
// use.
type Resolver struct {
	pack      *Pack
	centroids *geo.Table
	logger    *slog.Logger
}

// NewResolver creates a resolver over a loaded pack. The centroid table may
// be nil, which disables the geospatial field-resolution fallbacks.
func NewResolver(pack *Pack, centroids *geo.Table, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		pack:      pack,
		centroids: centroids,
		logger:    logger.With("component", "policy.resolver"),
	}
}

// Resolve builds the effective policy for a well's jurisdiction. District,
// county, and field are each optional; each narrows the merge one layer
// further. Resolve never fails for incompleteness; missing knobs are
// reported on the result and the caller decides whether to block filing.
func (r *Resolver) Resolve(district, county, field string) *Effective {
	eff := &Effective{
		PolicyID:        r.pack.PolicyID,
		PolicyVersion:   r.pack.Version,
		District:        NormalizeDistrict(district),
		County:          NormalizeCounty(county),
		Field:           field,
		Base:            r.pack.Base,
		FieldResolution: FieldResolution{Method: MethodNone},
	}

	merged := copyValue(r.pack.Base).(Tree)

	if eff.District != "" {
		if stub, ok := r.pack.DistrictStub(eff.District); ok {
			merged = DeepMerge(merged, stub)
			eff.DistrictLayer = stub
		}
		if file, ok := r.pack.DistrictFile(eff.District); ok {
			merged = DeepMerge(merged, file)
			if eff.DistrictLayer != nil {
				eff.DistrictLayer = DeepMerge(eff.DistrictLayer, file)
			} else {
				eff.DistrictLayer = file
			}
		}
	}

	if eff.County != "" {
		if tree, ok := r.pack.countyTree(eff.District, eff.County); ok {
			merged = DeepMerge(merged, tree)
			eff.CountyLayer = tree
		}
	}

	if field != "" {
		layer, res := r.resolveField(eff.District, eff.County, field)
		eff.FieldResolution = res
		if layer != nil {
			merged = DeepMerge(merged, layer)
			eff.FieldLayer = layer
		}
		r.logger.Debug("field resolution",
			"field", field,
			"method", string(res.Method),
			"matched_in_county", res.MatchedInCounty,
		)
	}

	eff.Merged = merged
	r.validateCompleteness(eff)

	return eff
}

// resolveField resolves a field request, first match wins:
//  1. exact/fuzzy match inside the current county's fields map
//  2. nearest other county in the district with an exact field-key match
//  3. nearest county where the field name is mentioned anywhere in its
//     configuration tree
func (r *Resolver) resolveField(district, county, field string) (Tree, FieldResolution) {
	if county != "" {
		if tree, ok := r.pack.countyTree(district, county); ok {
			if key, fieldTree, ok := matchFieldIn(tree, field); ok {
				return r.withPackFieldOverlay(key, fieldTree), FieldResolution{
					Method:          MethodExactInCounty,
					MatchedField:    key,
					MatchedInCounty: county,
				}
			}
		}
	}

	if r.centroids == nil || county == "" || district == "" {
		return r.packOverlayOnly(field)
	}

	neighbors := r.centroids.Nearest(county, r.pack.DistrictCounties(district))

	// Pass 1: exact field-key match in the nearest county that has one.
	want := NormalizeFieldName(field)
	for _, n := range neighbors {
		tree, ok := r.pack.countyTree(district, n.County)
		if !ok {
			continue
		}
		fields, ok := asTree(tree["fields"])
		if !ok {
			continue
		}
		for key, v := range fields {
			if NormalizeFieldName(key) != want {
				continue
			}
			fieldTree, _ := asTree(v)
			d := n.DistanceKM
			return r.withPackFieldOverlay(key, fieldTree), FieldResolution{
				Method:            MethodNearestCounty,
				MatchedField:      key,
				MatchedInCounty:   n.County,
				NearestDistanceKM: &d,
			}
		}
	}

	// Pass 2: nearest county whose configuration merely mentions the field.
	for _, n := range neighbors {
		tree, ok := r.pack.countyTree(district, n.County)
		if !ok || !Mentions(tree, field) {
			continue
		}
		var layer Tree
		if key, fieldTree, ok := matchFieldIn(tree, field); ok {
			layer = r.withPackFieldOverlay(key, fieldTree)
		} else if overlay, ok := r.pack.FieldOverlay(field); ok {
			layer = overlay
		}
		d := n.DistanceKM
		return layer, FieldResolution{
			Method:            MethodNearestCountyOccurrence,
			MatchedField:      NormalizeFieldName(field),
			MatchedInCounty:   n.County,
			NearestDistanceKM: &d,
		}
	}

	return r.packOverlayOnly(field)
}

// packOverlayOnly falls back to a pack-level field overlay when no county
// carries the field.
func (r *Resolver) packOverlayOnly(field string) (Tree, FieldResolution) {
	if overlay, ok := r.pack.FieldOverlay(field); ok {
		return overlay, FieldResolution{
			Method:       MethodExactInCounty,
			MatchedField: NormalizeFieldName(field),
		}
	}
	return nil, FieldResolution{Method: MethodNone}
}

// withPackFieldOverlay merges a pack-level field fragment under a
// county-level field tree, county-specific values winning.
func (r *Resolver) withPackFieldOverlay(key string, fieldTree Tree) Tree {
	overlay, ok := r.pack.FieldOverlay(key)
	if !ok {
		if fieldTree == nil {
			return Tree{}
		}
		return fieldTree
	}
	if fieldTree == nil {
		return overlay
	}
	return DeepMerge(overlay, fieldTree)
}

// matchFieldIn scans a county tree's fields map for an exact or fuzzy match.
// Keys are tried in sorted order so resolution is deterministic when more
// than one key would match.
func matchFieldIn(countyTree Tree, field string) (string, Tree, bool) {
	fields, ok := asTree(countyTree["fields"])
	if !ok {
		return "", nil, false
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if FieldNamesMatch(key, field) {
			tree, _ := asTree(fields[key])
			return key, tree, true
		}
	}
	return "", nil, false
}

// validateCompleteness checks every required requirement and cement-class
// key against the base layer and, when a district was requested, against the
// merged result. Missing paths are collected as
// "{scope}.{dotted.key} [district:{d}]".
func (r *Resolver) validateCompleteness(eff *Effective) {
	var reasons []string

	check := func(scope string, tree Tree) {
		for _, key := range requiredKeys {
			if _, ok := Lookup(tree, key); ok {
				continue
			}
			reason := fmt.Sprintf("%s.%s", scope, key)
			if eff.District != "" {
				reason = fmt.Sprintf("%s [district:%s]", reason, eff.District)
			}
			reasons = append(reasons, reason)
		}
	}

	check("base", eff.Base)
	if eff.District != "" || eff.County != "" || eff.Field != "" {
		check("effective", eff.Merged)
	}

	eff.Complete = len(reasons) == 0
	eff.IncompleteReasons = reasons
}

// Float returns a numeric knob from the merged policy.
func (e *Effective) Float(dotted string) (float64, bool) {
	return LookupFloat(e.Merged, dotted)
}

// FloatOr returns a numeric knob or a default when the knob is absent.
func (e *Effective) FloatOr(dotted string, def float64) float64 {
	if v, ok := LookupFloat(e.Merged, dotted); ok {
		return v
	}
	return def
}

// String returns a string knob from the merged policy.
func (e *Effective) String(dotted string) (string, bool) {
	return LookupString(e.Merged, dotted)
}

// Bool returns a boolean knob from the merged policy.
func (e *Effective) Bool(dotted string) (bool, bool) {
	return LookupBool(e.Merged, dotted)
}

// StringsKnob returns a string-list knob from the merged policy.
func (e *Effective) StringsKnob(dotted string) ([]string, bool) {
	return LookupStrings(e.Merged, dotted)
}

// Citations returns the citation list for a dotted path, or the pack's base
// citations when the path carries none.
func (e *Effective) Citations(dotted string) []string {
	if cites, ok := LookupStrings(e.Merged, dotted); ok {
		return cites
	}
	cites, _ := LookupStrings(e.Merged, "citations")
	return cites
}

// FormationSpec is one entry of the resolved formation-tops map.
type FormationSpec struct {
	TagRequired bool
	AnchorFt    *float64
	Citations   []string
}

// Formations returns the resolved formation requirements map, keyed by
// formation name as spelled in the overlay.
func (e *Effective) Formations() map[string]FormationSpec {
	tree, ok := asTree(e.Merged["formations"])
	if !ok {
		return nil
	}

	out := make(map[string]FormationSpec, len(tree))
	for name, v := range tree {
		spec := FormationSpec{}
		entry, ok := asTree(v)
		if ok {
			if tag, ok := LookupBool(entry, "tag_required"); ok {
				spec.TagRequired = tag
			}
			if anchor, ok := LookupFloat(entry, "anchor_ft"); ok {
				spec.AnchorFt = &anchor
			}
			if cites, ok := LookupStrings(entry, "citations"); ok {
				spec.Citations = cites
			}
		}
		out[name] = spec
	}
	return out
}
