// Package policy implements the plugging-policy store and resolver.
//
// A policy pack is a versioned base YAML document plus overlay fragments for
// districts ("{district}__auto.yml") and counties
// ("{district}__{county}.yml") living in one directory. Resolution layers
// the fragments over the base with a generic deep merge (nested maps
// recurse, scalars and lists from the more specific layer replace the less
// specific one) in the fixed order base < district < county < field, then
// validates that every required requirement and cement-class knob survived
// the merge.
//
// Field resolution tries three strategies in order, first match wins:
//
//  1. exact or fuzzy match inside the requested county's fields map
//  2. nearest other county in the district (Haversine over the centroid
//     table) carrying an exact field-key match
//  3. nearest county whose configuration tree mentions the field name
//     anywhere
//
// The chosen method, matched field/county, and distance are recorded on the
// result for the compliance audit trail.
//
// Incomplete policies are not errors: the resolver reports every missing
// knob by dotted path and leaves the decision to block filing to the
// caller. Malformed pack YAML, in contrast, is fatal at load time: a
// deployment problem, not a per-well one.
package policy
