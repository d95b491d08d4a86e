// Mesa is a compliance-plan compiler for well plugging and abandonment
// filings.
//
// It resolves the layered plugging policy for a well's jurisdiction
// (statewide base, district, county, field), generates the plugging steps
// from the well's facts, computes cement materials, and assembles the plan
// for filing:
//   - Hierarchical policy resolution with geospatial field fallback
//   - Deterministic step generation from well facts
//   - Cement volume and sack arithmetic per step
//   - Compliance trail with durable storage
//
// Usage:
//
//	# Compile a plan from a facts file
//	mesa plan --facts well.json --district 08 --county midland
//
//	# Show the effective policy for a jurisdiction
//	mesa policy resolve --district 08 --county midland --field spraberry
//
//	# Validate a policy pack
//	mesa policy validate --pack policy/base.yml
//
//	# Watch a pack directory and reload on change
//	mesa watch
//
//	# Show version information
//	mesa version
package main

func main() {
	Execute()
}
