// Package plan defines the plugging-plan data model and the final assembly
// passes: the optional adjacent-step merge and the plan assembler that
// orders steps deepest first, totals materials, and emits the regulatory
// export rows.
//
// Steps are created by the generator, mutated in place by the materials
// engine and the merge pass, and frozen once Assemble produces the Plan.
// Edits to a plan produce a new Plan, never an in-place mutation.
package plan
