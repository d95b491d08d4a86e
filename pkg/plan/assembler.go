package plan

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// exportLabels maps step types to the filing-facing labels the regulatory
// form expects.
var exportLabels = map[StepType]string{
	StepBridgePlug:            "CIBP",
	StepBridgePlugCap:         "CIBP cap",
	StepCasingShoePlug:        "Cement plug (casing shoe)",
	StepUQWIsolationPlug:      "Cement plug (usable water isolation)",
	StepProductiveHorizonPlug: "Cement plug (productive horizon)",
	StepTopPlug:               "Top plug",
	StepCasingCut:             "Cut and pull casing",
	StepPerforateAndSqueeze:   "Perforate and squeeze",
	StepMechanicalIsolation:   "Cement plug (mechanical isolation)",
	StepFormationTopPlug:      "Cement plug (formation top)",
	StepCementRetainer:        "Cement retainer",
}

// Assemble orders the steps deepest first, assigns sequential step ids,
// sums materials totals, builds the regulatory export rows, and freezes
// everything into a Plan. Assembly never fails: a plan with violations is
// still a plan.
func Assemble(steps []*Step, violations []Violation, policyID, policyVersion string) *Plan {
	ordered := make([]*Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Depth() != ordered[j].Depth() {
			return ordered[i].Depth() > ordered[j].Depth()
		}
		// Point devices precede the cement poured on them at equal depth.
		return ordered[i].BottomFt == nil && ordered[j].BottomFt != nil
	})

	for i, s := range ordered {
		s.StepID = i + 1
	}

	if violations == nil {
		violations = []Violation{}
	}

	return &Plan{
		PlanID:             uuid.NewString(),
		PolicyID:           policyID,
		PolicyVersion:      policyVersion,
		Steps:              ordered,
		Violations:         violations,
		MaterialsTotals:    totalMaterials(ordered),
		RRCExport:          exportRows(ordered),
		FormationsTargeted: formationsTargeted(ordered),
	}
}

func totalMaterials(steps []*Step) MaterialsTotals {
	totals := MaterialsTotals{SacksByClass: make(map[string]int)}
	for _, s := range steps {
		if s.Sacks != nil {
			totals.TotalSacks += *s.Sacks
			if s.CementClass != "" {
				totals.SacksByClass[s.CementClass] += *s.Sacks
			}
		}
		if s.Materials != nil && s.Materials.Slurry != nil {
			totals.TotalSlurryBbl += s.Materials.Slurry.TotalBbl
		}
	}
	if len(totals.SacksByClass) == 0 {
		totals.SacksByClass = nil
	}
	return totals
}

func exportRows(steps []*Step) []ExportRow {
	rows := make([]ExportRow, 0, len(steps))
	for _, s := range steps {
		label, ok := exportLabels[s.Type]
		if !ok {
			label = string(s.Type)
		}
		rows = append(rows, ExportRow{
			Seq:         s.StepID,
			Label:       label,
			TopFt:       s.TopFt,
			BottomFt:    s.BottomFt,
			Sacks:       s.Sacks,
			CementClass: s.CementClass,
			Remarks:     strings.Join(s.RegulatoryBasis, "; "),
		})
	}
	return rows
}

// formationsTargeted collects the sorted distinct formation names the plan
// isolates. A coalesced step carries its sources under merged_steps, so
// those formations count too.
func formationsTargeted(steps []*Step) []string {
	seen := make(map[string]struct{})
	add := func(v any) {
		if name, ok := v.(string); ok && name != "" {
			seen[name] = struct{}{}
		}
	}
	for _, s := range steps {
		add(s.Details["formation"])
		if sources, ok := s.Details["merged_steps"].([]map[string]any); ok {
			for _, src := range sources {
				add(src["formation"])
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
