package plan

// StepType identifies a plugging operation.
type StepType string

const (
	StepCasingShoePlug        StepType = "casing_shoe_plug"
	StepUQWIsolationPlug      StepType = "uqw_isolation_plug"
	StepProductiveHorizonPlug StepType = "productive_horizon_plug"
	StepTopPlug               StepType = "top_plug"
	StepCasingCut             StepType = "casing_cut"
	StepBridgePlug            StepType = "bridge_plug"
	StepBridgePlugCap         StepType = "bridge_plug_cap"
	StepPerforateAndSqueeze   StepType = "perforate_and_squeeze_plug"
	StepMechanicalIsolation   StepType = "mechanical_isolation_plug"
	StepFormationTopPlug      StepType = "formation_top_plug"
	StepCementRetainer        StepType = "cement_retainer"
)

// Slurry describes the computed cement volumes of one step.
type Slurry struct {
	SqueezeBbl float64 `json:"squeeze_bbl,omitempty"`
	CapBbl     float64 `json:"cap_bbl,omitempty"`
	TotalBbl   float64 `json:"total_bbl"`
	YieldFt3   float64 `json:"yield_ft3_per_sack"`
}

// Materials carries the materials computation result for one step.
type Materials struct {
	Slurry *Slurry `json:"slurry,omitempty"`
}

// Step is one plugging operation. Depths are measured feet; BottomFt is nil
// for point devices (bridge plugs, casing cuts). A step is mutated in place
// by the materials engine and merge post-processor, then frozen when the
// plan is assembled.
type Step struct {
	StepID          int            `json:"step_id,omitempty"`
	Type            StepType       `json:"type"`
	TopFt           float64        `json:"top_ft"`
	BottomFt        *float64       `json:"bottom_ft,omitempty"`
	CementClass     string         `json:"cement_class,omitempty"`
	Sacks           *int           `json:"sacks,omitempty"`
	RegulatoryBasis []string       `json:"regulatory_basis,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	Materials       *Materials     `json:"materials,omitempty"`
}

// NewStep creates an interval step.
func NewStep(t StepType, topFt, bottomFt float64) *Step {
	b := bottomFt
	return &Step{
		Type:     t,
		TopFt:    topFt,
		BottomFt: &b,
		Details:  make(map[string]any),
	}
}

// NewPointStep creates a point-device step (no bottom depth).
func NewPointStep(t StepType, depthFt float64) *Step {
	return &Step{
		Type:    t,
		TopFt:   depthFt,
		Details: make(map[string]any),
	}
}

// Depth returns the step's controlling depth for ordering: the bottom for
// interval steps, the set depth for point devices.
func (s *Step) Depth() float64 {
	if s.BottomFt != nil {
		return *s.BottomFt
	}
	return s.TopFt
}

// IntervalFt returns the step's interval length, zero for point devices.
func (s *Step) IntervalFt() float64 {
	if s.BottomFt == nil {
		return 0
	}
	return *s.BottomFt - s.TopFt
}

// Midpoint returns the interval midpoint depth, or the set depth for point
// devices. Used for cement-class selection and depth-scaled excess.
func (s *Step) Midpoint() float64 {
	if s.BottomFt == nil {
		return s.TopFt
	}
	return (s.TopFt + *s.BottomFt) / 2
}

// CementBearing reports whether the step places cement. Bridge plugs and
// casing cuts are mechanical operations; everything else carries slurry.
func (s *Step) CementBearing() bool {
	switch s.Type {
	case StepBridgePlug, StepCasingCut:
		return false
	default:
		return true
	}
}

// Covers reports whether the step's interval fully contains [top, bottom].
func (s *Step) Covers(top, bottom float64) bool {
	if s.BottomFt == nil {
		return false
	}
	return s.TopFt <= top && *s.BottomFt >= bottom
}

// detail sets a detail key, allocating the map if needed.
func (s *Step) detail(key string, value any) {
	if s.Details == nil {
		s.Details = make(map[string]any)
	}
	s.Details[key] = value
}

// SetDetail sets a detail key on the step.
func (s *Step) SetDetail(key string, value any) { s.detail(key, value) }

// DetailBool returns a boolean detail value, false when absent.
func (s *Step) DetailBool(key string) bool {
	if s.Details == nil {
		return false
	}
	b, _ := s.Details[key].(bool)
	return b
}

// Severity grades a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule IDs for violations the generator and assembler can raise.
const (
	RuleSurfaceShoeDepthUnknown    = "SURFACE_SHOE_DEPTH_UNKNOWN"
	RuleProductionShoeDepthUnknown = "PRODUCTION_SHOE_DEPTH_UNKNOWN"
	RuleUQWBaseUnknown             = "UQW_BASE_DEPTH_UNKNOWN"
	RulePolicyIncomplete           = "POLICY_INCOMPLETE"
	RuleGeometryMissing            = "GEOMETRY_MISSING"
)

// Violation is a diagnostic raised during plan generation. Violations never
// abort generation; callers decide what blocks a filing.
type Violation struct {
	Severity Severity       `json:"severity"`
	RuleID   string         `json:"rule_id"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

// MaterialsTotals aggregates computed materials across the plan.
type MaterialsTotals struct {
	TotalSacks     int            `json:"total_sacks"`
	TotalSlurryBbl float64        `json:"total_slurry_bbl"`
	SacksByClass   map[string]int `json:"sacks_by_class,omitempty"`
}

// ExportRow is one filing-facing row of the regulatory export, ordered for
// direct form population.
type ExportRow struct {
	Seq         int      `json:"seq"`
	Label       string   `json:"label"`
	TopFt       float64  `json:"top_ft"`
	BottomFt    *float64 `json:"bottom_ft,omitempty"`
	Sacks       *int     `json:"sacks,omitempty"`
	CementClass string   `json:"cement_class,omitempty"`
	Remarks     string   `json:"remarks,omitempty"`
}

// Plan is the root output of one engine invocation. Steps are ordered
// deepest first with sequential step ids. A Plan is immutable once
// assembled; edits produce a new Plan.
type Plan struct {
	PlanID             string          `json:"plan_id"`
	PolicyID           string          `json:"policy_id,omitempty"`
	PolicyVersion      string          `json:"policy_version,omitempty"`
	Steps              []*Step         `json:"steps"`
	Violations         []Violation     `json:"violations"`
	MaterialsTotals    MaterialsTotals `json:"materials_totals"`
	RRCExport          []ExportRow     `json:"rrc_export"`
	FormationsTargeted []string        `json:"formations_targeted"`
}
