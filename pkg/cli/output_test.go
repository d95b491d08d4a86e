package cli

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"caprock-hq/mesa/pkg/plan"
)

func samplePlan() *plan.Plan {
	sacks := func(n int) *int { return &n }

	shoe := plan.NewStep(plan.StepCasingShoePlug, 6765, 6865)
	shoe.Sacks = sacks(30)
	shoe.CementClass = "H"
	shoe.RegulatoryBasis = []string{"16 TAC 3.14(d)(9)"}

	bridge := plan.NewPointStep(plan.StepBridgePlug, 6738)

	p := plan.Assemble([]*plan.Step{shoe, bridge}, []plan.Violation{
		{Severity: plan.SeverityWarning, RuleID: "UQW_BASE_UNKNOWN", Message: "no usable water base on record"},
	}, "tx-rrc-w3a", "2026.1")
	return p
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"", FormatJSON, false},
		{"CSV", FormatCSV, false},
		{"text", FormatText, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestWritePlanCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlan(&buf, samplePlan(), FormatCSV); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header plus 2 rows", len(records))
	}
	if records[0][0] != "seq" || records[0][6] != "remarks" {
		t.Errorf("header = %v", records[0])
	}

	// Deepest step first: the shoe plug with its sack count.
	if records[1][1] != "Cement plug (casing shoe)" || records[1][4] != "30" {
		t.Errorf("row 1 = %v", records[1])
	}
	// The point device carries no volume columns.
	if records[2][3] != "" || records[2][4] != "" {
		t.Errorf("row 2 = %v", records[2])
	}
}

func TestWritePlanText(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlan(&buf, samplePlan(), FormatText); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"policy tx-rrc-w3a@2026.1",
		"6765 ft - 6865 ft",
		"30 sx class H",
		"Total: 30 sacks",
		"WARNING: UQW_BASE_UNKNOWN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePlanJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlan(&buf, samplePlan(), FormatJSON); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"policy_id": "tx-rrc-w3a"`) {
		t.Errorf("json output missing policy stamp:\n%s", buf.String())
	}
}
