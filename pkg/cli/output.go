package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"caprock-hq/mesa/pkg/plan"
)

// OutputFormat selects how a compiled plan is rendered.
type OutputFormat string

const (
	// FormatJSON renders the full plan document (default).
	FormatJSON OutputFormat = "json"
	// FormatCSV renders the filing export rows only.
	FormatCSV OutputFormat = "csv"
	// FormatText renders a terse operator summary.
	FormatText OutputFormat = "text"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (json, csv, text)", s)
	}
}

// WritePlan renders the plan to w in the requested format.
func WritePlan(w io.Writer, p *plan.Plan, format OutputFormat) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, p.RRCExport)
	case FormatText:
		return writeText(w, p)
	default:
		return WriteJSON(w, p)
	}
}

// WriteJSON writes any document as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var csvHeader = []string{"seq", "label", "top_ft", "bottom_ft", "sacks", "cement_class", "remarks"}

func writeCSV(w io.Writer, rows []plan.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		bottom := ""
		if r.BottomFt != nil {
			bottom = formatFt(*r.BottomFt)
		}
		sacks := ""
		if r.Sacks != nil {
			sacks = strconv.Itoa(*r.Sacks)
		}
		record := []string{
			strconv.Itoa(r.Seq),
			r.Label,
			formatFt(r.TopFt),
			bottom,
			sacks,
			r.CementClass,
			r.Remarks,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeText(w io.Writer, p *plan.Plan) error {
	fmt.Fprintf(w, "Plan %s", p.PlanID)
	if p.PolicyID != "" {
		fmt.Fprintf(w, "  (policy %s@%s)", p.PolicyID, p.PolicyVersion)
	}
	fmt.Fprintln(w)

	for _, s := range p.Steps {
		fmt.Fprintf(w, "%3d. %-24s %s ft", s.StepID, s.Type, formatFt(s.TopFt))
		if s.BottomFt != nil && *s.BottomFt != s.TopFt {
			fmt.Fprintf(w, " - %s ft", formatFt(*s.BottomFt))
		}
		if s.Sacks != nil {
			fmt.Fprintf(w, "  %d sx", *s.Sacks)
			if s.CementClass != "" {
				fmt.Fprintf(w, " class %s", s.CementClass)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total: %d sacks", p.MaterialsTotals.TotalSacks)
	if p.MaterialsTotals.TotalSlurryBbl > 0 {
		fmt.Fprintf(w, ", %.1f bbl slurry", p.MaterialsTotals.TotalSlurryBbl)
	}
	fmt.Fprintln(w)

	for _, v := range p.Violations {
		fmt.Fprintf(w, "%s: %s: %s\n", strings.ToUpper(string(v.Severity)), v.RuleID, v.Message)
	}
	return nil
}

// formatFt prints a depth without a trailing ".0" for whole-foot values.
func formatFt(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
