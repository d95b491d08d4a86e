package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"caprock-hq/mesa/pkg/audit"
	"caprock-hq/mesa/pkg/cli"
	"caprock-hq/mesa/pkg/config"
	"caprock-hq/mesa/pkg/engine"
	"caprock-hq/mesa/pkg/facts"
	"caprock-hq/mesa/pkg/plan"
	"caprock-hq/mesa/pkg/policy"
	"caprock-hq/mesa/pkg/policy/geo"
	"caprock-hq/mesa/pkg/telemetry/metrics"
)

var (
	planFactsFile string
	planPackFile  string
	planDistrict  string
	planCounty    string
	planField     string
	planMergeFt   float64
	planShowEff   bool
	planFormat    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compile a plugging plan from a well facts file",
	Long: `Compile a plugging plan for one well.

The facts file is a JSON document of fact keys (casing program, perforations,
usable-water base, formation tops, existing barriers). The jurisdiction flags
select which policy layers apply; district accepts forms like "8", "08" or
"8A". The compiled plan is written to stdout as JSON.

Data-quality problems in the facts never fail the compile; they surface as
violations on the plan.

Examples:
  # Compile with a district and county
  mesa plan --facts well.json --district 08 --county midland

  # Include the field layer and merge adjacent formation plugs within 150 ft
  mesa plan --facts well.json --district 8A --county garza --field "post (san andres)" --merge-ft 150

  # Also print the effective policy used
  mesa plan --facts well.json --district 08 --county ector --show-policy`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFactsFile, "facts", "", "well facts JSON file (required)")
	planCmd.Flags().StringVar(&planPackFile, "pack", "", "policy pack base file (overrides config)")
	planCmd.Flags().StringVar(&planDistrict, "district", "", "regulatory district (required)")
	planCmd.Flags().StringVar(&planCounty, "county", "", "county name (required)")
	planCmd.Flags().StringVar(&planField, "field", "", "field name")
	planCmd.Flags().Float64Var(&planMergeFt, "merge-ft", 0, "merge adjacent same-type steps within this many feet (0 disables)")
	planCmd.Flags().BoolVar(&planShowEff, "show-policy", false, "include the effective policy in the output (json format only)")
	planCmd.Flags().StringVar(&planFormat, "format", "json", "output format: json, csv or text")
	planCmd.MarkFlagRequired("facts")
	planCmd.MarkFlagRequired("district")
	planCmd.MarkFlagRequired("county")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(planFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	f, err := loadFacts(planFactsFile)
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(cfg, logger, planPackFile)
	if err != nil {
		return err
	}
	defer cleanup()

	mergeFt := planMergeFt
	if mergeFt == 0 && cfg.Merge.Enabled {
		mergeFt = cfg.Merge.ThresholdFt
	}

	p, eff, err := eng.Compile(cmd.Context(), f, engine.Jurisdiction{
		District: planDistrict,
		County:   planCounty,
		Field:    planField,
	}, engine.Options{MergeAdjacentFt: mergeFt})
	if err != nil {
		return err
	}

	if format == cli.FormatJSON {
		out := struct {
			Plan   *plan.Plan        `json:"plan"`
			Policy *policy.Effective `json:"policy,omitempty"`
		}{Plan: p}
		if planShowEff {
			out.Policy = eff
		}
		return cli.WriteJSON(os.Stdout, out)
	}
	return cli.WritePlan(os.Stdout, p, format)
}

// loadFacts reads a well facts JSON file.
func loadFacts(path string) (facts.Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file: %w", err)
	}
	var f facts.Facts
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse facts file: %w", err)
	}
	return f, nil
}

// buildEngine wires the compiler from configuration: pack registry,
// centroid table, and the audit recorder when enabled. The returned cleanup
// closes the recorder and its storage.
func buildEngine(cfg *config.Config, logger *slog.Logger, packOverride string) (*engine.Engine, func(), error) {
	packPath := cfg.Policy.PackPath
	if packOverride != "" {
		packPath = packOverride
	}
	if packPath == "" {
		return nil, nil, fmt.Errorf("no policy pack configured (set policy.pack_path or pass --pack)")
	}

	registry := policy.NewRegistry(logger)
	if _, err := registry.Load(packPath); err != nil {
		return nil, nil, err
	}

	var centroids *geo.Table
	if cfg.Policy.CentroidPath != "" {
		t, err := geo.LoadTable(cfg.Policy.CentroidPath)
		if err != nil {
			return nil, nil, err
		}
		centroids = t
	}

	opts := []engine.Option{
		engine.WithMetrics(metrics.NewCollector(prometheus.NewRegistry())),
	}
	cleanup := func() {}

	if cfg.Audit.Enabled {
		storage, err := openAuditStorage(cfg)
		if err != nil {
			return nil, nil, err
		}
		recorder := audit.NewRecorder(storage, audit.DefaultRecorderConfig(), logger)
		opts = append(opts, engine.WithAuditRecorder(recorder))

		var scheduler *audit.Scheduler
		if cfg.Audit.RetentionDays > 0 && cfg.Audit.RetentionSchedule != "" {
			pruner, err := audit.NewPruner(storage, cfg.Audit.RetentionDays, logger)
			if err != nil {
				return nil, nil, err
			}
			scheduler = audit.NewScheduler(pruner, logger)
			if err := scheduler.Start(cfg.Audit.RetentionSchedule); err != nil {
				return nil, nil, err
			}
		}

		cleanup = func() {
			if scheduler != nil {
				scheduler.Stop()
			}
			recorder.Close()
			storage.Close()
		}
	}

	return engine.New(registry, centroids, logger, opts...), cleanup, nil
}

func openAuditStorage(cfg *config.Config) (audit.Storage, error) {
	switch cfg.Audit.Backend {
	case "memory":
		return audit.NewMemoryStorage(), nil
	default:
		return audit.NewSQLiteStorage(audit.DefaultSQLiteConfig(cfg.Audit.Path))
	}
}
