package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"caprock-hq/mesa/pkg/cli"
	"caprock-hq/mesa/pkg/policy"
	"caprock-hq/mesa/pkg/policy/geo"
)

var (
	resolvePackFile string
	resolveDistrict string
	resolveCounty   string
	resolveField    string
	resolveFull     bool

	validatePackFile string
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and validate policy packs",
}

var policyResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the effective policy for a jurisdiction",
	Long: `Resolve the layered policy for a jurisdiction and print the result.

Layers merge in precedence order: statewide base, then district, then
county, then field. When the field has no policy in its county, the
resolver falls back to the nearest county that carries one and reports the
method and distance used.

Examples:
  # County-level policy
  mesa policy resolve --district 08 --county midland

  # Field-level, showing every layer that was applied
  mesa policy resolve --district 8A --county garza --field "post (san andres)" --full`,
	RunE: runPolicyResolve,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a policy pack",
	Long: `Load a policy pack and report every structural and syntax problem found.

Validation loads the base file and every district and county overlay in its
directory. All problems are reported in one pass.

Examples:
  mesa policy validate --pack policy/base.yml`,
	RunE: runPolicyValidate,
}

func init() {
	policyResolveCmd.Flags().StringVar(&resolvePackFile, "pack", "", "policy pack base file (overrides config)")
	policyResolveCmd.Flags().StringVar(&resolveDistrict, "district", "", "regulatory district (required)")
	policyResolveCmd.Flags().StringVar(&resolveCounty, "county", "", "county name")
	policyResolveCmd.Flags().StringVar(&resolveField, "field", "", "field name")
	policyResolveCmd.Flags().BoolVar(&resolveFull, "full", false, "include the base and individual layers in the output")
	policyResolveCmd.MarkFlagRequired("district")

	policyValidateCmd.Flags().StringVar(&validatePackFile, "pack", "", "policy pack base file (overrides config)")

	policyCmd.AddCommand(policyResolveCmd)
	policyCmd.AddCommand(policyValidateCmd)
	rootCmd.AddCommand(policyCmd)
}

func runPolicyResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	packPath := cfg.Policy.PackPath
	if resolvePackFile != "" {
		packPath = resolvePackFile
	}
	if packPath == "" {
		return fmt.Errorf("no policy pack configured (set policy.pack_path or pass --pack)")
	}

	pack, err := policy.LoadPack(packPath)
	if err != nil {
		return err
	}

	var centroids *geo.Table
	if cfg.Policy.CentroidPath != "" {
		centroids, err = geo.LoadTable(cfg.Policy.CentroidPath)
		if err != nil {
			return err
		}
	}

	resolver := policy.NewResolver(pack, centroids, logger)
	eff := resolver.Resolve(resolveDistrict, resolveCounty, resolveField)

	if !resolveFull {
		// Trim the audit layers for the common case; --full keeps them.
		eff.Base = nil
		eff.DistrictLayer = nil
		eff.CountyLayer = nil
		eff.FieldLayer = nil
	}
	return cli.WriteJSON(os.Stdout, eff)
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	packPath := cfg.Policy.PackPath
	if validatePackFile != "" {
		packPath = validatePackFile
	}
	if packPath == "" {
		return fmt.Errorf("no policy pack configured (set policy.pack_path or pass --pack)")
	}

	pack, err := policy.LoadPack(packPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return fmt.Errorf("pack validation failed")
	}

	// The base layer must carry every required knob on its own; overlays
	// may only tighten.
	base := policy.NewResolver(pack, nil, nil).Resolve("", "", "")
	if !base.Complete {
		for _, reason := range base.IncompleteReasons {
			fmt.Fprintf(os.Stderr, "missing required knob: %s\n", reason)
		}
		return fmt.Errorf("pack validation failed")
	}

	fmt.Printf("✓ Pack is valid\n")
	fmt.Printf("  Policy:    %s@%s\n", pack.PolicyID, pack.Version)
	fmt.Printf("  Districts: %d\n", len(pack.Districts()))
	return nil
}
