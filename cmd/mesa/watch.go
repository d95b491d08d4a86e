package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"caprock-hq/mesa/pkg/policy"
)

var watchPackFile string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the policy pack directory and reload on change",
	Long: `Load the policy pack and keep it loaded, reloading whenever a pack file
changes on disk. Reloads are debounced so a multi-file deploy causes one
reload, and a failed reload keeps the previous pack current.

Intended for long-running deployments where the pack directory is synced
from version control.

Examples:
  mesa watch
  mesa watch --pack policy/base.yml`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchPackFile, "pack", "", "policy pack base file (overrides config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	packPath := cfg.Policy.PackPath
	if watchPackFile != "" {
		packPath = watchPackFile
	}
	if packPath == "" {
		return fmt.Errorf("no policy pack configured (set policy.pack_path or pass --pack)")
	}

	registry := policy.NewRegistry(logger)
	if _, err := registry.Load(packPath); err != nil {
		return err
	}

	watcher, err := policy.NewPackWatcher(
		policy.DefaultPackWatcherConfig(filepath.Dir(packPath)), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watcher.Watch(ctx, func() error {
		_, err := registry.Reload()
		return err
	})
}
