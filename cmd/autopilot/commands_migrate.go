package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/outreach-autopilot/internal/config"
	"github.com/haasonsaas/outreach-autopilot/internal/quotastore"
	"github.com/haasonsaas/outreach-autopilot/internal/seenstore"
)

func buildMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the seen/quota store schemas if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	return cmd
}

// runMigrate opens both sqlite-backed stores, which create their schema on
// open if absent, then reports the resolved paths. There is no separate
// migration runner: the stores are additive (CREATE TABLE IF NOT EXISTS)
// and carry no versioned schema changes yet.
func runMigrate(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return withExitCode(exitConfigError, fmt.Errorf("load config: %w", err))
	}

	seen, err := seenstore.Open(cfg.SeenStorePath)
	if err != nil {
		return withExitCode(exitFatalInternal, fmt.Errorf("open seen store: %w", err))
	}
	defer seen.Close()

	quota, err := quotastore.Open(cfg.QuotaStorePath, cfg.DailyQuota, cfg.WeeklyQuota)
	if err != nil {
		return withExitCode(exitFatalInternal, fmt.Errorf("open quota store: %w", err))
	}
	defer quota.Close()

	fmt.Fprintf(out, "seen store ready:  %s\n", cfg.SeenStorePath)
	fmt.Fprintf(out, "quota store ready: %s\n", cfg.QuotaStorePath)
	return nil
}
