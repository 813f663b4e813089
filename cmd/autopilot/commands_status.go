package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/outreach-autopilot/internal/config"
	"github.com/haasonsaas/outreach-autopilot/internal/quotastore"
)

func buildStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current day/week quota counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	return cmd
}

func runStatus(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return withExitCode(exitConfigError, fmt.Errorf("load config: %w", err))
	}

	quota, err := quotastore.Open(cfg.QuotaStorePath, cfg.DailyQuota, cfg.WeeklyQuota)
	if err != nil {
		return withExitCode(exitFatalInternal, fmt.Errorf("open quota store: %w", err))
	}
	defer quota.Close()

	snapshot, err := quota.Snapshot(ctx)
	if err != nil {
		return withExitCode(exitFatalInternal, fmt.Errorf("read quota snapshot: %w", err))
	}

	fmt.Fprintf(out, "day   %s: %d/%d used\n", snapshot.DayKey, snapshot.DayUsed, snapshot.DayLimit)
	fmt.Fprintf(out, "week  %s: %d/%d used\n", snapshot.WeekKey, snapshot.WeekUsed, snapshot.WeekLimit)
	return nil
}
