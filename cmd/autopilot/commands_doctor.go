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

func buildDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and store readiness without launching a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	return cmd
}

// runDoctor checks everything a run needs short of actually launching the
// browser and calling the provider: config validity, site profile
// resolution, and that both sqlite stores can be opened at their
// configured paths.
func runDoctor(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return withExitCode(exitConfigError, fmt.Errorf("load config: %w", err))
	}
	fmt.Fprintf(out, "ok   config valid: %s\n", configPath)

	profile := cfg.ResolvedSiteProfile()
	if profile.ProfileCardSelector == "" || profile.NextProfileSelector == "" {
		fmt.Fprintln(out, "warn site profile missing profile_card/next_profile selectors")
	} else {
		fmt.Fprintln(out, "ok   site profile resolved")
	}

	seen, err := seenstore.Open(cfg.SeenStorePath)
	if err != nil {
		fmt.Fprintf(out, "fail seen store: %v\n", err)
		return withExitCode(exitFatalInternal, err)
	}
	seen.Close()
	fmt.Fprintf(out, "ok   seen store: %s\n", cfg.SeenStorePath)

	quota, err := quotastore.Open(cfg.QuotaStorePath, cfg.DailyQuota, cfg.WeeklyQuota)
	if err != nil {
		fmt.Fprintf(out, "fail quota store: %v\n", err)
		return withExitCode(exitFatalInternal, err)
	}
	defer quota.Close()

	snapshot, err := quota.Snapshot(ctx)
	if err != nil {
		fmt.Fprintf(out, "fail quota snapshot: %v\n", err)
		return withExitCode(exitFatalInternal, err)
	}
	fmt.Fprintf(out, "ok   quota store: %s (day %d/%d, week %d/%d)\n",
		cfg.QuotaStorePath, snapshot.DayUsed, snapshot.DayLimit, snapshot.WeekUsed, snapshot.WeekLimit)

	if cfg.ProviderAPIKey == "" {
		fmt.Fprintln(out, "fail provider_api_key is empty")
		return withExitCode(exitConfigError, fmt.Errorf("provider_api_key is empty"))
	}
	fmt.Fprintln(out, "ok   provider credentials present")

	fmt.Fprintln(out, "ready")
	return nil
}
