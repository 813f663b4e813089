// Package main provides the CLI entry point for the outreach autopilot.
//
// outreach-autopilot drives a browser session against a co-founder
// matching site, asks an LLM to judge each candidate profile against a
// criteria and self-profile pair, and optionally sends a rendered message
// to candidates it judges a match — subject to a daily/weekly send quota,
// a pacing delay, and a cooperative stop signal.
//
// # Basic usage
//
//	autopilot run --config autopilot.yaml
//	autopilot status --config autopilot.yaml
//	autopilot migrate --config autopilot.yaml
//	autopilot doctor --config autopilot.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/outreach-autopilot/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// log is the process-wide redacting logger. Provider keys and site
// credentials pass through this package's wiring, so every log line goes
// through logging's redaction instead of a bare slog handler.
var log = logging.New(logging.Config{
	Level:  os.Getenv("AUTOPILOT_LOG_LEVEL"),
	Format: os.Getenv("AUTOPILOT_LOG_FORMAT"),
})

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Error("command execution failed", "error", err)
		os.Exit(exitCodeFor(err))
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() so tests can exercise it without os.Exit.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "autopilot",
		Short: "Automate outbound messages on a co-founder matching site",
		Long: `outreach-autopilot reads candidate profiles from a co-founder matching
site, asks an LLM decision engine whether each one matches a configured
criteria, and — when auto_send is enabled — sends a rendered reply, subject
to a daily/weekly quota and a pacing delay between sends.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildStatusCmd(),
		buildMigrateCmd(),
		buildDoctorCmd(),
	)

	return rootCmd
}
