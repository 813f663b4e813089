package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/outreach-autopilot/internal/browserdriver"
	"github.com/haasonsaas/outreach-autopilot/internal/clock"
	"github.com/haasonsaas/outreach-autopilot/internal/config"
	"github.com/haasonsaas/outreach-autopilot/internal/controlapi"
	"github.com/haasonsaas/outreach-autopilot/internal/coordinator"
	"github.com/haasonsaas/outreach-autopilot/internal/decision"
	"github.com/haasonsaas/outreach-autopilot/internal/domain"
	"github.com/haasonsaas/outreach-autopilot/internal/eventlog"
	"github.com/haasonsaas/outreach-autopilot/internal/metrics"
	"github.com/haasonsaas/outreach-autopilot/internal/modelresolver"
	"github.com/haasonsaas/outreach-autopilot/internal/quotastore"
	"github.com/haasonsaas/outreach-autopilot/internal/seenstore"
	"github.com/haasonsaas/outreach-autopilot/internal/stopsignal"
	"github.com/haasonsaas/outreach-autopilot/internal/template"
	"github.com/google/uuid"
)

const defaultProviderBaseURL = "https://api.openai.com/v1"

func buildRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pass over the configured listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	return cmd
}

// runOnce loads configuration, wires every component, optionally starts
// the HTTP control API, and drives the coordinator for a single run to
// completion or until stopped.
func runOnce(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return withExitCode(exitConfigError, fmt.Errorf("load config: %w", err))
	}

	runID := uuid.NewString()
	stop := stopsignal.New()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	installSignalHandler(cancel, stop)

	events, err := eventlog.Open(cfg.EventLogPath, runID)
	if err != nil {
		return withExitCode(exitFatalInternal, fmt.Errorf("open event log: %w", err))
	}
	defer events.Close()

	if cfg.ControlAddr != "" {
		closeServer, err := startControlAPI(cfg.ControlAddr, stop, cfg.EventLogPath)
		if err != nil {
			return withExitCode(exitFatalInternal, fmt.Errorf("start control api: %w", err))
		}
		defer closeServer()
	}

	return runWithDeps(ctx, cfg, runID, stop, events)
}

// startControlAPI serves the control API alongside the run already in
// progress. Its launcher starts no new Coordinator: every POST /runs is
// answered with this run's stop signal and event log path, and the request's
// inputs and toggles are not applied to any run.
func startControlAPI(addr string, stop *stopsignal.Signal, eventPath string) (func(), error) {
	srv := controlapi.New(func(ctx context.Context, run domain.RunContext) (*stopsignal.Signal, string, error) {
		return stop, eventPath, nil
	})
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{Handler: srv, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := httpServer.Serve(listener); err != nil {
			log.Warn("control api server stopped", "error", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}, nil
}

func installSignalHandler(cancel context.CancelFunc, stop *stopsignal.Signal) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received, stopping run")
		stop.Set()
		cancel()
	}()
}

func runWithDeps(ctx context.Context, cfg *config.Config, runID string, stop *stopsignal.Signal, events *eventlog.Log) error {
	runLog := log.WithRun(runID)
	runLog.Info("run starting", "listing_url", cfg.ListingURL, "shadow", cfg.Shadow, "auto_send", cfg.AutoSend)
	events.Emit("run_start", map[string]any{"listing_url": cfg.ListingURL, "shadow": cfg.Shadow, "auto_send": cfg.AutoSend})

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

	baseURL := cfg.ProviderBaseURL
	if baseURL == "" {
		baseURL = defaultProviderBaseURL
	}
	openaiConfig := openai.DefaultConfig(cfg.ProviderAPIKey)
	openaiConfig.BaseURL = baseURL
	openaiClient := openai.NewClientWithConfig(openaiConfig)

	resolved, err := modelresolver.New(openaiClient).Resolve(ctx, cfg.DecisionModel, cfg.CUAModel, cfg.PlannerMode)
	if err != nil {
		return withExitCode(exitConfigError, fmt.Errorf("resolve models: %w", err))
	}
	runLog.Info("models resolved", "decision_model", resolved.DecisionModel, "cua_model", resolved.CUAModel)
	events.Emit("models_resolved", map[string]any{"decision_model": resolved.DecisionModel, "cua_model": resolved.CUAModel})

	m := metrics.New()
	m.RunsActive.Inc()
	defer m.RunsActive.Dec()

	decisionClient := decision.NewClient(baseURL, cfg.ProviderAPIKey)
	decisionEngine := decision.NewEngine(decisionClient)
	decider := newDecisionAdapter(decisionEngine, events, &decisionParams{
		Model:           resolved.DecisionModel,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
		Verbosity:       cfg.Verbosity,
		ReasoningEffort: cfg.ReasoningEffort,
		ServiceTier:     cfg.ServiceTier,
	}, m)

	session, err := browserdriver.Launch(browserdriver.LaunchOptions{Headless: cfg.Headless})
	if err != nil {
		return withExitCode(exitFatalInternal, fmt.Errorf("launch browser: %w", err))
	}
	defer session.Close()

	driver := browserdriver.NewWithPage(session.Page(), cfg.ResolvedSiteProfile(), cfg.ResolvedCredentials())
	if err := driver.Open(cfg.ListingURL); err != nil {
		if errors.Is(err, browserdriver.ErrLoginRequired) {
			events.Emit("login_required", map[string]any{"error": err.Error()})
			return withExitCode(exitLoginRequired, err)
		}
		events.Emit("profile_processing_error", map[string]any{"error": err.Error(), "stage": "open"})
		return withExitCode(exitFatalInternal, err)
	}
	if cfg.Credentials != nil {
		events.Emit("auto_login_success", nil)
	}

	renderer := template.New(cfg.MaxMessageLength, cfg.BannedPhrases)
	run := cfg.RunContext(runID, resolved.DecisionModel, resolved.CUAModel)

	coord := coordinator.New(run, coordinator.Deps{
		Browser:  driver,
		Decision: decider,
		Seen:     seen,
		Quota:    newQuotaAdapter(quota),
		Stop:     stop,
		Clock:    clock.New(),
		Events:   events,
		Renderer: renderer,
		Metrics:  m,
	})

	sentBefore, _ := quota.Snapshot(ctx)
	coord.Run(ctx)
	sentAfter, snapErr := quota.Snapshot(ctx)
	if snapErr == nil {
		m.SetQuotaRemaining("day", float64(sentAfter.DayLimit-sentAfter.DayUsed))
		m.SetQuotaRemaining("week", float64(sentAfter.WeekLimit-sentAfter.WeekUsed))
	}
	if snapErr == nil && sentAfter.DayUsed == sentBefore.DayUsed && sentAfter.WeekUsed == sentBefore.WeekUsed &&
		(sentAfter.DayUsed >= sentAfter.DayLimit || sentAfter.WeekUsed >= sentAfter.WeekLimit) {
		return withExitCode(exitQuotaExhausted, fmt.Errorf("quota exhausted with zero sends this run"))
	}

	runLog.Info("run finished")
	return nil
}
