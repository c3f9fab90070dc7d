// Package main is the entrypoint for the network-tag to device-tag sync.
// By default it only prints the plan; changes are pushed with -apply.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/LakeAndrew/MerakiScripts/internal/config"
	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
	"github.com/LakeAndrew/MerakiScripts/internal/tagsync"
)

func main() {
	envFile := flag.String("env", "", "path to environment file (default environment.env if present)")
	orgID := flag.String("org", "", "organization ID (overrides ORG_ID)")
	apply := flag.Bool("apply", false, "push the planned tag changes (dry run without it)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load environment file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if *orgID != "" {
		cfg.OrgID = *orgID
	}
	if cfg.OrgID == "" {
		logger.Error("organization ID is required (set ORG_ID or pass -org)")
		os.Exit(1)
	}

	client := meraki.New(meraki.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Logger:  logger,
		Limiter: meraki.NewLocalLimiter(cfg.DashboardRPS, cfg.DashboardBurst),
	})

	syncer := tagsync.NewSyncer(client, logger, nil)

	ctx := context.Background()

	plan, err := syncer.BuildPlan(ctx, cfg.OrgID)
	if err != nil {
		logger.Error("failed to build tag sync plan", "error", err)
		os.Exit(1)
	}

	printPlan(plan)

	if !*apply {
		if len(plan.Changes) > 0 {
			fmt.Println("\ndry run: re-run with -apply to push these changes")
		}
		return
	}

	result, err := syncer.Apply(ctx, plan)
	if err != nil {
		logger.Error("tag sync interrupted", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\napplied %d change(s), %d failed\n", result.Applied, result.Failed)
	for _, detail := range result.Errors {
		fmt.Println("  error:", detail)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

// printPlan writes a human-readable plan summary to stdout.
func printPlan(plan *tagsync.Plan) {
	if len(plan.Changes) == 0 {
		fmt.Printf("all devices in org %s already carry their network tags (%d checked)\n",
			plan.OrgID, plan.Skipped)
	} else {
		fmt.Printf("planned changes for org %s (%d device(s), %d already in sync):\n",
			plan.OrgID, len(plan.Changes), plan.Skipped)
		for _, change := range plan.Changes {
			fmt.Printf("  %s %s: [%s] -> [%s]\n",
				change.Network,
				change.Serial,
				strings.Join(change.Before, " "),
				strings.Join(change.After, " "),
			)
		}
	}

	for _, warning := range plan.Warnings {
		fmt.Println("  warning:", warning)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
