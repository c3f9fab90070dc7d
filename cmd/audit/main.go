// Package main is the entrypoint for the one-shot organization audit.
// It scans every network for filtered clients, access ports on the target
// VLAN, and device inventory, then writes the JSON and Excel artifacts.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/LakeAndrew/MerakiScripts/internal/audit"
	"github.com/LakeAndrew/MerakiScripts/internal/config"
	"github.com/LakeAndrew/MerakiScripts/internal/export"
	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
)

func main() {
	envFile := flag.String("env", "", "path to environment file (default environment.env if present)")
	orgID := flag.String("org", "", "organization ID (overrides ORG_ID)")
	jsonPath := flag.String("json", "", "JSON output path (overrides EXPORT_JSON_PATH)")
	xlsxPath := flag.String("xlsx", "", "Excel output path (overrides EXPORT_XLSX_PATH)")
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
	if *jsonPath != "" {
		cfg.JSONExportPath = *jsonPath
	}
	if *xlsxPath != "" {
		cfg.XLSXExportPath = *xlsxPath
	}

	client := meraki.New(meraki.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Logger:  logger,
		Limiter: meraki.NewLocalLimiter(cfg.DashboardRPS, cfg.DashboardBurst),
	})

	runner := audit.NewRunner(client, logger, nil, audit.Options{
		OrgID:              cfg.OrgID,
		Manufacturers:      cfg.ManufacturerList(),
		MACPrefix:          cfg.MACPrefix,
		TargetVLAN:         cfg.TargetVLAN,
		Lookback:           cfg.Lookback,
		NetworkConcurrency: cfg.NetworkConcurrency,
	})

	logger.Info("starting audit",
		"org_id", cfg.OrgID,
		"api_key", cfg.RedactedAPIKey(),
		"vlan", cfg.TargetVLAN,
		"lookback", cfg.Lookback.String(),
	)

	result, err := runner.Run(context.Background(), cfg.OrgID)
	if err != nil {
		logger.Error("audit failed", "error", err)
		os.Exit(1)
	}

	summary := result.Summary()
	logger.Info("audit complete",
		"filtered_clients", summary.FilteredClients,
		"vlan_access_ports", summary.AccessPorts,
		"devices", summary.Devices,
		"warnings", summary.Warnings,
	)
	for _, warning := range result.Warnings {
		logger.Warn("audit warning", "detail", warning)
	}

	if err := export.WriteJSONFile(cfg.JSONExportPath, result); err != nil {
		logger.Error("failed to write JSON export", "path", cfg.JSONExportPath, "error", err)
		os.Exit(1)
	}
	logger.Info("wrote JSON export", "path", cfg.JSONExportPath)

	if err := export.WriteWorkbookFile(cfg.XLSXExportPath, result); err != nil {
		logger.Error("failed to write Excel export", "path", cfg.XLSXExportPath, "error", err)
		os.Exit(1)
	}
	logger.Info("wrote Excel export", "path", cfg.XLSXExportPath)
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
