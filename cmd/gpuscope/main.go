// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// gpuscope samples GPU telemetry (utilization or power draw, memory,
// temperature, per-process usage) from the platform's native API and
// presents it three ways:
//
// Dashboard mode (default on a terminal): an interactive braille
// chart of each device's usage over time with a legend table.
//
// Record mode (--record): a headless loop appending samples to a
// SQLite database with retention pruning, JSON logs to stderr. Meant
// for long-running collection under a process supervisor.
//
// Once mode (--once): a single harvest cycle printed to stdout as
// JSON, for scripting and quick checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/gpuscope-project/gpuscope/lib/clock"
	"github.com/gpuscope-project/gpuscope/lib/config"
	"github.com/gpuscope-project/gpuscope/lib/dashboard"
	"github.com/gpuscope-project/gpuscope/lib/gputelem"
	"github.com/gpuscope-project/gpuscope/lib/gputelem/probes"
	"github.com/gpuscope-project/gpuscope/lib/history"
	"github.com/gpuscope-project/gpuscope/lib/version"
)

// pruneInterval is how often record mode sweeps expired samples.
const pruneInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		intervalFlag string
		dbPath       string
		once         bool
		record       bool
	)

	flagSet := pflag.NewFlagSet("gpuscope", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to gpuscope.yaml (default: $GPUSCOPE_CONFIG if set)")
	flagSet.StringVar(&intervalFlag, "interval", "", "sampling interval, overriding the config (e.g. 500ms, 2s)")
	flagSet.StringVar(&dbPath, "db", "", "history database path, overriding the config")
	flagSet.BoolVar(&once, "once", false, "run one harvest cycle, print it as JSON, and exit")
	flagSet.BoolVar(&record, "record", false, "record samples to the history database headlessly")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other tooling.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("gpuscope")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if once && record {
		return fmt.Errorf("--once and --record are mutually exclusive")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if intervalFlag != "" {
		cfg.PollInterval = intervalFlag
	}
	if dbPath != "" {
		cfg.History.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case once:
		return runOnce(cfg)
	case record:
		return runRecord(ctx, cfg)
	default:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("stdout is not a terminal; use --once or --record")
		}
		return runDashboard(cfg)
	}
}

// loadConfig resolves the configuration source: the --config flag,
// then GPUSCOPE_CONFIG, then built-in defaults.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	if os.Getenv("GPUSCOPE_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// newHarvester builds the platform probe and its harvester.
func newHarvester(cfg *config.Config, logger *slog.Logger) (*gputelem.Harvester, gputelem.Probe, error) {
	filter, err := cfg.Filter()
	if err != nil {
		return nil, nil, err
	}
	probe := probes.Platform(logger, filter)
	return gputelem.NewHarvester(probe, logger), probe, nil
}

// runOnce performs a single harvest and prints it. Logging is held to
// warnings so stdout stays valid JSON and stderr stays quiet.
func runOnce(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	harvester, _, err := newHarvester(cfg, logger)
	if err != nil {
		return err
	}

	result := harvester.Harvest(cfg.Demand())
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding harvest result: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

// runRecord samples on a ticker and appends to the history store
// until the context is cancelled. Expired samples are pruned on a
// slower cadence.
func runRecord(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	harvester, _, err := newHarvester(cfg, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	store, err := history.OpenStore(history.StoreConfig{
		Path:   cfg.History.Path,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	demand := cfg.Demand()
	clk := clock.Real()
	sampleTicker := clk.NewTicker(cfg.Interval())
	defer sampleTicker.Stop()
	pruneTicker := clk.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	logger.Info("recording gpu samples",
		"path", cfg.History.Path,
		"interval", cfg.Interval().String(),
		"retention", cfg.Retention().String(),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil

		case <-sampleTicker.C:
			result := harvester.Harvest(demand)
			if err := store.Append(ctx, result.Metrics); err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Error("sample append failed", "error", err)
			}

		case <-pruneTicker.C:
			if _, err := store.Prune(ctx, cfg.Retention()); err != nil && ctx.Err() == nil {
				logger.Error("prune failed", "error", err)
			}
		}
	}
}

// runDashboard starts the interactive TUI. Logging is discarded: the
// alt-screen display owns the terminal.
func runDashboard(cfg *config.Config) error {
	logger := slog.New(slog.DiscardHandler)

	harvester, probe, err := newHarvester(cfg, logger)
	if err != nil {
		return err
	}
	probeName := ""
	if probe != nil {
		probeName = probe.Name()
	}

	model := dashboard.NewModel(dashboard.Config{
		Harvest:       harvester.Harvest,
		Demand:        cfg.Demand(),
		Interval:      cfg.Interval(),
		WindowSamples: cfg.History.WindowSamples,
		ShowLegend:    cfg.Dashboard.ShowLegend,
		ProbeName:     probeName,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `GPUScope — terminal GPU telemetry.

Samples GPU usage from the platform's native API (NVML on Linux,
IOKit on macOS) and shows a live chart with a per-device legend.

Usage:
  gpuscope [flags]

Examples:
  # Open the dashboard with defaults
  gpuscope

  # Sample every half second
  gpuscope --interval 500ms

  # Record samples headlessly to a custom database
  gpuscope --record --db /var/lib/gpuscope/history.db

  # One harvest cycle as JSON
  gpuscope --once

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
