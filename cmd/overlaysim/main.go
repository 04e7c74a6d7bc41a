package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kharnos-labs/overlaysim/internal/config"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/telemetry"
	"github.com/kharnos-labs/overlaysim/pkg/simulation"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD) -X main.buildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)" -o overlaysim ./cmd/overlaysim
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "overlaysim.yaml", "path to the simulation config YAML")
	until := fs.Duration("until", 0, "stop the simulation at this simulated horizon (0 runs to quiescence)")
	seed := fs.Int64("seed", 0, "RNG seed (0 uses the config file's random_seed)")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}

	runSeed := cfg.RandomSeed
	if *seed != 0 {
		runSeed = *seed
	}

	logger := telemetry.NewStderrLogger("overlaysim")
	sim, err := simulation.New(cfg, logger, runSeed)
	if err != nil {
		slog.Error("failed to build simulation", "err", err)
		os.Exit(1)
	}

	var horizon *engine.SimTime
	if *until > 0 {
		h := engine.SimTime(*until)
		horizon = &h
	}

	started := time.Now()
	if err := sim.Run(horizon); err != nil {
		slog.Error("simulation terminated", "err", err)
		os.Exit(1)
	}
	slog.Info("simulation finished",
		"wall_time", time.Since(started),
		"avg_bandwidth", sim.AvgBandwidth(),
		"median_bandwidth", sim.MedianBandwidth(),
	)
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "overlaysim.yaml", "path to the simulation config YAML")
	fs.Parse(args)

	if _, err := config.Load(*cfgPath); err != nil {
		slog.Error("config invalid", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	fmt.Println("config OK")
}

func printVersion() {
	fmt.Printf("overlaysim %s (%s) built %s\n", version, commit, buildDate)
}

func printUsage() {
	fmt.Println("Usage: overlaysim <command> [options]")
	fmt.Println()
	fmt.Println("  run --config overlaysim.yaml [--until 30m] [--seed N]   Run a simulation")
	fmt.Println("  validate --config overlaysim.yaml                      Validate a config file")
	fmt.Println("  version                                                 Show version information")
}
