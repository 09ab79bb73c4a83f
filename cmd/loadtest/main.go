package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/winstate/internal/loadtest"
)

// Default configuration constants.
const (
	defaultNumResults  = 10000
	defaultGames       = 20
	defaultTopN        = 10
	defaultReplayRatio = 0.05
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numResults = flag.Int("results", defaultNumResults, "Number of results to submit")
		games      = flag.Int("games", defaultGames, "Number of games to spread results over")
		prefix     = flag.String("prefix", "", "Game name prefix (default: loadtest-<unix time>)")
		topN       = flag.Int("top", defaultTopN, "Leaderboard window to verify")
		replay     = flag.Float64("replay", defaultReplayRatio, "Share of results replayed with the same request id")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 0, "Generator seed, 0 picks one")
		outputFile = flag.String("output", "", "Write the generated results to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	closer, err := loadtest.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	if *prefix == "" {
		*prefix = fmt.Sprintf("loadtest-%d", time.Now().Unix())
	}

	cfg := &loadtest.Config{
		BaseURL:     *baseURL,
		NumResults:  *numResults,
		Games:       *games,
		GamePrefix:  *prefix,
		TopN:        *topN,
		ReplayRatio: *replay,
		Workers:     *workers,
		Timeout:     *timeout,
		Seed:        *seed,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}

	if _, err := loadtest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		closer.Close()
		os.Exit(1)
	}
}
