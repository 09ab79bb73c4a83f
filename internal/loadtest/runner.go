package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/winstate/pkg/logger"
)

const directoryPermission = 0750

// ErrVerification is returned when served leaderboards or replay answers
// differ from what the run expects.
var ErrVerification = errors.New("load test verification failed")

// Run submits generated results, replays a sample of them and verifies
// every touched leaderboard.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting winstate load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("results", cfg.NumResults),
		logger.Int("games", cfg.Games),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	subs := Generate(cfg)
	stats.Generated = len(subs)

	first, stored := submitAll(ctx, cfg, client, subs, "submit")
	stats.Submitted = int(first.submitted.Load())
	stats.Accepted = int(first.accepted.Load() + first.duplicates.Load())
	stats.Failed = int(first.failed.Load())

	replays := pickReplays(stored, cfg.ReplayRatio)
	if len(replays) > 0 {
		again, _ := submitAll(ctx, cfg, client, replays, "replay")
		stats.Replayed = int(again.submitted.Load())
		stats.ReplayConfirmed = int(again.duplicates.Load())
		stats.Failed += int(again.failed.Load())
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	games, mismatches, err := verifyAll(ctx, cfg, client, stored)
	if err != nil {
		return stats, fmt.Errorf("leaderboard verification aborted: %w", err)
	}
	stats.GamesMismatched = len(mismatches)
	stats.GamesVerified = games - len(mismatches)

	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, stats)

	if stats.GamesMismatched > 0 || stats.ReplayConfirmed != stats.Replayed {
		return stats, fmt.Errorf("%w: %d mismatched games, %d/%d replays confirmed",
			ErrVerification, stats.GamesMismatched, stats.ReplayConfirmed, stats.Replayed)
	}
	log.Info(ctx, "load test completed successfully")
	return stats, nil
}

// saveSubmissions writes subs to filename as an indented JSON array.
func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func logStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted+stats.Replayed) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("failed", stats.Failed),
		logger.Int("replayed", stats.Replayed),
		logger.Int("replayConfirmed", stats.ReplayConfirmed),
		logger.Int("gamesVerified", stats.GamesVerified),
		logger.Int("gamesMismatched", stats.GamesMismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", perSecond))
}
