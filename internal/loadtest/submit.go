package loadtest

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/winstate/pkg/logger"
)

const progressInterval = time.Second

type submitCounters struct {
	submitted  atomic.Int64
	accepted   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// submitAll posts subs with at most workers requests in flight and returns
// the ones the service stored. Request failures are counted; only
// cancellation aborts the run.
func submitAll(ctx context.Context, cfg *Config, client *Client, subs []Submission, phase string) (*submitCounters, []Submission) {
	log := logger.Get().Named("loadtest")
	log.Info(ctx, "submitting results",
		logger.String("phase", phase),
		logger.Int("count", len(subs)),
		logger.Int("workers", cfg.Workers))

	c := &submitCounters{}
	done := make(chan struct{})
	go reportProgress(ctx, cfg, c, len(subs), phase, done)
	defer close(done)

	stored := make([]bool, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, sub := range subs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ack, err := client.Submit(gctx, sub)
			c.submitted.Add(1)
			switch {
			case err != nil:
				c.failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "submission failed", logger.String("game", sub.Game), logger.Error(err))
				}
			case ack.Duplicate:
				c.duplicates.Add(1)
				stored[i] = true
			default:
				c.accepted.Add(1)
				stored[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]Submission, 0, len(subs))
	for i, ok := range stored {
		if ok {
			kept = append(kept, subs[i])
		}
	}
	return c, kept
}

func reportProgress(ctx context.Context, cfg *Config, c *submitCounters, total int, phase string, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if !cfg.Verbose {
				continue
			}
			logger.Get().Info(ctx, "progress",
				logger.String("phase", phase),
				logger.Int64("submitted", c.submitted.Load()),
				logger.Int("total", total),
				logger.Int64("accepted", c.accepted.Load()),
				logger.Int64("duplicate", c.duplicates.Load()),
				logger.Int64("failed", c.failed.Load()))
		}
	}
}
