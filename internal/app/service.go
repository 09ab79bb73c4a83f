// Package service provides the leaderboard operations behind the HTTP API:
// recording game results and answering ranked per-game queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	repository "github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/domain/dedupe"
	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/internal/domain/ranking"
	"github.com/okian/winstate/internal/domain/types"
	"github.com/okian/winstate/pkg/logger"
	"github.com/okian/winstate/pkg/metrics"
)

// Error kinds returned by the service. Callers classify with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("game not found")
	ErrNotStarted         = errors.New("service not started")
)

// Receipt describes a recorded result.
type Receipt struct {
	Result model.Result
	// Duplicate is true when the submission's idempotency key was already
	// recorded and no new result was written.
	Duplicate bool
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	ownedStore bool
	deduper    dedupe.Deduper
	inflight   singleflight.Group

	dedupeSize   int
	defaultLimit int
	maxLimit     int
	opTimeout    time.Duration
	newID        func() string
	now          func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects the result store. The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDedupeSize sets the number of idempotency keys remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDefaultLimit sets the leaderboard length used when the caller gives none.
func WithDefaultLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// WithMaxLimit caps the leaderboard length a caller may ask for.
func WithMaxLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithOpTimeout bounds every store call.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithClock replaces time.Now for stamping results.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dedupeSize:   50_000,
		defaultLimit: ranking.DefaultLimit,
		maxLimit:     100,
		opTimeout:    5 * time.Second,
		newID:        uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Start prepares the idempotency cache and, when no store was injected,
// an in-memory treap store owned by the service.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	if s.store == nil {
		s.store = repository.NewTreapStore(ctx)
		s.ownedStore = true
		s.logger.Info(ctx, "no store injected, using in-memory treap store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("defaultLimit", s.defaultLimit),
		logger.Int("maxLimit", s.maxLimit),
		logger.Duration("opTimeout", s.opTimeout),
	)
	return nil
}

// Stop marks the service stopped and closes the store if the service created it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping leaderboard service...")

	if s.ownedStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
		}
		s.store = nil
		s.ownedStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

func (s *Service) components() (repository.Store, dedupe.Deduper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, ErrNotStarted)
	}
	return s.store, s.deduper, nil
}

// RecordResult validates sub, assigns a fresh id, and stores it.
//
// When sub carries a RequestID, submissions with the same (game, request id)
// collapse to one stored result: concurrent callers share a single write and
// later callers get the remembered result with Duplicate set. Failed writes
// are not remembered, so a retry writes again.
func (s *Service) RecordResult(ctx context.Context, sub model.Submission) (Receipt, error) {
	start := time.Now()

	if err := sub.Validate(); err != nil {
		metrics.RecordResultRejected()
		return Receipt{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	store, deduper, err := s.components()
	if err != nil {
		return Receipt{}, err
	}

	if sub.RequestID == "" {
		r, err := s.write(ctx, store, sub)
		if err != nil {
			s.recordStoreError(start, err)
			return Receipt{}, err
		}
		return Receipt{Result: r}, nil
	}

	key := strings.TrimSpace(sub.Game) + "\x00" + sub.RequestID
	if r, ok := deduper.Lookup(ctx, key); ok {
		metrics.RecordResultDuplicate()
		return Receipt{Result: r, Duplicate: true}, nil
	}

	leader := false
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		leader = true
		// a write may have finished between Lookup and Do
		if r, ok := deduper.Lookup(ctx, key); ok {
			leader = false
			return r, nil
		}
		r, err := s.write(ctx, store, sub)
		if err != nil {
			return nil, err
		}
		r = deduper.Remember(ctx, key, r)
		metrics.UpdateDedupeSize(deduper.Size())
		return r, nil
	})
	if err != nil {
		s.recordStoreError(start, err)
		return Receipt{}, err
	}
	if !leader {
		metrics.RecordResultDuplicate()
	}
	return Receipt{Result: v.(model.Result), Duplicate: !leader}, nil
}

func (s *Service) write(ctx context.Context, store repository.Store, sub model.Submission) (model.Result, error) {
	r := model.NewResult(sub, s.newID(), s.now())

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := store.Put(opCtx, r); err != nil {
		return model.Result{}, fmt.Errorf("%w: put result: %w", ErrStorageUnavailable, err)
	}

	metrics.RecordResultRecorded()
	s.logger.Debug(ctx, "result recorded",
		logger.String("game", r.Game),
		logger.String("id", r.ID),
		logger.Int("moves", r.Moves),
		logger.String("time", r.Time),
	)
	return r, nil
}

// TopResults returns up to limit entries of game in leaderboard order.
// A limit of 0 selects the configured default. An unknown game, or a game
// with no results, fails with ErrNotFound.
func (s *Service) TopResults(ctx context.Context, game string, limit int) ([]types.Entry, error) {
	start := time.Now()

	game = strings.TrimSpace(game)
	if game == "" {
		return nil, fmt.Errorf("%w: missing game", ErrInvalidInput)
	}
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 1 || limit > s.maxLimit {
		return nil, fmt.Errorf("%w: limit must be within 1..%d", ErrInvalidInput, s.maxLimit)
	}
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	results, err := store.Top(opCtx, game, limit)
	if err != nil {
		err = fmt.Errorf("%w: top results: %w", ErrStorageUnavailable, err)
		s.recordStoreError(start, err)
		return nil, err
	}
	if len(results) == 0 {
		metrics.RecordQueryNotFound()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, game)
	}

	metrics.RecordQueryServed()
	return model.Entries(ranking.Top(results, limit)), nil
}

func (s *Service) recordStoreError(start time.Time, err error) {
	kind := "storage_unavailable"
	if errors.Is(err, context.DeadlineExceeded) {
		kind = "timeout"
	}
	metrics.RecordErrorByComponent("service", kind)
	metrics.RecordErrorByType(kind, "error")
	metrics.RecordErrorLatency("service", kind, float64(time.Since(start).Milliseconds()))
	s.logger.Error(context.Background(), "store operation failed", logger.Error(err))
}

// RefreshMetrics publishes store and cache gauges.
func (s *Service) RefreshMetrics(ctx context.Context) error {
	store, deduper, err := s.components()
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := store.Count(opCtx)
	if err != nil {
		return fmt.Errorf("%w: count: %w", ErrStorageUnavailable, err)
	}
	metrics.UpdateResultsTotal(n)
	if gc, ok := store.(repository.GameCounter); ok {
		games, err := gc.Games(opCtx)
		if err != nil {
			return fmt.Errorf("%w: games: %w", ErrStorageUnavailable, err)
		}
		metrics.UpdateGamesTotal(games)
	}
	metrics.UpdateDedupeSize(deduper.Size())
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started, store, deduper := s.started, s.store, s.deduper
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      started,
		"dedupeSize":   s.dedupeSize,
		"defaultLimit": s.defaultLimit,
		"maxLimit":     s.maxLimit,
		"opTimeoutMs":  s.opTimeout.Milliseconds(),
	}
	if !started {
		return stats
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	stats["dedupeKeys"] = deduper.Size()
	if n, err := store.Count(ctx); err == nil {
		stats["totalResults"] = n
	} else {
		stats["storeError"] = err.Error()
	}
	if gc, ok := store.(repository.GameCounter); ok {
		if games, err := gc.Games(ctx); err == nil {
			stats["totalGames"] = games
		}
	}
	return stats
}

// Size returns the current number of remembered idempotency keys.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
