package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/internal/domain/ranking"
	"github.com/okian/winstate/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Each game owns one treap keyed by ranking.Compare, so an in-order walk
// yields the leaderboard from best to worst and Top stops after limit nodes.
// Priorities are random, giving O(log n) expected depth whatever the arrival
// order of moves.

const backendName = "memory"

// treap node
type node struct {
	result model.Result
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, r model.Result, prio uint64) *node {
	if n == nil {
		return &node{result: r, prio: prio, size: 1}
	}
	if ranking.Less(r, n.result) {
		n.left = insert(n.left, r, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, r, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// collectTop appends up to limit results in rank order.
func collectTop(n *node, limit int, out *[]model.Result) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.result)
	}
	if len(*out) < limit {
		collectTop(n.right, limit, out)
	}
}

// board is the per-game state: the treap plus the ids it holds.
type board struct {
	root *node
	ids  map[string]struct{}
}

// TreapStore keeps every game's leaderboard in memory.
type TreapStore struct {
	mu       sync.RWMutex
	boards   map[string]*board
	count    int
	closed   bool
	priority func() uint64

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*TreapStore)(nil)
var _ GameCounter = (*TreapStore)(nil)

// NewTreapStore constructs a treap store with configuration options.
// Background metrics updates stop when ctx is done or Close is called.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		boards:                make(map[string]*board),
		priority:              rand.Uint64,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Put inserts r into its game's treap in O(log n) expected time.
func (s *TreapStore) Put(ctx context.Context, r model.Result) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	b, ok := s.boards[r.Game]
	if !ok {
		b = &board{ids: make(map[string]struct{})}
		s.boards[r.Game] = b
	}
	if _, dup := b.ids[r.ID]; dup {
		metrics.RecordErrorByComponent("repository", "duplicate_id")
		return fmt.Errorf("%w: %s/%s", ErrDuplicateID, r.Game, r.ID)
	}
	b.ids[r.ID] = struct{}{}
	b.root = insert(b.root, r, s.priority())
	s.count++
	return nil
}

// Top walks the game's treap in order and stops after limit results.
func (s *TreapStore) Top(ctx context.Context, game string, limit int) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	b, ok := s.boards[game]
	if !ok {
		return []model.Result{}, nil
	}
	out := make([]model.Result, 0, min(limit, nsize(b.root)))
	collectTop(b.root, limit, &out)
	return out, nil
}

// Count returns the total number of stored results.
func (s *TreapStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count, nil
}

// Games returns the number of games holding at least one result.
func (s *TreapStore) Games(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards), nil
}

// Close stops the metrics updater. Later calls fail with ErrClosed.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	s.wg.Wait()
	return nil
}

// startMetricsUpdater starts a background goroutine that publishes store gauges.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *TreapStore) updateMetrics() {
	s.mu.RLock()
	results, games := s.count, len(s.boards)
	s.mu.RUnlock()

	metrics.UpdateResultsTotal(results)
	metrics.UpdateGamesTotal(games)
}
