// Package redis provides a Redis-backed result store.
//
// Layout under the key prefix P:
//
//	P:result:<game>:<id>  hash with the result fields
//	P:board:<game>        sorted set, score = moves, member = time "\x00" id
//	P:games               set of games with results
//	P:count               number of stored results
//
// Members with equal scores are ordered byte-wise by Redis, and "\x00" sorts
// below every byte a time string may contain, so a ZRANGE walk yields
// moves ASC, time ASC, id ASC.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/pkg/metrics"
	goredis "github.com/redis/go-redis/v9"
)

const (
	backendName   = "redis"
	memberSep     = "\x00"
	defaultPrefix = "winstate"
)

// Store persists results in Redis.
type Store struct {
	rdb    *goredis.Client
	prefix string
}

var _ repository.Store = (*Store)(nil)
var _ repository.GameCounter = (*Store)(nil)

// Open connects with opts and verifies the server answers.
func Open(ctx context.Context, opts *goredis.Options, prefix string) (*Store, error) {
	if opts == nil || strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, prefix), nil
}

// New wraps an existing client. The store owns rdb and closes it on Close.
func New(rdb *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Close closes the client.
func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) resultKey(game, id string) string {
	return s.prefix + ":result:" + game + ":" + id
}

func (s *Store) boardKey(game string) string { return s.prefix + ":board:" + game }
func (s *Store) gamesKey() string            { return s.prefix + ":games" }
func (s *Store) countKey() string            { return s.prefix + ":count" }

// Put writes the hash, the board member, and the counters in one MULTI/EXEC
// guarded by WATCH on the result key.
func (s *Store) Put(ctx context.Context, r model.Result) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	key := s.resultKey(r.Game, r.ID)
	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return repository.ErrDuplicateID
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.HSet(ctx, key, map[string]any{
				"game":       r.Game,
				"id":         r.ID,
				"moves":      r.Moves,
				"time":       r.Time,
				"name":       r.Name,
				"created_at": r.CreatedAt.UTC().Format(time.RFC3339Nano),
			})
			// exact for every count up to model.MaxMoves
			p.ZAdd(ctx, s.boardKey(r.Game), goredis.Z{
				Score:  float64(r.Moves),
				Member: r.Time + memberSep + r.ID,
			})
			p.SAdd(ctx, s.gamesKey(), r.Game)
			p.Incr(ctx, s.countKey())
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateID), errors.Is(err, goredis.TxFailedErr):
		// a failed WATCH means another writer created the same key first
		return fmt.Errorf("%w: %s/%s", repository.ErrDuplicateID, r.Game, r.ID)
	default:
		return fmt.Errorf("put result: %w", err)
	}
}

// Top reads the first limit board members and loads their hashes in one pipeline.
func (s *Store) Top(ctx context.Context, game string, limit int) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}
	members, err := s.rdb.ZRange(ctx, s.boardKey(game), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}
	if len(members) == 0 {
		return []model.Result{}, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(members))
	_, err = s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, m := range members {
			_, id, ok := strings.Cut(m, memberSep)
			if !ok {
				return fmt.Errorf("malformed board member %q", m)
			}
			cmds[i] = p.HGetAll(ctx, s.resultKey(game, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	out := make([]model.Result, 0, len(members))
	for _, cmd := range cmds {
		r, err := decode(cmd.Val())
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Count returns the number of stored results.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.Get(ctx, s.countKey()).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// Games returns the number of games with results.
func (s *Store) Games(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, s.gamesKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return int(n), nil
}

func decode(h map[string]string) (model.Result, error) {
	if len(h) == 0 {
		return model.Result{}, fmt.Errorf("board member without result hash")
	}
	moves, err := strconv.Atoi(h["moves"])
	if err != nil {
		return model.Result{}, fmt.Errorf("decode moves: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, h["created_at"])
	if err != nil {
		return model.Result{}, fmt.Errorf("decode created_at: %w", err)
	}
	return model.Result{
		Game:      h["game"],
		ID:        h["id"],
		Moves:     moves,
		Time:      h["time"],
		Name:      h["name"],
		CreatedAt: created.UTC(),
	}, nil
}
