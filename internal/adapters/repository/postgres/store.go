// Package postgres provides a PostgreSQL-backed result store on a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/pkg/metrics"
)

const (
	backendName = "postgres"

	uniqueViolation = "23505"
)

//go:embed schema.sql
var schema string

// Store persists results in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)
var _ repository.GameCounter = (*Store)(nil)

// Open creates a connection pool for dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Put inserts r. A repeated (game, id) fails with repository.ErrDuplicateID.
func (s *Store) Put(ctx context.Context, r model.Result) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO results (game, id, moves, time_value, name, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.Game, r.ID, r.Moves, r.Time, r.Name, r.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s/%s", repository.ErrDuplicateID, r.Game, r.ID)
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Top orders with the "C" collation so time strings compare byte-wise
// whatever the database locale.
func (s *Store) Top(ctx context.Context, game string, limit int) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT game, id, moves, time_value, name, created_at
		  FROM results
		 WHERE game = $1
		 ORDER BY moves ASC, time_value COLLATE "C" ASC, id COLLATE "C" ASC
		 LIMIT $2`, game, limit)
	if err != nil {
		return nil, fmt.Errorf("query top results: %w", err)
	}
	defer rows.Close()

	out := make([]model.Result, 0, limit)
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.Game, &r.ID, &r.Moves, &r.Time, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// Count returns the number of stored results.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// Games returns the number of distinct games.
func (s *Store) Games(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT game) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}
