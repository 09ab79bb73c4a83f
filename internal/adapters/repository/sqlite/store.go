// Package sqlite provides a SQLite-backed result store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const backendName = "sqlite"

// Store persists results in a single SQLite file.
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)
var _ repository.GameCounter = (*Store)(nil)

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS, ""); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts r. A repeated (game, id) fails with repository.ErrDuplicateID.
func (s *Store) Put(ctx context.Context, r model.Result) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (game, id, moves, time_value, name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Game, r.ID, r.Moves, r.Time, r.Name, r.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", repository.ErrDuplicateID, r.Game, r.ID)
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Top reads the rank index in order. Text comparison uses SQLite's default
// BINARY collation, which is byte-wise.
func (s *Store) Top(ctx context.Context, game string, limit int) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(backendName, float64(time.Since(start).Microseconds())/1000)
	}()

	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game, id, moves, time_value, name, created_at
		   FROM results
		  WHERE game = ?
		  ORDER BY moves ASC, time_value ASC, id ASC
		  LIMIT ?`,
		game, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top results: %w", err)
	}
	defer rows.Close()

	out := make([]model.Result, 0, limit)
	for rows.Next() {
		var (
			r       model.Result
			created int64
		)
		if err := rows.Scan(&r.Game, &r.ID, &r.Moves, &r.Time, &r.Name, &created); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
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
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// Games returns the number of distinct games.
func (s *Store) Games(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT game) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
