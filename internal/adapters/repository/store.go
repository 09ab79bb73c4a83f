// Package repository defines the result store interface, its errors, and the
// in-memory treap implementation.
package repository

import (
	"context"

	"github.com/okian/winstate/internal/domain/model"
)

// Store persists results and answers ranked per-game queries.
type Store interface {
	// Put durably stores r. Returns ErrDuplicateID when (r.Game, r.ID) exists.
	Put(ctx context.Context, r model.Result) error

	// Top returns up to limit results of game ordered by moves ASC, time ASC,
	// id ASC. An unknown game yields an empty slice and no error.
	// Returns ErrInvalidLimit when limit < 1.
	Top(ctx context.Context, game string, limit int) ([]model.Result, error)

	// Count returns the number of stored results across all games.
	Count(ctx context.Context) (int, error)

	Close() error
}

// GameCounter is implemented by stores that can count distinct games cheaply.
type GameCounter interface {
	Games(ctx context.Context) (int, error)
}
