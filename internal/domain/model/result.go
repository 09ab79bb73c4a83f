// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/winstate/internal/domain/types"
)

// DefaultName is stored when a submission carries no player name.
const DefaultName = "Anonymous"

// MaxMoves is the largest accepted move count. Every store must rank it
// exactly, including those holding moves as a float64 score.
const MaxMoves = 1 << 53

// ErrInvalid marks a submission that cannot become a Result.
var ErrInvalid = errors.New("invalid result")

// Submission is a game-completion result as received from a client.
type Submission struct {
	Game      string // partition key
	Moves     int    // primary ranking key, fewer is better
	Time      string // secondary ranking key, see NormalizeTime
	Name      string // optional display name
	RequestID string // optional idempotency key, scoped to Game
}

// Validate checks the submission and returns an error wrapping ErrInvalid.
func (s Submission) Validate() error {
	switch {
	case strings.TrimSpace(s.Game) == "":
		return fmt.Errorf("%w: missing game", ErrInvalid)
	case s.Moves < 0:
		return fmt.Errorf("%w: moves must be non-negative", ErrInvalid)
	case s.Moves > MaxMoves:
		return fmt.Errorf("%w: moves must not exceed %d", ErrInvalid, MaxMoves)
	}
	if err := ValidateTime(s.Time); err != nil {
		return err
	}
	return nil
}

// Result is one stored leaderboard entry. Results are immutable once written.
type Result struct {
	Game      string
	ID        string
	Moves     int
	Time      string
	Name      string
	CreatedAt time.Time
}

// NewResult builds the Result stored for s under the given id. The time is
// stored in its NormalizeTime form; an invalid time is kept verbatim.
func NewResult(s Submission, id string, now time.Time) Result {
	t, err := NormalizeTime(s.Time)
	if err != nil {
		t = s.Time
	}
	return Result{
		Game:      strings.TrimSpace(s.Game),
		ID:        id,
		Moves:     s.Moves,
		Time:      t,
		Name:      NameOrDefault(s.Name),
		CreatedAt: now.UTC(),
	}
}

// Entry projects r to its public shape.
func (r Result) Entry() types.Entry {
	return types.Entry{Moves: r.Moves, Time: r.Time, Name: r.Name}
}

// NameOrDefault returns name, or DefaultName when it is blank.
func NameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultName
	}
	return name
}

// Entries projects results in order.
func Entries(results []Result) []types.Entry {
	out := make([]types.Entry, len(results))
	for i, r := range results {
		out[i] = r.Entry()
	}
	return out
}
