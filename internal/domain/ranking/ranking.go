// Package ranking defines the leaderboard order shared by every store.
//
// Order: moves ASC, then time ASC (byte-wise), then id ASC. The id makes the
// order total so identical reads return identical sequences.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/internal/domain/types"
)

// DefaultLimit is the leaderboard window returned when the caller asks for none.
const DefaultLimit = 10

// Compare returns a negative number when a ranks ahead of b.
func Compare(a, b model.Result) int {
	if c := cmp.Compare(a.Moves, b.Moves); c != 0 {
		return c
	}
	if c := strings.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Less reports whether a ranks ahead of b.
func Less(a, b model.Result) bool {
	return Compare(a, b) < 0
}

// Sort orders results in place.
func Sort(results []model.Result) {
	slices.SortFunc(results, Compare)
}

// Top fully orders a copy of results and keeps the first limit entries.
// Truncation always happens after ordering.
func Top(results []model.Result, limit int) []model.Result {
	out := slices.Clone(results)
	Sort(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// IsRanked reports whether entries respect the public order
// (moves ASC, then time ASC).
func IsRanked(entries []types.Entry) bool {
	for i := 1; i < len(entries); i++ {
		a, b := entries[i-1], entries[i]
		if a.Moves > b.Moves || a.Moves == b.Moves && a.Time > b.Time {
			return false
		}
	}
	return true
}
