// Package types contains common types used across the application
package types

// Entry is the public projection of a leaderboard result.
// Storage keys (game, id) are never part of it.
type Entry struct {
	Moves int    `json:"moves"`
	Time  string `json:"time"`
	Name  string `json:"name"`
}
