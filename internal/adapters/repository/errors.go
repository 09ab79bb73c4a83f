package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrDuplicateID  = errors.New("result id already stored")
	ErrClosed       = errors.New("store closed")
)
