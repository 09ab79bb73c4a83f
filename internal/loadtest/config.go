// Package loadtest drives a running leaderboard service over HTTP and
// checks that what it reads back matches what it wrote.
package loadtest

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a Config cannot drive a run.
var ErrInvalidConfig = errors.New("invalid load test config")

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumResults  int           // Number of results to submit
	Games       int           // Number of games the results are spread over
	GamePrefix  string        // Prefix of the generated game names
	TopN        int           // Leaderboard window to fetch and verify
	ReplayRatio float64       // Share of submissions replayed with the same request id
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	Seed        uint64        // Generator seed, 0 picks one from the clock
	OutputFile  string        // Output file for generated results
	Verbose     bool          // Enable verbose logging
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.NumResults < 1:
		return fmt.Errorf("%w: results must be positive", ErrInvalidConfig)
	case c.Games < 1:
		return fmt.Errorf("%w: games must be positive", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.ReplayRatio < 0 || c.ReplayRatio > 1:
		return fmt.Errorf("%w: replay ratio must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

// Submission is the body posted to /api/win_state.
type Submission struct {
	Moves     int    `json:"moves"`
	Time      string `json:"time"`
	Game      string `json:"game"`
	Name      string `json:"name,omitempty"`
	RequestID string `json:"request_id"`
}

// Entry is one leaderboard row as served by /api/win_states.
type Entry struct {
	Moves int    `json:"moves"`
	Time  string `json:"time"`
	Name  string `json:"name"`
}

// AckResponse is the body answered by /api/win_state.
type AckResponse struct {
	Message   string `json:"message"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Generated       int
	Submitted       int
	Accepted        int
	Failed          int
	Replayed        int
	ReplayConfirmed int
	GamesVerified   int
	GamesMismatched int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
