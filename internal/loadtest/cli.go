package loadtest

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/winstate/pkg/logger"
)

const logFilePermission = 0600

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging initializes the global logger to write to stdout and, when
// logFile is set, to that file as well.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		return nopCloser{}, logger.Init()
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Winstate Load Test Tool
=======================

Submits generated game results to a running winstate service, replays a
sample with the same request ids and verifies every leaderboard it touched.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -results int       Number of results to submit (default 10000)
  -games int         Number of games to spread them over (default 20)
  -prefix string     Game name prefix (default "loadtest-<unix time>")
  -top int           Leaderboard window to verify (default 10)
  -replay float      Share of results replayed to check idempotency (default 0.05)
  -workers int       Number of concurrent workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -seed uint         Generator seed, 0 picks one (default 0)
  -output string     Write the generated results to this JSON file
  -log string        Also write logs to this file
  -verbose           Log progress and every failed request
  -help              Show this help message

Examples:
  go run ./cmd/loadtest -results 50000 -workers 16
  go run ./cmd/loadtest -games 1 -top 100 -verbose
`)
}
