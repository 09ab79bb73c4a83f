package repository

import "time"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithPrioritySource replaces the random source of treap priorities.
// Tests use it to build deterministic trees.
func WithPrioritySource(next func() uint64) Option {
	return func(s *TreapStore) {
		if next != nil {
			s.priority = next
		}
	}
}
