package automation

import "time"

// Config holds engine-wide defaults. Per-operation options override these.
type Config struct {
	// DefaultMaxConcurrency is the item-level parallelism applied when a
	// batch request does not set its own.
	DefaultMaxConcurrency int

	// ShutdownTimeout is the maximum time to wait for in-flight batch
	// items and workflow steps during graceful shutdown.
	ShutdownTimeout time.Duration

	// StreamBufferSize is the per-subscriber event buffer for the
	// real-time stream broker.
	StreamBufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultMaxConcurrency: 1,
		ShutdownTimeout:       30 * time.Second,
		StreamBufferSize:      256,
	}
}
