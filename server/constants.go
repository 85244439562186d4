package server

import "time"

// HTTP server defaults.
const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultSlowRequestThreshold marks request summaries as slow.
	DefaultSlowRequestThreshold = time.Second
)

const (
	healthPath = "/health"
	readyPath  = "/ready"
)
