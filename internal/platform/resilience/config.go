package resilience

import "time"

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 15 * time.Second
	defaultHalfOpenMaxReq   = 2
)

// CircuitBreakerConfig tunes the breaker kept for each ranking source.
type CircuitBreakerConfig struct {
	Enabled bool
	// FailureThreshold is the run of consecutive failures that opens the breaker.
	FailureThreshold int
	// OpenTimeout is how long an open breaker rejects calls before it lets trial calls through.
	OpenTimeout time.Duration
	// HalfOpenMaxReq is both the trial call concurrency and the successes needed to close again.
	HalfOpenMaxReq int
}

// withDefaults replaces out-of-range values; Enabled is left as given.
func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = defaultHalfOpenMaxReq
	}
	return c
}
