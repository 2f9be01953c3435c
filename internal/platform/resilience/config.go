package resilience

import "time"

// CircuitBreakerConfig tunes the breaker in front of the FPL API. Out-of-range
// values are replaced by NormalizeCircuitBreakerConfig, so config loading can
// pass user input through unchecked.
type CircuitBreakerConfig struct {
	// Enabled bypasses the breaker entirely when false; requests still go
	// through the rate limiter.
	Enabled bool
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int
	// OpenTimeout is how long an open circuit rejects requests before probing.
	OpenTimeout time.Duration
	// HalfOpenMaxReq caps concurrent probe requests while half-open.
	HalfOpenMaxReq int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

// NormalizeCircuitBreakerConfig swaps zero or negative fields for the
// defaults. Enabled is left as given.
func NormalizeCircuitBreakerConfig(cfg CircuitBreakerConfig) CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.HalfOpenMaxReq < 1 {
		cfg.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return cfg
}
