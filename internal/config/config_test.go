package config

import (
	"testing"
	"time"

	"github.com/premierstats/fpl-mcp/internal/platform/logging"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIBaseURL != "https://fantasy.premierleague.com/api" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.CacheTTL != time.Hour {
		t.Fatalf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
	if cfg.RateLimitMaxRequests != 20 || cfg.RateLimitWindow != time.Minute {
		t.Fatalf("rate limit = %d/%v, want 20/1m", cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	}
	if cfg.LeagueResultsLimit != 25 {
		t.Fatalf("LeagueResultsLimit = %d, want 25", cfg.LeagueResultsLimit)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CACHE_TTL", "120")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_PERIOD_SECONDS", "10")
	t.Setenv("FPL_API_BASE_URL", "https://example.test/api/")
	t.Setenv("APP_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.CacheTTL != 2*time.Minute {
		t.Fatalf("CacheTTL = %v, want 2m", cfg.CacheTTL)
	}
	if cfg.RateLimitMaxRequests != 5 || cfg.RateLimitWindow != 10*time.Second {
		t.Fatalf("rate limit = %d/%v, want 5/10s", cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	}
	if cfg.APIBaseURL != "https://example.test/api" {
		t.Fatalf("APIBaseURL = %q, trailing slash should be trimmed", cfg.APIBaseURL)
	}
	if cfg.LogLevel != logging.LevelDebug {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CACHE_TTL":               "not-a-number",
		"RATE_LIMIT_MAX_REQUESTS": "0",
		"FPL_CIRCUIT_ENABLED":     "maybe",
		"FPL_REQUEST_TIMEOUT":     "-5s",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%q", key, value)
			}
		})
	}
}
