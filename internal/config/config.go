package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/premierstats/fpl-mcp/internal/platform/logging"
)

const (
	defaultAPIBaseURL = "https://fantasy.premierleague.com/api"
	defaultLoginURL   = "https://users.premierleague.com/accounts/login/"
	// The login endpoint rejects requests that do not look like a browser.
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Config stores runtime configuration for the server.
type Config struct {
	ServiceName    string
	ServiceVersion string

	APIBaseURL string
	LoginURL   string
	UserAgent  string

	ConfigDir string
	CacheDir  string
	CacheTTL  time.Duration

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	FPLCircuitEnabled        bool
	FPLCircuitFailureCount   int
	FPLCircuitOpenTimeout    time.Duration
	FPLCircuitHalfOpenMaxReq int

	RequestTimeout time.Duration

	LeagueResultsLimit int

	LogLevel logging.Level
}

func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home dir: %w", err)
	}

	cacheTTLSeconds, err := getEnvAsInt("CACHE_TTL", 3600)
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTLSeconds <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	rateLimitMax, err := getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 20)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_MAX_REQUESTS: %w", err)
	}
	if rateLimitMax < 1 {
		return Config{}, fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be >= 1")
	}

	rateLimitPeriod, err := getEnvAsInt("RATE_LIMIT_PERIOD_SECONDS", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_PERIOD_SECONDS: %w", err)
	}
	if rateLimitPeriod < 1 {
		return Config{}, fmt.Errorf("RATE_LIMIT_PERIOD_SECONDS must be >= 1")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("FPL_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("FPL_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailureCount < 1 {
		return Config{}, fmt.Errorf("FPL_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("FPL_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if circuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("FPL_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	circuitHalfOpenMaxReq, err := getEnvAsInt("FPL_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if circuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("FPL_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	requestTimeout, err := time.ParseDuration(getEnv("FPL_REQUEST_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_REQUEST_TIMEOUT: %w", err)
	}
	if requestTimeout <= 0 {
		return Config{}, fmt.Errorf("FPL_REQUEST_TIMEOUT must be > 0")
	}

	leagueResultsLimit, err := getEnvAsInt("LEAGUE_RESULTS_LIMIT", 25)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_RESULTS_LIMIT: %w", err)
	}
	if leagueResultsLimit < 1 {
		return Config{}, fmt.Errorf("LEAGUE_RESULTS_LIMIT must be >= 1")
	}

	cfg := Config{
		ServiceName:              getEnv("APP_SERVICE_NAME", "fpl-mcp"),
		ServiceVersion:           getEnv("APP_SERVICE_VERSION", "dev"),
		APIBaseURL:               strings.TrimRight(getEnv("FPL_API_BASE_URL", defaultAPIBaseURL), "/"),
		LoginURL:                 getEnv("FPL_LOGIN_URL", defaultLoginURL),
		UserAgent:                getEnv("FPL_USER_AGENT", defaultUserAgent),
		ConfigDir:                getEnv("FPL_CONFIG_DIR", filepath.Join(home, ".fpl-mcp")),
		CacheDir:                 getEnv("FPL_CACHE_DIR", filepath.Join(home, ".cache", "fpl-mcp")),
		CacheTTL:                 time.Duration(cacheTTLSeconds) * time.Second,
		RateLimitMaxRequests:     rateLimitMax,
		RateLimitWindow:          time.Duration(rateLimitPeriod) * time.Second,
		FPLCircuitEnabled:        circuitEnabled,
		FPLCircuitFailureCount:   circuitFailureCount,
		FPLCircuitOpenTimeout:    circuitOpenTimeout,
		FPLCircuitHalfOpenMaxReq: circuitHalfOpenMaxReq,
		RequestTimeout:           requestTimeout,
		LeagueResultsLimit:       leagueResultsLimit,
		LogLevel:                 parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}
