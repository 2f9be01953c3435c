package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/premierstats/fpl-mcp/external/fpl"
	"github.com/premierstats/fpl-mcp/internal/auth"
	"github.com/premierstats/fpl-mcp/internal/config"
	"github.com/premierstats/fpl-mcp/internal/interfaces/mcpapi"
	"github.com/premierstats/fpl-mcp/internal/platform/cache"
	"github.com/premierstats/fpl-mcp/internal/platform/logging"
	"github.com/premierstats/fpl-mcp/internal/platform/ratelimit"
	"github.com/premierstats/fpl-mcp/internal/platform/resilience"
	"github.com/premierstats/fpl-mcp/internal/usecase"
	"github.com/premierstats/fpl-mcp/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	store, err := cache.NewStore(filepath.Join(cfg.CacheDir, "cache.db"), cfg.CacheTTL)
	if err != nil {
		return err
	}
	defer store.Close()

	// One limiter for every upstream call, authenticated or not; the window
	// is enforced against the host, not per component.
	limiter := ratelimit.NewLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)

	credentialVault := vault.New(cfg.ConfigDir, logger)
	if migrated, err := credentialVault.MigrateLegacy(); err != nil {
		logger.Warn("legacy credential migration failed", "error", err)
	} else if migrated {
		logger.Info("legacy credentials migrated to encrypted store")
	}

	client := fpl.NewClient(fpl.ClientConfig{
		BaseURL:   cfg.APIBaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
		Limiter:   limiter,
		Cache:     store,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FPLCircuitEnabled,
			FailureThreshold: cfg.FPLCircuitFailureCount,
			OpenTimeout:      cfg.FPLCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FPLCircuitHalfOpenMaxReq,
		},
	})

	manager := auth.NewManager(auth.ManagerConfig{
		Vault:      credentialVault,
		Limiter:    limiter,
		Cache:      store,
		Logger:     logger,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		LoginURL:   cfg.LoginURL,
		APIBaseURL: cfg.APIBaseURL,
		UserAgent:  cfg.UserAgent,
	})

	searchService := usecase.NewSearchService(client, client, logger)
	fixtureService := usecase.NewFixtureService(client, client, logger)
	leagueService := usecase.NewLeagueService(client, fixtureService, manager, cfg.LeagueResultsLimit, logger)

	api := mcpapi.NewAPI(searchService, fixtureService, leagueService, manager, client, logger)
	server := mcpapi.NewServer(api, cfg.ServiceName, cfg.ServiceVersion)

	logger.Info("mcp server starting",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"cache_dir", cfg.CacheDir,
	)
	return mcpapi.Run(ctx, server)
}
