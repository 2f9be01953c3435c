package fpl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/premierstats/fpl-mcp/internal/domain/fixture"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
	"github.com/premierstats/fpl-mcp/internal/platform/cache"
	"github.com/premierstats/fpl-mcp/internal/platform/logging"
	"github.com/premierstats/fpl-mcp/internal/platform/ratelimit"
	"github.com/premierstats/fpl-mcp/internal/platform/resilience"
)

const (
	defaultBaseURL = "https://fantasy.premierleague.com/api"

	cacheKeyBootstrap       = "bootstrap_static"
	cacheKeyFixtures        = "fixtures"
	cacheKeyCurrentGameweek = "current_gameweek"

	currentGameweekTTL = 10 * time.Minute
	maxResponseBytes   = 32 << 20
)

var errFPLTransient = crerr.New("fpl transient failure")

// IsTransient reports whether err stems from a retriable upstream condition
// (network failure or 5xx). The caller decides whether to retry; the client
// never loops on its own.
func IsTransient(err error) bool {
	return crerr.Is(err, errFPLTransient)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	Logger         *logging.Logger
	Limiter        *ratelimit.Limiter
	Cache          *cache.Store
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches the public FPL endpoints. Every request passes the rate
// limiter, results flow through the shared disk cache, and a circuit breaker
// sheds load when the upstream misbehaves.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	logger         *logging.Logger
	limiter        *ratelimit.Limiter
	cache          *cache.Store
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(20, time.Minute)
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		userAgent:      strings.TrimSpace(cfg.UserAgent),
		logger:         logger,
		limiter:        limiter,
		cache:          cfg.Cache,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// BootstrapStatic returns the full static snapshot: players, teams,
// positions, gameweeks. Cached with the store default TTL.
func (c *Client) BootstrapStatic(ctx context.Context) (*roster.Snapshot, error) {
	raw, err := c.cachedGet(ctx, cacheKeyBootstrap, "bootstrap-static/", cache.TTLDefault)
	if err != nil {
		return nil, err
	}

	var env bootstrapEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode bootstrap-static: %w", err)
	}
	return mapSnapshot(env), nil
}

// Fixtures returns every fixture of the season. Cached with the store
// default TTL.
func (c *Client) Fixtures(ctx context.Context) ([]fixture.Fixture, error) {
	raw, err := c.cachedGet(ctx, cacheKeyFixtures, "fixtures/", cache.TTLDefault)
	if err != nil {
		return nil, err
	}

	var items []fixtureItem
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return mapFixtures(items), nil
}

// PlayerSummary returns per-player history and upcoming fixture detail.
func (c *Client) PlayerSummary(ctx context.Context, playerID int) (PlayerSummary, error) {
	if playerID <= 0 {
		return PlayerSummary{}, fmt.Errorf("player id must be greater than zero")
	}

	key := fmt.Sprintf("element_summary_%d", playerID)
	path := fmt.Sprintf("element-summary/%d/", playerID)
	raw, err := c.cachedGet(ctx, key, path, cache.TTLDefault)
	if err != nil {
		return PlayerSummary{}, err
	}

	var summary PlayerSummary
	if err := sonic.Unmarshal(raw, &summary); err != nil {
		return PlayerSummary{}, fmt.Errorf("decode element-summary player_id=%d: %w", playerID, err)
	}
	return summary, nil
}

// CurrentGameweek resolves the running gameweek with a short TTL so flag
// flips around a deadline are picked up quickly.
func (c *Client) CurrentGameweek(ctx context.Context) (roster.Gameweek, error) {
	loader := func(ctx context.Context) ([]byte, error) {
		snapshot, err := c.BootstrapStatic(ctx)
		if err != nil {
			return nil, err
		}

		gwID, ok := snapshot.CurrentGameweekID()
		if !ok {
			return nil, fmt.Errorf("no current or next gameweek flagged")
		}
		gw, ok := snapshot.GameweekByID(gwID)
		if !ok {
			// Fallback id points before the next gameweek; synthesize it.
			gw = roster.Gameweek{ID: gwID, Finished: true}
		}
		return sonic.Marshal(gw)
	}

	raw, err := c.cache.GetOrLoad(ctx, cacheKeyCurrentGameweek, loader, currentGameweekTTL)
	if err != nil {
		return roster.Gameweek{}, err
	}

	var gw roster.Gameweek
	if err := sonic.Unmarshal(raw, &gw); err != nil {
		return roster.Gameweek{}, fmt.Errorf("decode current gameweek: %w", err)
	}
	return gw, nil
}

// InvalidateStatic drops the cached static payloads, forcing a refetch.
func (c *Client) InvalidateStatic(ctx context.Context) error {
	for _, key := range []string{cacheKeyBootstrap, cacheKeyFixtures, cacheKeyCurrentGameweek} {
		if err := c.cache.Clear(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) cachedGet(ctx context.Context, key, path string, ttl time.Duration) ([]byte, error) {
	return c.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		return c.doGet(ctx, path)
	}, ttl)
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			return nil, fmt.Errorf("%w: %s", err, path)
		}
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.DebugContext(ctx, "fpl api request", "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, crerr.Mark(fmt.Errorf("request %s: %w", path, err), errFPLTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure()
		return nil, crerr.Mark(fmt.Errorf("read response %s: %w", path, err), errFPLTransient)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure()
		return nil, crerr.Mark(fmt.Errorf("fpl api %s returned status %d", path, resp.StatusCode), errFPLTransient)
	}
	if resp.StatusCode != http.StatusOK {
		c.recordSuccess()
		return nil, fmt.Errorf("fpl api %s returned status %d", path, resp.StatusCode)
	}

	c.recordSuccess()
	return body, nil
}

func (c *Client) recordFailure() {
	if c.circuitEnabled {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.circuitEnabled {
		c.breaker.RecordSuccess()
	}
}
