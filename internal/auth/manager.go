// Package auth holds the cookie-session manager for the authenticated FPL
// endpoints. Sessions live in memory only and expire after a fixed window.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/premierstats/fpl-mcp/internal/platform/cache"
	"github.com/premierstats/fpl-mcp/internal/platform/logging"
	"github.com/premierstats/fpl-mcp/internal/platform/ratelimit"
	"github.com/premierstats/fpl-mcp/internal/vault"
)

var (
	// ErrMissingCredentials means no credential source answered; the caller
	// should prompt for setup rather than retry.
	ErrMissingCredentials = errors.New("no credentials configured")
	// ErrLoginRejected means the upstream refused the login or returned no
	// session cookies.
	ErrLoginRejected = errors.New("login rejected")
)

const (
	sessionValidity = 2 * time.Hour

	loginApp         = "plfpl-web"
	loginRedirectURI = "https://fantasy.premierleague.com/a/login"

	myTeamTTL    = time.Minute
	entryTTL     = time.Minute
	standingsTTL = time.Hour
)

// CredentialStore is the slice of the vault the manager needs.
type CredentialStore interface {
	Store(creds vault.Credentials) error
	Load() (vault.Credentials, error)
	Clear() error
}

type ManagerConfig struct {
	Vault      CredentialStore
	Limiter    *ratelimit.Limiter
	Cache      *cache.Store
	Logger     *logging.Logger
	HTTPClient *http.Client
	LoginURL   string
	APIBaseURL string
	UserAgent  string
}

// Manager owns the in-memory session. It reads credentials from the vault but
// never writes them except through SetCredentials.
type Manager struct {
	vault     CredentialStore
	limiter   *ratelimit.Limiter
	cache     *cache.Store
	logger    *logging.Logger
	client    *http.Client
	jar       *sessionJar
	loginURL  string
	baseURL   string
	userAgent string

	mu         sync.Mutex
	loggedInAt time.Time

	now func() time.Time
}

func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	// The client is shared with in-flight requests, so it is never mutated
	// after this point; session resets go through the jar wrapper.
	jar := newSessionJar()
	client.Jar = jar

	return &Manager{
		vault:     cfg.Vault,
		limiter:   cfg.Limiter,
		cache:     cfg.Cache,
		logger:    logger,
		client:    client,
		jar:       jar,
		loginURL:  cfg.LoginURL,
		baseURL:   strings.TrimRight(cfg.APIBaseURL, "/"),
		userAgent: cfg.UserAgent,
		now:       time.Now,
	}
}

// SetCredentials stores the new record and drops the current session.
// A session established with old credentials must never outlive them.
func (m *Manager) SetCredentials(creds vault.Credentials) error {
	if err := m.vault.Store(creds); err != nil {
		return err
	}
	m.invalidateSession()
	m.logger.Info("credentials updated, session invalidated")
	return nil
}

// ClearCredentials removes the stored record and drops the session.
func (m *Manager) ClearCredentials() error {
	if err := m.vault.Clear(); err != nil {
		return err
	}
	m.invalidateSession()
	return nil
}

func (m *Manager) invalidateSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggedInAt = time.Time{}
	m.jar.Reset()
}

func (m *Manager) sessionValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.loggedInAt.IsZero() && m.now().Sub(m.loggedInAt) < sessionValidity
}

// EnsureSession authenticates if no valid session exists. Safe to call on
// every request; a live session makes it a cheap timestamp check.
func (m *Manager) EnsureSession(ctx context.Context) error {
	if m.sessionValid() {
		return nil
	}
	return m.Authenticate(ctx)
}

// Authenticate performs the login POST with the stored credentials. Success
// requires session cookies, not just a 2xx status: the upstream answers some
// failed logins with a 200 and an error page.
func (m *Manager) Authenticate(ctx context.Context) error {
	creds, err := m.vault.Load()
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return fmt.Errorf("%w: run credential setup first", ErrMissingCredentials)
		}
		return fmt.Errorf("load credentials: %w", err)
	}

	if err := m.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	form := url.Values{
		"login":        {creds.Email},
		"password":     {creds.Password},
		"app":          {loginApp},
		"redirect_uri": {loginRedirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if m.userAgent != "" {
		// The login endpoint blocks clients that do not look like a browser.
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.invalidateSession()
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		m.invalidateSession()
		return fmt.Errorf("%w: login endpoint returned status %d", ErrLoginRejected, resp.StatusCode)
	}

	if !m.hasSessionCookies() {
		m.invalidateSession()
		return fmt.Errorf("%w: no session cookies returned, check email and password", ErrLoginRejected)
	}

	m.mu.Lock()
	m.loggedInAt = m.now()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "fpl session established")
	return nil
}

func (m *Manager) hasSessionCookies() bool {
	for _, raw := range []string{m.loginURL, m.baseURL} {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if len(m.jar.Cookies(u)) > 0 {
			return true
		}
	}
	return false
}

// MakeAuthenticatedRequest performs a rate-limited GET with the session
// cookies and returns the body. Any non-200 status is an error.
func (m *Manager) MakeAuthenticatedRequest(ctx context.Context, requestURL string) ([]byte, error) {
	if err := m.EnsureSession(ctx); err != nil {
		return nil, err
	}

	if err := m.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", requestURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", requestURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authenticated request %s returned status %d", requestURL, resp.StatusCode)
	}
	return body, nil
}

// GetMyTeam returns the authenticated user's current squad. Picks change
// constantly during a gameweek, so the cache window is short.
func (m *Manager) GetMyTeam(ctx context.Context) (TeamPicks, error) {
	creds, err := m.vault.Load()
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return TeamPicks{}, fmt.Errorf("%w: team id unknown", ErrMissingCredentials)
		}
		return TeamPicks{}, fmt.Errorf("load credentials: %w", err)
	}

	key := "my_team_" + creds.TeamID
	raw, err := m.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		return m.MakeAuthenticatedRequest(ctx, fmt.Sprintf("%s/my-team/%s/", m.baseURL, creds.TeamID))
	}, myTeamTTL)
	if err != nil {
		return TeamPicks{}, err
	}

	var picks TeamPicks
	if err := sonic.Unmarshal(raw, &picks); err != nil {
		return TeamPicks{}, fmt.Errorf("decode my-team: %w", err)
	}
	return picks, nil
}

// GetTeamForGameweek returns an entry's picks for one gameweek. Picks for a
// finished gameweek can never change, so those cache indefinitely.
func (m *Manager) GetTeamForGameweek(ctx context.Context, entryID, gameweek int, finished bool) (TeamPicks, error) {
	if entryID <= 0 || gameweek < 1 || gameweek > 38 {
		return TeamPicks{}, fmt.Errorf("invalid entry %d or gameweek %d", entryID, gameweek)
	}

	ttl := myTeamTTL
	if finished {
		ttl = cache.TTLIndefinite
	}

	key := fmt.Sprintf("entry_%d_gw_%d_picks", entryID, gameweek)
	raw, err := m.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		return m.MakeAuthenticatedRequest(ctx, fmt.Sprintf("%s/entry/%d/event/%d/picks/", m.baseURL, entryID, gameweek))
	}, ttl)
	if err != nil {
		return TeamPicks{}, err
	}

	var picks TeamPicks
	if err := sonic.Unmarshal(raw, &picks); err != nil {
		return TeamPicks{}, fmt.Errorf("decode picks entry=%d gw=%d: %w", entryID, gameweek, err)
	}
	return picks, nil
}

// GetEntryData returns the public profile of one entry.
func (m *Manager) GetEntryData(ctx context.Context, entryID int) (Entry, error) {
	if entryID <= 0 {
		return Entry{}, fmt.Errorf("invalid entry %d", entryID)
	}

	key := fmt.Sprintf("entry_%d", entryID)
	raw, err := m.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		return m.MakeAuthenticatedRequest(ctx, fmt.Sprintf("%s/entry/%d/", m.baseURL, entryID))
	}, entryTTL)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	if err := sonic.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode entry %d: %w", entryID, err)
	}
	return entry, nil
}

// GetLeagueStandings returns one classic league's standings page.
func (m *Manager) GetLeagueStandings(ctx context.Context, leagueID int) (LeagueStandings, error) {
	if leagueID <= 0 {
		return LeagueStandings{}, fmt.Errorf("invalid league %d", leagueID)
	}

	key := fmt.Sprintf("league_%d_standings", leagueID)
	raw, err := m.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		return m.MakeAuthenticatedRequest(ctx, fmt.Sprintf("%s/leagues-classic/%d/standings/", m.baseURL, leagueID))
	}, standingsTTL)
	if err != nil {
		return LeagueStandings{}, err
	}

	var standings LeagueStandings
	if err := sonic.Unmarshal(raw, &standings); err != nil {
		return LeagueStandings{}, fmt.Errorf("decode league %d standings: %w", leagueID, err)
	}
	return standings, nil
}
