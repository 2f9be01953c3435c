// Package mcpapi exposes the application services as MCP tools. The handlers
// here only validate arguments, call a service and shape the response; all
// domain logic lives in the usecase layer.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/premierstats/fpl-mcp/internal/auth"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
	"github.com/premierstats/fpl-mcp/internal/platform/logging"
	"github.com/premierstats/fpl-mcp/internal/usecase"
	"github.com/premierstats/fpl-mcp/internal/vault"
)

type PlayerFinder interface {
	FindPlayers(ctx context.Context, query string, limit int) ([]roster.Player, error)
	GetPlayerByID(ctx context.Context, playerID int) (roster.Player, error)
	PlayerDetail(ctx context.Context, playerID int) (usecase.PlayerDetail, error)
	FindTeam(ctx context.Context, query string) (roster.Team, bool, error)
}

type FixtureAnalyzer interface {
	AnalyzePlayerFixtures(ctx context.Context, playerID, horizon int) (usecase.PlayerFixtureAnalysis, error)
	AnalyzeTeamFixtures(ctx context.Context, teamID, horizon int) (usecase.TeamFixtureAnalysis, error)
	AnalyzePositionFixtures(ctx context.Context, pos roster.Position, horizon int) (usecase.PositionFixtureAnalysis, error)
	FindBlankGameweeks(ctx context.Context, horizon int) ([]usecase.SpecialGameweek, error)
	FindDoubleGameweeks(ctx context.Context, horizon int) ([]usecase.SpecialGameweek, error)
}

type LeagueAnalyzer interface {
	AnalyzeLeagueFixtures(ctx context.Context, leagueID, startGW, endGW int) (usecase.LeagueFixtureReport, error)
}

type TeamDataProvider interface {
	GetMyTeam(ctx context.Context) (auth.TeamPicks, error)
	GetTeamForGameweek(ctx context.Context, entryID, gameweek int, finished bool) (auth.TeamPicks, error)
	GetEntryData(ctx context.Context, entryID int) (auth.Entry, error)
	SetCredentials(creds vault.Credentials) error
	ClearCredentials() error
}

// API holds the wired services behind the tool handlers.
type API struct {
	search    PlayerFinder
	fixtures  FixtureAnalyzer
	league    LeagueAnalyzer
	teamData  TeamDataProvider
	snapshots usecase.SnapshotProvider
	logger    *logging.Logger
}

func NewAPI(search PlayerFinder, fixtures FixtureAnalyzer, league LeagueAnalyzer, teamData TeamDataProvider, snapshots usecase.SnapshotProvider, logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.Default()
	}
	return &API{
		search:    search,
		fixtures:  fixtures,
		league:    league,
		teamData:  teamData,
		snapshots: snapshots,
		logger:    logger,
	}
}

type FindPlayersArgs struct {
	Query string `json:"query" jsonschema:"Player name, nickname or initials"`
	Limit int    `json:"limit" jsonschema:"Maximum results (default 5)"`
}

type PlayerResult struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	WebName  string  `json:"web_name"`
	Team     string  `json:"team"`
	Position string  `json:"position"`
	Price    float64 `json:"price"`
	Points   int     `json:"points"`
	Status   string  `json:"status"`
	News     string  `json:"news,omitempty"`
}

func (a *API) findPlayers(ctx context.Context, args FindPlayersArgs) (any, error) {
	players, err := a.search.FindPlayers(ctx, args.Query, args.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]PlayerResult, 0, len(players))
	for _, p := range players {
		results = append(results, playerResult(p))
	}
	return map[string]any{"query": args.Query, "players": results}, nil
}

func playerResult(p roster.Player) PlayerResult {
	return PlayerResult{
		ID:       p.ID,
		Name:     p.FullName(),
		WebName:  p.WebName,
		Team:     p.TeamName,
		Position: string(p.Position),
		Price:    p.PriceMillions(),
		Points:   p.TotalPoints,
		Status:   string(p.Status),
		News:     p.News,
	}
}

type AnalyzeFixturesArgs struct {
	EntityType string `json:"entity_type" jsonschema:"One of player, team or position"`
	EntityName string `json:"entity_name" jsonschema:"Name of the player, team or position"`
	Horizon    int    `json:"num_gameweeks" jsonschema:"Gameweeks to look ahead (default 5)"`
}

func (a *API) analyzeFixtures(ctx context.Context, args AnalyzeFixturesArgs) (any, error) {
	entityType := strings.ToLower(strings.TrimSpace(args.EntityType))
	switch entityType {
	case "player":
		return a.analyzePlayerEntity(ctx, args.EntityName, args.Horizon)
	case "team":
		return a.analyzeTeamEntity(ctx, args.EntityName, args.Horizon)
	case "position":
		pos, ok := normalizePosition(args.EntityName)
		if !ok {
			return nil, fmt.Errorf("%w: position %q", usecase.ErrInvalidInput, args.EntityName)
		}
		return a.fixtures.AnalyzePositionFixtures(ctx, pos, args.Horizon)
	default:
		return nil, fmt.Errorf("%w: entity type %q, must be player, team or position", usecase.ErrInvalidInput, args.EntityType)
	}
}

func (a *API) analyzePlayerEntity(ctx context.Context, name string, horizon int) (any, error) {
	matches, err := a.search.FindPlayers(ctx, name, defaultMatchCandidates)
	if err != nil {
		return nil, err
	}

	var player *roster.Player
	for i := range matches {
		if matches[i].Status == roster.StatusAvailable {
			player = &matches[i]
			break
		}
	}
	if player == nil {
		if len(matches) > 0 {
			return nil, fmt.Errorf("%w: %q matched only unavailable players", usecase.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: no player matching %q", usecase.ErrNotFound, name)
	}
	return a.fixtures.AnalyzePlayerFixtures(ctx, player.ID, horizon)
}

func (a *API) analyzeTeamEntity(ctx context.Context, name string, horizon int) (any, error) {
	team, ok, err := a.search.FindTeam(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no team matching %q", usecase.ErrNotFound, name)
	}
	return a.fixtures.AnalyzeTeamFixtures(ctx, team.ID, horizon)
}

const defaultMatchCandidates = 3

type HorizonArgs struct {
	Horizon int `json:"num_gameweeks" jsonschema:"Gameweeks to look ahead (default 5)"`
}

func (a *API) blankGameweeks(ctx context.Context, args HorizonArgs) (any, error) {
	return a.fixtures.FindBlankGameweeks(ctx, args.Horizon)
}

func (a *API) doubleGameweeks(ctx context.Context, args HorizonArgs) (any, error) {
	return a.fixtures.FindDoubleGameweeks(ctx, args.Horizon)
}

type GetPlayerArgs struct {
	PlayerID int `json:"player_id" jsonschema:"FPL player id (required)"`
}

func (a *API) getPlayer(ctx context.Context, args GetPlayerArgs) (any, error) {
	detail, err := a.search.PlayerDetail(ctx, args.PlayerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"player":            playerResult(detail.Player),
		"recent_history":    detail.History,
		"upcoming_fixtures": detail.Fixtures,
	}, nil
}

func (a *API) getMyTeam(ctx context.Context, _ struct{}) (any, error) {
	picks, err := a.teamData.GetMyTeam(ctx)
	if err != nil {
		return nil, err
	}
	return a.describePicks(ctx, picks)
}

type TeamForGameweekArgs struct {
	EntryID  int `json:"entry_id" jsonschema:"FPL entry id (required)"`
	Gameweek int `json:"gameweek" jsonschema:"Gameweek number (required)"`
}

func (a *API) getTeamForGameweek(ctx context.Context, args TeamForGameweekArgs) (any, error) {
	finished := false
	if snapshot, err := a.snapshots.BootstrapStatic(ctx); err == nil {
		if gwk, ok := snapshot.GameweekByID(args.Gameweek); ok {
			finished = gwk.Finished
		}
	}

	picks, err := a.teamData.GetTeamForGameweek(ctx, args.EntryID, args.Gameweek, finished)
	if err != nil {
		return nil, err
	}
	return a.describePicks(ctx, picks)
}

// describePicks joins raw pick element ids with roster names so the agent
// never has to resolve ids itself.
func (a *API) describePicks(ctx context.Context, picks auth.TeamPicks) (any, error) {
	snapshot, err := a.snapshots.BootstrapStatic(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load roster: %v", usecase.ErrDependencyUnavailable, err)
	}

	type describedPick struct {
		PlayerResult
		SquadPosition int  `json:"squad_position"`
		Multiplier    int  `json:"multiplier"`
		IsCaptain     bool `json:"is_captain"`
		IsViceCaptain bool `json:"is_vice_captain"`
	}

	described := make([]describedPick, 0, len(picks.Picks))
	for _, pick := range picks.Picks {
		player, ok := snapshot.PlayerByID(pick.Element)
		if !ok {
			continue
		}
		described = append(described, describedPick{
			PlayerResult:  playerResult(player),
			SquadPosition: pick.Position,
			Multiplier:    pick.Multiplier,
			IsCaptain:     pick.IsCaptain,
			IsViceCaptain: pick.IsViceCaptain,
		})
	}
	return map[string]any{
		"active_chip": picks.ActiveChip,
		"picks":       described,
	}, nil
}

type EntryArgs struct {
	EntryID int `json:"entry_id" jsonschema:"FPL entry id (required)"`
}

func (a *API) getEntry(ctx context.Context, args EntryArgs) (any, error) {
	return a.teamData.GetEntryData(ctx, args.EntryID)
}

type LeagueFixturesArgs struct {
	LeagueID      int `json:"league_id" jsonschema:"Classic league id (required)"`
	StartGameweek int `json:"start_gw" jsonschema:"First gameweek (0 = current)"`
	EndGameweek   int `json:"end_gw" jsonschema:"Last gameweek (0 = start+4)"`
}

func (a *API) analyzeLeagueFixtures(ctx context.Context, args LeagueFixturesArgs) (any, error) {
	return a.league.AnalyzeLeagueFixtures(ctx, args.LeagueID, args.StartGameweek, args.EndGameweek)
}

type SetCredentialsArgs struct {
	Email    string `json:"email" jsonschema:"FPL account email (required)"`
	Password string `json:"password" jsonschema:"FPL account password (required)"`
	TeamID   string `json:"team_id" jsonschema:"FPL team id (required)"`
}

func (a *API) setCredentials(_ context.Context, args SetCredentialsArgs) (any, error) {
	err := a.teamData.SetCredentials(vault.Credentials{
		Email:    args.Email,
		Password: args.Password,
		TeamID:   args.TeamID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "credentials stored"}, nil
}

func (a *API) clearCredentials(_ context.Context, _ struct{}) (any, error) {
	if err := a.teamData.ClearCredentials(); err != nil {
		return nil, err
	}
	return map[string]any{"status": "credentials cleared"}, nil
}

// normalizePosition maps common position spellings to the short codes.
func normalizePosition(name string) (roster.Position, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "GKP", "GK", "GOALKEEPER", "KEEPER":
		return roster.PositionGoalkeeper, true
	case "DEF", "DEFENDER", "DEFENCE", "DEFENSE":
		return roster.PositionDefender, true
	case "MID", "MIDFIELDER", "MIDFIELD":
		return roster.PositionMidfielder, true
	case "FWD", "FW", "FORWARD", "STRIKER", "ATTACKER":
		return roster.PositionForward, true
	default:
		return "", false
	}
}

// errorPayload converts service errors into the structured shape tool
// callers receive. Sentinels become stable category strings.
func errorPayload(err error) map[string]string {
	category := "internal"
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		category = "invalid_input"
	case errors.Is(err, usecase.ErrNotFound):
		category = "not_found"
	case errors.Is(err, usecase.ErrNotConfigured), errors.Is(err, auth.ErrMissingCredentials):
		category = "not_configured"
	case errors.Is(err, usecase.ErrUnauthorized), errors.Is(err, auth.ErrLoginRejected):
		category = "unauthorized"
	case errors.Is(err, usecase.ErrDependencyUnavailable):
		category = "upstream_unavailable"
	}
	return map[string]string{"error": err.Error(), "category": category}
}
