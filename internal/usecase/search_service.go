package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/premierstats/fpl-mcp/external/fpl"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
	"github.com/premierstats/fpl-mcp/internal/platform/logging"
)

// SnapshotProvider supplies the current static roster snapshot.
type SnapshotProvider interface {
	BootstrapStatic(ctx context.Context) (*roster.Snapshot, error)
}

// SummaryProvider supplies per-player round history and remaining fixtures.
type SummaryProvider interface {
	PlayerSummary(ctx context.Context, playerID int) (fpl.PlayerSummary, error)
}

const (
	defaultSearchLimit = 5

	// A top score below this means the scored pass has no confident match
	// and the plain substring fallback kicks in.
	searchConfidenceThreshold = 30.0
)

// Queries people actually type for well-known players. Resolved before
// matching so "KDB" scores like "kevin de bruyne" would.
var nicknames = map[string]string{
	"kdb":      "kevin de bruyne",
	"vvd":      "virgil van dijk",
	"taa":      "trent alexander-arnold",
	"cr7":      "cristiano ronaldo",
	"bobby":    "roberto firmino",
	"mo salah": "mohamed salah",
	"mane":     "sadio mane",
	"auba":     "aubameyang",
	"lewa":     "lewandowski",
	"kane":     "harry kane",
	"rashford": "marcus rashford",
	"son":      "heung-min son",
}

// SearchService resolves free-text player queries against the roster.
type SearchService struct {
	snapshots SnapshotProvider
	summaries SummaryProvider
	logger    *logging.Logger
}

func NewSearchService(snapshots SnapshotProvider, summaries SummaryProvider, logger *logging.Logger) *SearchService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SearchService{snapshots: snapshots, summaries: summaries, logger: logger}
}

// FindPlayers returns up to limit players ranked by match relevance. A blank
// query returns an empty result; "no match" is an empty result, not an error.
func (s *SearchService) FindPlayers(ctx context.Context, query string, limit int) ([]roster.Player, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	snapshot, err := s.snapshots.BootstrapStatic(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load roster: %v", ErrDependencyUnavailable, err)
	}

	if canonical, ok := nicknames[term]; ok {
		term = canonical
	}
	tokens := strings.Fields(term)

	type scored struct {
		player roster.Player
		score  float64
	}
	var matches []scored
	for _, p := range snapshot.Players {
		score := scorePlayer(p, term, tokens)
		if score > 0 {
			matches = append(matches, scored{player: p, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].player.TotalPoints > matches[j].player.TotalPoints
	})

	results := make([]roster.Player, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.player)
	}

	if len(matches) == 0 || matches[0].score < searchConfidenceThreshold {
		results = mergeFallback(results, snapshot.Players, term)
	}

	s.logger.DebugContext(ctx, "player search", "query", query, "matches", len(results))

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scorePlayer runs the layered matching strategies and sums their weights.
// Season points act only as a tiebreak bonus on top of a real name match.
func scorePlayer(p roster.Player, term string, tokens []string) float64 {
	fullName := strings.ToLower(p.FullName())
	webName := strings.ToLower(p.WebName)

	nameParts := strings.Fields(fullName)
	var firstName, lastName string
	if len(nameParts) > 0 {
		firstName = nameParts[0]
	}
	if len(nameParts) > 1 {
		lastName = nameParts[len(nameParts)-1]
	}

	score := 0.0
	switch {
	case term == fullName:
		score += 100
	case term == webName:
		score += 90
	case len(tokens) == 1 && term == lastName:
		score += 80
	case len(tokens) == 1 && term == firstName:
		score += 70
	}

	if len(term) <= 5 && isAlpha(term) {
		var initials strings.Builder
		for _, part := range nameParts {
			initials.WriteByte(part[0])
		}
		if term == initials.String() {
			score += 85
		}
	}

	if len(tokens) > 1 {
		if strings.Contains(firstName, tokens[0]) && strings.Contains(lastName, tokens[len(tokens)-1]) {
			score += 75
		}
		if strings.Contains(strings.Join(nameParts, ""), strings.Join(tokens, "")) {
			score += 50
		}
	}

	if strings.Contains(fullName, term) {
		score += 40
	}
	for _, tok := range tokens {
		if strings.Contains(fullName, tok) {
			score += 30
		}
	}
	for _, tok := range tokens {
		if strings.Contains(webName, tok) {
			score += 25
		}
	}

	if score > 0 {
		score += min(20, float64(p.TotalPoints)/50)
	}
	return score
}

// mergeFallback appends a plain substring pass sorted by points, skipping
// players the scored pass already returned.
func mergeFallback(scored []roster.Player, players []roster.Player, term string) []roster.Player {
	seen := make(map[int]struct{}, len(scored))
	for _, p := range scored {
		seen[p.ID] = struct{}{}
	}

	var fallback []roster.Player
	for _, p := range players {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		if strings.Contains(strings.ToLower(p.FullName()), term) ||
			strings.Contains(strings.ToLower(p.WebName), term) {
			fallback = append(fallback, p)
		}
	}
	sort.SliceStable(fallback, func(i, j int) bool {
		return fallback[i].TotalPoints > fallback[j].TotalPoints
	})

	return append(scored, fallback...)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// FindTeam resolves a team by case-insensitive name or short-code match.
// The boolean result distinguishes "no match" from an error.
func (s *SearchService) FindTeam(ctx context.Context, query string) (roster.Team, bool, error) {
	if strings.TrimSpace(query) == "" {
		return roster.Team{}, false, fmt.Errorf("%w: team query is empty", ErrInvalidInput)
	}

	snapshot, err := s.snapshots.BootstrapStatic(ctx)
	if err != nil {
		return roster.Team{}, false, fmt.Errorf("%w: load roster: %v", ErrDependencyUnavailable, err)
	}

	team, ok := snapshot.TeamByName(query)
	return team, ok, nil
}

// GetPlayerByID returns the roster entry for one player id.
func (s *SearchService) GetPlayerByID(ctx context.Context, playerID int) (roster.Player, error) {
	if playerID <= 0 {
		return roster.Player{}, fmt.Errorf("%w: player id %d", ErrInvalidInput, playerID)
	}

	snapshot, err := s.snapshots.BootstrapStatic(ctx)
	if err != nil {
		return roster.Player{}, fmt.Errorf("%w: load roster: %v", ErrDependencyUnavailable, err)
	}

	player, ok := snapshot.PlayerByID(playerID)
	if !ok {
		return roster.Player{}, fmt.Errorf("%w: player %d", ErrNotFound, playerID)
	}
	return player, nil
}

// PlayerDetail is a roster entry enriched with the player's recent rounds
// and remaining fixtures.
type PlayerDetail struct {
	Player   roster.Player
	History  []fpl.PlayerRound
	Fixtures []fpl.PlayerFixture
}

// PlayerDetail resolves one player and merges in their element summary.
// A summary fetch failure degrades to the bare roster entry with a warning,
// it does not fail the lookup.
func (s *SearchService) PlayerDetail(ctx context.Context, playerID int) (PlayerDetail, error) {
	player, err := s.GetPlayerByID(ctx, playerID)
	if err != nil {
		return PlayerDetail{}, err
	}

	detail := PlayerDetail{Player: player}
	if s.summaries == nil {
		return detail, nil
	}

	summary, err := s.summaries.PlayerSummary(ctx, playerID)
	if err != nil {
		s.logger.WarnContext(ctx, "player summary unavailable", "playerID", playerID, "error", err)
		return detail, nil
	}
	detail.History = summary.History
	detail.Fixtures = summary.Fixtures
	return detail, nil
}
