package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/premierstats/fpl-mcp/internal/domain/fixture"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
	"github.com/premierstats/fpl-mcp/internal/platform/logging"
)

// FixtureProvider supplies the season fixture list.
type FixtureProvider interface {
	Fixtures(ctx context.Context) ([]fixture.Fixture, error)
}

const (
	defaultHorizon = 5
	maxGameweekID  = 38

	// A gameweek without a fixture scores worse than the hardest normal
	// fixture so blanks drag the average down instead of vanishing.
	blankGameweekDifficulty = 6.0
	// An extra fixture is a net positive despite its nominal difficulty.
	doubleGameweekDiscount = 0.7
)

// FixtureDetail is one upcoming fixture from the analyzed entity's view.
type FixtureDetail struct {
	Gameweek      int
	Opponent      string
	OpponentShort string
	Home          bool
	Difficulty    int
	KickoffAt     time.Time
}

// PlayerFixtureAnalysis is the detailed single-player report.
type PlayerFixtureAnalysis struct {
	Player         roster.Player
	Fixtures       []FixtureDetail
	Score          float64
	HomePercentage float64
	Assessment     string
}

// TeamFixtureAnalysis is the aggregate report for one team.
type TeamFixtureAnalysis struct {
	Team       roster.Team
	Fixtures   []FixtureDetail
	Score      float64
	Assessment string
}

// PositionFixtureAnalysis ranks teams by fixture outlook for one position.
type PositionFixtureAnalysis struct {
	Position         roster.Position
	TeamOutlooks     []TeamFixtureAnalysis
	RecommendedTeams []string
}

// SpecialGameweek names the teams affected by a blank or double gameweek.
type SpecialGameweek struct {
	Gameweek int
	Name     string
	Teams    []roster.Team
	// FixtureCount is per affected team; 0 for blanks, >1 for doubles.
	FixtureCounts map[int]int
}

// FixtureService scores upcoming fixture difficulty for players, teams and
// positions. Upstream difficulty is 1..5 with 5 hardest; the reported score
// is 1..10 with 10 best, so easier schedules rank higher.
type FixtureService struct {
	snapshots SnapshotProvider
	fixtures  FixtureProvider
	logger    *logging.Logger
}

func NewFixtureService(snapshots SnapshotProvider, fixtures FixtureProvider, logger *logging.Logger) *FixtureService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FixtureService{snapshots: snapshots, fixtures: fixtures, logger: logger}
}

// AnalyzePlayerFixtures scores a player's next horizon gameweeks, folding in
// blanks and doubles and a home-balance adjustment.
func (s *FixtureService) AnalyzePlayerFixtures(ctx context.Context, playerID, horizon int) (PlayerFixtureAnalysis, error) {
	snapshot, fixtures, start, err := s.loadWindow(ctx, &horizon)
	if err != nil {
		return PlayerFixtureAnalysis{}, err
	}

	player, ok := snapshot.PlayerByID(playerID)
	if !ok {
		return PlayerFixtureAnalysis{}, fmt.Errorf("%w: player %d", ErrNotFound, playerID)
	}

	details := teamFixtureDetails(snapshot, fixtures, player.TeamID, start, horizon)
	if len(details) == 0 {
		return PlayerFixtureAnalysis{
			Player:     player,
			Assessment: "No upcoming fixtures found",
		}, nil
	}

	avg := foldedAverageDifficulty(details, start, horizon)
	score := (6 - avg) * 2

	home := 0
	for _, d := range details {
		if d.Home {
			home++
		}
	}
	homePct := float64(home) / float64(len(details)) * 100
	score += (homePct - 50) / 100
	score = clampScore(score)

	return PlayerFixtureAnalysis{
		Player:         player,
		Fixtures:       details,
		Score:          score,
		HomePercentage: homePct,
		Assessment:     playerAssessment(score),
	}, nil
}

// AnalyzeTeamFixtures scores one team's schedule. The aggregate paths carry
// no home-balance adjustment; only the per-player view does.
func (s *FixtureService) AnalyzeTeamFixtures(ctx context.Context, teamID, horizon int) (TeamFixtureAnalysis, error) {
	snapshot, fixtures, start, err := s.loadWindow(ctx, &horizon)
	if err != nil {
		return TeamFixtureAnalysis{}, err
	}

	team, ok := snapshot.TeamByID(teamID)
	if !ok {
		return TeamFixtureAnalysis{}, fmt.Errorf("%w: team %d", ErrNotFound, teamID)
	}

	details := teamFixtureDetails(snapshot, fixtures, teamID, start, horizon)
	if len(details) == 0 {
		return TeamFixtureAnalysis{Team: team, Assessment: "No upcoming fixtures found"}, nil
	}

	avg := foldedAverageDifficulty(details, start, horizon)
	score := clampScore((6 - avg) * 2)

	return TeamFixtureAnalysis{
		Team:       team,
		Fixtures:   details,
		Score:      score,
		Assessment: comparisonAssessment(score),
	}, nil
}

// AnalyzePositionFixtures ranks every team fielding the position by fixture
// outlook, best schedule first.
func (s *FixtureService) AnalyzePositionFixtures(ctx context.Context, pos roster.Position, horizon int) (PositionFixtureAnalysis, error) {
	switch pos {
	case roster.PositionGoalkeeper, roster.PositionDefender, roster.PositionMidfielder, roster.PositionForward:
	default:
		return PositionFixtureAnalysis{}, fmt.Errorf("%w: position %q", ErrInvalidInput, pos)
	}

	snapshot, fixtures, start, err := s.loadWindow(ctx, &horizon)
	if err != nil {
		return PositionFixtureAnalysis{}, err
	}

	teamIDs := make(map[int]struct{})
	for _, p := range snapshot.PlayersByPosition(pos) {
		teamIDs[p.TeamID] = struct{}{}
	}

	var outlooks []TeamFixtureAnalysis
	for teamID := range teamIDs {
		team, ok := snapshot.TeamByID(teamID)
		if !ok {
			continue
		}
		details := teamFixtureDetails(snapshot, fixtures, teamID, start, horizon)
		if len(details) == 0 {
			continue
		}
		avg := foldedAverageDifficulty(details, start, horizon)
		score := clampScore((6 - avg) * 2)
		outlooks = append(outlooks, TeamFixtureAnalysis{
			Team:       team,
			Fixtures:   details,
			Score:      score,
			Assessment: comparisonAssessment(score),
		})
	}

	sort.SliceStable(outlooks, func(i, j int) bool { return outlooks[i].Score > outlooks[j].Score })
	if len(outlooks) > 10 {
		outlooks = outlooks[:10]
	}

	var recommended []string
	for i, o := range outlooks {
		if i == 3 {
			break
		}
		recommended = append(recommended, o.Team.Name)
	}

	return PositionFixtureAnalysis{
		Position:         pos,
		TeamOutlooks:     outlooks,
		RecommendedTeams: recommended,
	}, nil
}

// FindBlankGameweeks lists upcoming gameweeks in which at least one team has
// no fixture, with the affected teams.
func (s *FixtureService) FindBlankGameweeks(ctx context.Context, horizon int) ([]SpecialGameweek, error) {
	return s.findSpecialGameweeks(ctx, horizon, func(count int) bool { return count == 0 })
}

// FindDoubleGameweeks lists upcoming gameweeks in which at least one team has
// more than one fixture.
func (s *FixtureService) FindDoubleGameweeks(ctx context.Context, horizon int) ([]SpecialGameweek, error) {
	return s.findSpecialGameweeks(ctx, horizon, func(count int) bool { return count > 1 })
}

func (s *FixtureService) findSpecialGameweeks(ctx context.Context, horizon int, match func(int) bool) ([]SpecialGameweek, error) {
	snapshot, fixtures, start, err := s.loadWindow(ctx, &horizon)
	if err != nil {
		return nil, err
	}

	var result []SpecialGameweek
	for gwID := start; gwID < start+horizon && gwID <= maxGameweekID; gwID++ {
		counts := make(map[int]int, len(snapshot.Teams))
		for _, f := range fixtures {
			if !f.InGameweek(gwID) {
				continue
			}
			counts[f.HomeTeamID]++
			counts[f.AwayTeamID]++
		}

		var affected []roster.Team
		fixtureCounts := make(map[int]int)
		for _, team := range snapshot.Teams {
			if match(counts[team.ID]) {
				affected = append(affected, team)
				fixtureCounts[team.ID] = counts[team.ID]
			}
		}
		if len(affected) == 0 {
			continue
		}

		name := fmt.Sprintf("Gameweek %d", gwID)
		if gw, ok := snapshot.GameweekByID(gwID); ok && gw.Name != "" {
			name = gw.Name
		}
		result = append(result, SpecialGameweek{
			Gameweek:      gwID,
			Name:          name,
			Teams:         affected,
			FixtureCounts: fixtureCounts,
		})
	}
	return result, nil
}

// loadWindow fetches the snapshot and fixtures and resolves the first
// gameweek of the analysis window. The horizon is normalized in place.
func (s *FixtureService) loadWindow(ctx context.Context, horizon *int) (*roster.Snapshot, []fixture.Fixture, int, error) {
	if *horizon <= 0 {
		*horizon = defaultHorizon
	}

	snapshot, err := s.snapshots.BootstrapStatic(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: load roster: %v", ErrDependencyUnavailable, err)
	}
	fixtures, err := s.fixtures.Fixtures(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: load fixtures: %v", ErrDependencyUnavailable, err)
	}

	start, ok := snapshot.UpcomingGameweekID()
	if !ok {
		return nil, nil, 0, fmt.Errorf("%w: no current or next gameweek flagged", ErrDependencyUnavailable)
	}
	return snapshot, fixtures, start, nil
}

func teamFixtureDetails(snapshot *roster.Snapshot, fixtures []fixture.Fixture, teamID, start, horizon int) []FixtureDetail {
	var details []FixtureDetail
	for _, f := range fixtures {
		if f.Gameweek == nil || *f.Gameweek < start || *f.Gameweek >= start+horizon {
			continue
		}
		if !f.Involves(teamID) {
			continue
		}

		opponentID := f.OpponentOf(teamID)
		opponentName := fmt.Sprintf("Team %d", opponentID)
		opponentShort := ""
		if opponent, ok := snapshot.TeamByID(opponentID); ok {
			opponentName = opponent.Name
			opponentShort = opponent.ShortName
		}

		details = append(details, FixtureDetail{
			Gameweek:      *f.Gameweek,
			Opponent:      opponentName,
			OpponentShort: opponentShort,
			Home:          f.IsHome(teamID),
			Difficulty:    f.DifficultyFor(teamID),
			KickoffAt:     f.KickoffAt,
		})
	}
	sort.SliceStable(details, func(i, j int) bool { return details[i].Gameweek < details[j].Gameweek })
	return details
}

// foldedAverageDifficulty averages difficulty per gameweek across the window.
// A gameweek with two fixtures averages them and discounts the result; a
// gameweek with none counts as a blank at difficulty 6.
func foldedAverageDifficulty(details []FixtureDetail, start, horizon int) float64 {
	perGameweek := make(map[int][]int)
	for _, d := range details {
		perGameweek[d.Gameweek] = append(perGameweek[d.Gameweek], d.Difficulty)
	}

	total := 0.0
	count := 0
	for gwID := start; gwID < start+horizon && gwID <= maxGameweekID; gwID++ {
		difficulties := perGameweek[gwID]
		switch len(difficulties) {
		case 0:
			total += blankGameweekDifficulty
		case 1:
			total += float64(difficulties[0])
		default:
			sum := 0
			for _, d := range difficulties {
				sum += d
			}
			avg := float64(sum) / float64(len(difficulties))
			total += avg * doubleGameweekDiscount
		}
		count++
	}
	if count == 0 {
		return 3
	}
	return total / float64(count)
}

func clampScore(score float64) float64 {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// playerAssessment is the five-band label set for single-player analysis.
func playerAssessment(score float64) string {
	switch {
	case score >= 8.5:
		return "Excellent fixtures - highly favorable schedule"
	case score >= 7:
		return "Good fixtures - favorable schedule"
	case score >= 5.5:
		return "Average fixtures - balanced schedule"
	case score >= 4:
		return "Difficult fixtures - challenging schedule"
	default:
		return "Very difficult fixtures - extremely challenging schedule"
	}
}

// comparisonAssessment is the four-band label set used by team and position
// comparisons. Tuned independently of the five-band player set.
func comparisonAssessment(score float64) string {
	switch {
	case score >= 8:
		return "Excellent fixtures"
	case score >= 6:
		return "Good fixtures"
	case score >= 4:
		return "Average fixtures"
	default:
		return "Difficult fixtures"
	}
}
