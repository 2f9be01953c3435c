package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/premierstats/fpl-mcp/internal/domain/fixture"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
)

func gw(id int) *int { return &id }

func fixtureRoster() *roster.Snapshot {
	players := []roster.Player{
		{ID: 1, FirstName: "Alexis", SecondName: "Mac Allister", WebName: "Mac Allister", TeamID: 1, Position: roster.PositionMidfielder, TotalPoints: 140},
		{ID: 2, FirstName: "Cole", SecondName: "Palmer", WebName: "Palmer", TeamID: 2, Position: roster.PositionMidfielder, TotalPoints: 160},
		{ID: 3, FirstName: "Jarrod", SecondName: "Bowen", WebName: "Bowen", TeamID: 3, Position: roster.PositionForward, TotalPoints: 130},
	}
	teams := []roster.Team{
		{ID: 1, Name: "Liverpool", ShortName: "LIV"},
		{ID: 2, Name: "Chelsea", ShortName: "CHE"},
		{ID: 3, Name: "West Ham", ShortName: "WHU"},
	}
	gameweeks := []roster.Gameweek{
		{ID: 9, Finished: true, IsPrevious: true},
		{ID: 10, IsCurrent: true, Name: "Gameweek 10"},
		{ID: 11, IsNext: true, Name: "Gameweek 11"},
	}
	return roster.NewSnapshot(players, teams, gameweeks)
}

func newFixtureService(fixtures []fixture.Fixture) *FixtureService {
	return NewFixtureService(
		&stubSnapshotProvider{snapshot: fixtureRoster()},
		&stubFixtureProvider{fixtures: fixtures},
		nil,
	)
}

func TestAnalyzePlayerFixturesEndToEnd(t *testing.T) {
	t.Parallel()

	// One home fixture of difficulty 2: base (6-2)*2 = 8, all-home +0.5.
	svc := newFixtureService([]fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 2, HomeDifficulty: 2, AwayDifficulty: 4},
	})

	analysis, err := svc.AnalyzePlayerFixtures(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 8.5, analysis.Score, 0.001)
	assert.InDelta(t, 100.0, analysis.HomePercentage, 0.001)
	assert.True(t, strings.HasPrefix(analysis.Assessment, "Excellent fixtures"), "assessment = %q", analysis.Assessment)
	require.Len(t, analysis.Fixtures, 1)
	assert.Equal(t, "Chelsea", analysis.Fixtures[0].Opponent)
	assert.True(t, analysis.Fixtures[0].Home)
}

func TestAnalyzePlayerFixturesMonotonicity(t *testing.T) {
	t.Parallel()

	base := []fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 2, HomeDifficulty: 3, AwayDifficulty: 3},
		{ID: 2, Gameweek: gw(11), HomeTeamID: 3, AwayTeamID: 1, HomeDifficulty: 3, AwayDifficulty: 5},
	}
	easier := []fixture.Fixture{
		base[0],
		{ID: 2, Gameweek: gw(11), HomeTeamID: 3, AwayTeamID: 1, HomeDifficulty: 3, AwayDifficulty: 1},
	}

	ctx := context.Background()
	hard, err := newFixtureService(base).AnalyzePlayerFixtures(ctx, 1, 2)
	require.NoError(t, err)
	easy, err := newFixtureService(easier).AnalyzePlayerFixtures(ctx, 1, 2)
	require.NoError(t, err)

	assert.Greater(t, easy.Score, hard.Score)
}

func TestAnalyzePlayerFixturesBlankPenalty(t *testing.T) {
	t.Parallel()

	withBlank := []fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 2, HomeDifficulty: 3, AwayDifficulty: 3},
	}
	withFixture := []fixture.Fixture{
		withBlank[0],
		{ID: 2, Gameweek: gw(11), HomeTeamID: 1, AwayTeamID: 3, HomeDifficulty: 3, AwayDifficulty: 3},
	}

	ctx := context.Background()
	blank, err := newFixtureService(withBlank).AnalyzePlayerFixtures(ctx, 1, 2)
	require.NoError(t, err)
	full, err := newFixtureService(withFixture).AnalyzePlayerFixtures(ctx, 1, 2)
	require.NoError(t, err)

	assert.Less(t, blank.Score, full.Score, "a blank gameweek must penalize the score")
}

func TestAnalyzePlayerFixturesDoubleGameweekBonus(t *testing.T) {
	t.Parallel()

	single := []fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 2, HomeDifficulty: 3, AwayDifficulty: 3},
	}
	double := []fixture.Fixture{
		single[0],
		{ID: 2, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 3, HomeDifficulty: 3, AwayDifficulty: 3},
	}

	ctx := context.Background()
	one, err := newFixtureService(single).AnalyzePlayerFixtures(ctx, 1, 1)
	require.NoError(t, err)
	two, err := newFixtureService(double).AnalyzePlayerFixtures(ctx, 1, 1)
	require.NoError(t, err)

	assert.Greater(t, two.Score, one.Score, "a double gameweek must raise the score")
}

func TestAnalyzeTeamFixturesSkipsHomeAdjustment(t *testing.T) {
	t.Parallel()

	// Same all-home schedule as the player case, but the aggregate path
	// reports exactly (6-2)*2 with no home bonus.
	svc := newFixtureService([]fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 2, HomeDifficulty: 2, AwayDifficulty: 4},
	})

	analysis, err := svc.AnalyzeTeamFixtures(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, analysis.Score, 0.001)
	assert.Equal(t, "Excellent fixtures", analysis.Assessment)
}

func TestAnalyzePlayerFixturesNotFound(t *testing.T) {
	t.Parallel()

	svc := newFixtureService(nil)
	_, err := svc.AnalyzePlayerFixtures(context.Background(), 999, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyzePositionFixturesRanksTeams(t *testing.T) {
	t.Parallel()

	svc := newFixtureService([]fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 3, HomeDifficulty: 2, AwayDifficulty: 4},
		{ID: 2, Gameweek: gw(10), HomeTeamID: 2, AwayTeamID: 1, HomeDifficulty: 4, AwayDifficulty: 2},
	})

	analysis, err := svc.AnalyzePositionFixtures(context.Background(), roster.PositionMidfielder, 1)
	require.NoError(t, err)
	// Midfielders play for Liverpool and Chelsea; Liverpool's schedule is
	// easier and must rank first.
	require.Len(t, analysis.TeamOutlooks, 2)
	assert.Equal(t, "Liverpool", analysis.TeamOutlooks[0].Team.Name)
	assert.Contains(t, analysis.RecommendedTeams, "Liverpool")

	_, err = svc.AnalyzePositionFixtures(context.Background(), roster.Position("STRIKER"), 1)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFindBlankGameweeks(t *testing.T) {
	t.Parallel()

	// Gameweek 10 has one fixture; West Ham sits it out.
	svc := newFixtureService([]fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 2, HomeDifficulty: 3, AwayDifficulty: 3},
	})

	blanks, err := svc.FindBlankGameweeks(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, blanks, 1)
	assert.Equal(t, 10, blanks[0].Gameweek)
	assert.Equal(t, "Gameweek 10", blanks[0].Name)
	require.Len(t, blanks[0].Teams, 1)
	assert.Equal(t, "West Ham", blanks[0].Teams[0].Name)
}

func TestFindDoubleGameweeks(t *testing.T) {
	t.Parallel()

	svc := newFixtureService([]fixture.Fixture{
		{ID: 1, Gameweek: gw(10), HomeTeamID: 1, AwayTeamID: 2, HomeDifficulty: 3, AwayDifficulty: 3},
		{ID: 2, Gameweek: gw(10), HomeTeamID: 3, AwayTeamID: 1, HomeDifficulty: 3, AwayDifficulty: 3},
		{ID: 3, Gameweek: gw(11), HomeTeamID: 2, AwayTeamID: 3, HomeDifficulty: 3, AwayDifficulty: 3},
	})

	doubles, err := svc.FindDoubleGameweeks(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, doubles, 1)
	assert.Equal(t, 10, doubles[0].Gameweek)
	require.Len(t, doubles[0].Teams, 1)
	assert.Equal(t, 1, doubles[0].Teams[0].ID)
	assert.Equal(t, 2, doubles[0].FixtureCounts[1])
}
