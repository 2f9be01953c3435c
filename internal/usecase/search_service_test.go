package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/premierstats/fpl-mcp/external/fpl"
	"github.com/premierstats/fpl-mcp/internal/domain/fixture"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
)

type stubSnapshotProvider struct {
	snapshot *roster.Snapshot
	err      error
}

func (s *stubSnapshotProvider) BootstrapStatic(context.Context) (*roster.Snapshot, error) {
	return s.snapshot, s.err
}

type stubFixtureProvider struct {
	fixtures []fixture.Fixture
	err      error
}

func (s *stubFixtureProvider) Fixtures(context.Context) ([]fixture.Fixture, error) {
	return s.fixtures, s.err
}

func searchRoster() *roster.Snapshot {
	players := []roster.Player{
		{ID: 1, FirstName: "Mohamed", SecondName: "Salah", WebName: "Salah", TeamID: 1, Position: roster.PositionMidfielder, TotalPoints: 250},
		{ID: 2, FirstName: "Kevin", SecondName: "De Bruyne", WebName: "De Bruyne", TeamID: 2, Position: roster.PositionMidfielder, TotalPoints: 180},
		{ID: 3, FirstName: "Mohammed", SecondName: "Kudus", WebName: "Kudus", TeamID: 3, Position: roster.PositionMidfielder, TotalPoints: 120},
		{ID: 4, FirstName: "Darwin", SecondName: "Nunez", WebName: "Nunez", TeamID: 1, Position: roster.PositionForward, TotalPoints: 95},
		{ID: 5, FirstName: "Heung-Min", SecondName: "Son", WebName: "Son", TeamID: 4, Position: roster.PositionMidfielder, TotalPoints: 210},
	}
	teams := []roster.Team{
		{ID: 1, Name: "Liverpool", ShortName: "LIV"},
		{ID: 2, Name: "Manchester City", ShortName: "MCI"},
		{ID: 3, Name: "West Ham", ShortName: "WHU"},
		{ID: 4, Name: "Spurs", ShortName: "TOT"},
	}
	return roster.NewSnapshot(players, teams, nil)
}

func TestSearchServiceExactMatches(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, nil, nil)
	ctx := context.Background()

	results, err := svc.FindPlayers(ctx, "Salah", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ID)

	results, err = svc.FindPlayers(ctx, "mo salah", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ID, "nickname plus multi-token path should resolve Salah")

	results, err = svc.FindPlayers(ctx, "Mohamed Salah", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ID)
}

func TestSearchServiceNicknames(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, nil, nil)
	ctx := context.Background()

	results, err := svc.FindPlayers(ctx, "KDB", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "De Bruyne", results[0].WebName)

	results, err = svc.FindPlayers(ctx, "son", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Son", results[0].WebName)
}

func TestSearchServiceNoMatchAndBlankQuery(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, nil, nil)
	ctx := context.Background()

	results, err := svc.FindPlayers(ctx, "zzqqxx", 5)
	require.NoError(t, err)
	assert.Empty(t, results, "no match is an empty result, not an error")

	results, err = svc.FindPlayers(ctx, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchServicePointsTiebreak(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, nil, nil)

	// "mohamed" token-matches both Salah and Kudus; Salah's points bonus
	// must rank him first.
	results, err := svc.FindPlayers(context.Background(), "moham", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].ID)
}

func TestSearchServiceLimit(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, nil, nil)

	results, err := svc.FindPlayers(context.Background(), "o", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}

func TestSearchServiceUpstreamFailure(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{err: errors.New("boom")}, nil, nil)

	_, err := svc.FindPlayers(context.Background(), "Salah", 5)
	require.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestSearchServiceFindTeam(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, nil, nil)
	ctx := context.Background()

	team, ok, err := svc.FindTeam(ctx, "liverpool")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "LIV", team.ShortName)

	_, ok, err = svc.FindTeam(ctx, "real madrid")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = svc.FindTeam(ctx, "  ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearchServiceGetPlayerByID(t *testing.T) {
	t.Parallel()

	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, nil, nil)
	ctx := context.Background()

	player, err := svc.GetPlayerByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Kevin", player.FirstName)

	_, err = svc.GetPlayerByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetPlayerByID(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

type stubSummaryProvider struct {
	summary fpl.PlayerSummary
	err     error
}

func (s *stubSummaryProvider) PlayerSummary(context.Context, int) (fpl.PlayerSummary, error) {
	return s.summary, s.err
}

func TestSearchServicePlayerDetail(t *testing.T) {
	t.Parallel()

	summaries := &stubSummaryProvider{summary: fpl.PlayerSummary{
		History:  []fpl.PlayerRound{{Round: 9, TotalPoints: 12}},
		Fixtures: []fpl.PlayerFixture{{Difficulty: 2, IsHome: true}},
	}}
	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, summaries, nil)
	ctx := context.Background()

	detail, err := svc.PlayerDetail(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Salah", detail.Player.WebName)
	require.Len(t, detail.History, 1)
	assert.Equal(t, 12, detail.History[0].TotalPoints)
	require.Len(t, detail.Fixtures, 1)

	_, err = svc.PlayerDetail(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchServicePlayerDetailSummaryFailure(t *testing.T) {
	t.Parallel()

	summaries := &stubSummaryProvider{err: errors.New("upstream down")}
	svc := NewSearchService(&stubSnapshotProvider{snapshot: searchRoster()}, summaries, nil)

	detail, err := svc.PlayerDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Player.ID)
	assert.Empty(t, detail.History)
	assert.Empty(t, detail.Fixtures)
}
