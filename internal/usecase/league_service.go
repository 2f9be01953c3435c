package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/premierstats/fpl-mcp/internal/auth"
	"github.com/premierstats/fpl-mcp/internal/domain/fixture"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
	"github.com/premierstats/fpl-mcp/internal/platform/logging"
)

// LeagueDataProvider is the slice of the auth manager the league analysis
// needs: standings plus per-entry gameweek picks.
type LeagueDataProvider interface {
	GetLeagueStandings(ctx context.Context, leagueID int) (auth.LeagueStandings, error)
	GetTeamForGameweek(ctx context.Context, entryID, gameweek int, finished bool) (auth.TeamPicks, error)
}

const (
	defaultLeagueResultsLimit = 25
	leagueWorkerCount         = 8
	defaultGameweekSpan       = 5
)

// KeyTeamFixtures summarizes one heavily-owned club inside a fantasy squad.
type KeyTeamFixtures struct {
	Team        roster.Team
	PlayerCount int
	Fixtures    []FixtureDetail
}

// EntryFixtureAnalysis is one fantasy team's fixture outlook.
type EntryFixtureAnalysis struct {
	EntryID     int
	Rank        int
	TeamName    string
	ManagerName string
	Score       float64
	Assessment  string
	KeyTeams    []KeyTeamFixtures
}

// LeagueFixtureReport compares fixture outlooks across a classic league.
type LeagueFixtureReport struct {
	LeagueID      int
	LeagueName    string
	StartGameweek int
	EndGameweek   int
	LimitedToTop  int
	Entries       []EntryFixtureAnalysis
	Blanks        []SpecialGameweek
	Doubles       []SpecialGameweek
}

// LeagueService runs the league-wide fixture comparison. It performs one
// picks fetch per entry, so the fan-out is capped and pooled rather than
// unbounded.
type LeagueService struct {
	snapshots    SnapshotProvider
	fixtures     *FixtureService
	league       LeagueDataProvider
	resultsLimit int
	logger       *logging.Logger
}

func NewLeagueService(snapshots SnapshotProvider, fixtures *FixtureService, league LeagueDataProvider, resultsLimit int, logger *logging.Logger) *LeagueService {
	if resultsLimit <= 0 {
		resultsLimit = defaultLeagueResultsLimit
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeagueService{
		snapshots:    snapshots,
		fixtures:     fixtures,
		league:       league,
		resultsLimit: resultsLimit,
		logger:       logger,
	}
}

// AnalyzeLeagueFixtures scores the top entries of one classic league over a
// gameweek range. Zero start/end values pick a default window from the
// current gameweek; a reversed range is reordered, out-of-season bounds are
// clamped.
func (s *LeagueService) AnalyzeLeagueFixtures(ctx context.Context, leagueID, startGW, endGW int) (LeagueFixtureReport, error) {
	if leagueID <= 0 {
		return LeagueFixtureReport{}, fmt.Errorf("%w: league id %d", ErrInvalidInput, leagueID)
	}

	snapshot, err := s.snapshots.BootstrapStatic(ctx)
	if err != nil {
		return LeagueFixtureReport{}, fmt.Errorf("%w: load roster: %v", ErrDependencyUnavailable, err)
	}
	fixtures, err := s.fixtures.fixtures.Fixtures(ctx)
	if err != nil {
		return LeagueFixtureReport{}, fmt.Errorf("%w: load fixtures: %v", ErrDependencyUnavailable, err)
	}

	startGW, endGW, err = normalizeGameweekRange(snapshot, startGW, endGW)
	if err != nil {
		return LeagueFixtureReport{}, err
	}
	horizon := endGW - startGW + 1

	standings, err := s.league.GetLeagueStandings(ctx, leagueID)
	if err != nil {
		return LeagueFixtureReport{}, err
	}

	entries := standings.Standings.Results
	limited := 0
	if len(entries) > s.resultsLimit {
		entries = entries[:s.resultsLimit]
		limited = s.resultsLimit
	}

	startFinished := false
	if gwk, ok := snapshot.GameweekByID(startGW); ok {
		startFinished = gwk.Finished
	}

	s.logger.InfoContext(ctx, "analyzing league fixtures",
		"league_id", leagueID, "entries", len(entries), "start_gw", startGW, "end_gw", endGW)

	results := make(chan EntryFixtureAnalysis, len(entries))

	workerCount := leagueWorkerCount
	if len(entries) < workerCount {
		workerCount = len(entries)
	}
	if workerCount == 0 {
		workerCount = 1
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return LeagueFixtureReport{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, entry := range entries {
		entry := entry
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			analysis, err := s.analyzeEntry(ctx, snapshot, fixtures, entry, startGW, horizon, startFinished)
			if err != nil {
				// One unreadable entry must not sink the whole league.
				s.logger.WarnContext(ctx, "skipping league entry",
					"entry_id", entry.Entry, "error", err)
				return
			}
			results <- analysis
		}); err != nil {
			workers.Done()
			return LeagueFixtureReport{}, fmt.Errorf("submit entry to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	report := LeagueFixtureReport{
		LeagueID:      standings.League.ID,
		LeagueName:    standings.League.Name,
		StartGameweek: startGW,
		EndGameweek:   endGW,
		LimitedToTop:  limited,
	}
	for analysis := range results {
		report.Entries = append(report.Entries, analysis)
	}
	sort.SliceStable(report.Entries, func(i, j int) bool {
		if report.Entries[i].Score != report.Entries[j].Score {
			return report.Entries[i].Score > report.Entries[j].Score
		}
		return report.Entries[i].Rank < report.Entries[j].Rank
	})

	report.Blanks, err = s.fixtures.FindBlankGameweeks(ctx, horizon)
	if err != nil {
		return LeagueFixtureReport{}, err
	}
	report.Doubles, err = s.fixtures.FindDoubleGameweeks(ctx, horizon)
	if err != nil {
		return LeagueFixtureReport{}, err
	}
	return report, nil
}

func (s *LeagueService) analyzeEntry(ctx context.Context, snapshot *roster.Snapshot, fixtures []fixture.Fixture, entry auth.LeagueEntry, startGW, horizon int, startFinished bool) (EntryFixtureAnalysis, error) {
	picks, err := s.league.GetTeamForGameweek(ctx, entry.Entry, startGW, startFinished)
	if err != nil {
		return EntryFixtureAnalysis{}, err
	}

	// Count squad players per club.
	clubCounts := make(map[int]int)
	for _, pick := range picks.Picks {
		if player, ok := snapshot.PlayerByID(pick.Element); ok {
			clubCounts[player.TeamID]++
		}
	}
	if len(clubCounts) == 0 {
		return EntryFixtureAnalysis{}, fmt.Errorf("%w: entry %d has no resolvable picks", ErrNotFound, entry.Entry)
	}

	clubDetails := make(map[int][]FixtureDetail, len(clubCounts))
	for clubID := range clubCounts {
		clubDetails[clubID] = teamFixtureDetails(snapshot, fixtures, clubID, startGW, horizon)
	}

	score := entryFixtureScore(clubCounts, clubDetails, startGW, horizon)

	return EntryFixtureAnalysis{
		EntryID:     entry.Entry,
		Rank:        entry.Rank,
		TeamName:    entry.EntryName,
		ManagerName: entry.PlayerName,
		Score:       score,
		Assessment:  leagueAssessment(score),
		KeyTeams:    keyTeams(snapshot, clubCounts, clubDetails),
	}, nil
}

// entryFixtureScore averages per-gameweek difficulty weighted by how many of
// the squad's players each club contributes. Blanks count at difficulty 6,
// doubles average and discount.
func entryFixtureScore(clubCounts map[int]int, clubDetails map[int][]FixtureDetail, startGW, horizon int) float64 {
	total := 0.0
	gameweeks := 0
	for gwID := startGW; gwID < startGW+horizon && gwID <= maxGameweekID; gwID++ {
		weighted := 0.0
		players := 0
		for clubID, count := range clubCounts {
			var difficulties []int
			for _, d := range clubDetails[clubID] {
				if d.Gameweek == gwID {
					difficulties = append(difficulties, d.Difficulty)
				}
			}

			var difficulty float64
			switch len(difficulties) {
			case 0:
				difficulty = blankGameweekDifficulty
			case 1:
				difficulty = float64(difficulties[0])
			default:
				sum := 0
				for _, d := range difficulties {
					sum += d
				}
				difficulty = float64(sum) / float64(len(difficulties)) * doubleGameweekDiscount
			}
			weighted += difficulty * float64(count)
			players += count
		}
		if players == 0 {
			continue
		}
		total += weighted / float64(players)
		gameweeks++
	}

	avg := 3.0
	if gameweeks > 0 {
		avg = total / float64(gameweeks)
	}
	return clampScore((6 - avg) * 2)
}

func keyTeams(snapshot *roster.Snapshot, clubCounts map[int]int, clubDetails map[int][]FixtureDetail) []KeyTeamFixtures {
	type clubCount struct {
		id    int
		count int
	}
	ranked := make([]clubCount, 0, len(clubCounts))
	for id, count := range clubCounts {
		ranked = append(ranked, clubCount{id: id, count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	var key []KeyTeamFixtures
	for _, c := range ranked {
		team, ok := snapshot.TeamByID(c.id)
		if !ok {
			continue
		}
		key = append(key, KeyTeamFixtures{
			Team:        team,
			PlayerCount: c.count,
			Fixtures:    clubDetails[c.id],
		})
	}
	return key
}

// normalizeGameweekRange fills defaults from the current gameweek, clamps to
// the season bounds and reorders a reversed range.
func normalizeGameweekRange(snapshot *roster.Snapshot, startGW, endGW int) (int, int, error) {
	if startGW == 0 {
		current, ok := snapshot.UpcomingGameweekID()
		if !ok {
			return 0, 0, fmt.Errorf("%w: no current or next gameweek flagged", ErrDependencyUnavailable)
		}
		startGW = current
	}
	if endGW == 0 {
		endGW = startGW + defaultGameweekSpan - 1
	}
	if startGW < 0 || endGW < 0 {
		return 0, 0, fmt.Errorf("%w: gameweek bounds must be positive", ErrInvalidInput)
	}

	clamp := func(gw int) int {
		if gw < 1 {
			return 1
		}
		if gw > maxGameweekID {
			return maxGameweekID
		}
		return gw
	}
	startGW, endGW = clamp(startGW), clamp(endGW)
	if startGW > endGW {
		startGW, endGW = endGW, startGW
	}
	return startGW, endGW, nil
}

// leagueAssessment is the coarse band set used for cross-team comparison.
func leagueAssessment(score float64) string {
	switch {
	case score >= 8:
		return "Excellent upcoming fixtures"
	case score >= 6.5:
		return "Good upcoming fixtures"
	case score >= 5:
		return "Average upcoming fixtures"
	case score >= 3.5:
		return "Difficult upcoming fixtures"
	default:
		return "Very difficult upcoming fixtures"
	}
}
