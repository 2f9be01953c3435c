package fixture

import "time"

// Upstream difficulty ratings run 1 (easiest) to 5 (hardest).
const (
	DifficultyMin = 1
	DifficultyMax = 5
)

// Fixture is one scheduled match. Gameweek is nil for fixtures the league has
// not assigned to a round yet.
type Fixture struct {
	ID             int
	Gameweek       *int
	HomeTeamID     int
	AwayTeamID     int
	KickoffAt      time.Time
	HomeDifficulty int
	AwayDifficulty int
	Finished       bool
}

func (f Fixture) Involves(teamID int) bool {
	return f.HomeTeamID == teamID || f.AwayTeamID == teamID
}

func (f Fixture) IsHome(teamID int) bool {
	return f.HomeTeamID == teamID
}

// DifficultyFor returns the rating from teamID's side of the fixture.
// A team not involved gets the neutral middle rating.
func (f Fixture) DifficultyFor(teamID int) int {
	switch teamID {
	case f.HomeTeamID:
		return f.HomeDifficulty
	case f.AwayTeamID:
		return f.AwayDifficulty
	default:
		return 3
	}
}

// OpponentOf returns the other side's team id, or 0 when teamID is not
// involved.
func (f Fixture) OpponentOf(teamID int) int {
	switch teamID {
	case f.HomeTeamID:
		return f.AwayTeamID
	case f.AwayTeamID:
		return f.HomeTeamID
	default:
		return 0
	}
}

// InGameweek reports whether the fixture is scheduled for gw.
func (f Fixture) InGameweek(gw int) bool {
	return f.Gameweek != nil && *f.Gameweek == gw
}
