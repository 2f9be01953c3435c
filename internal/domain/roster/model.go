package roster

import (
	"strings"
	"time"
)

// Position is the FPL element type short code.
type Position string

const (
	PositionGoalkeeper Position = "GKP"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusDoubtful    Status = "doubtful"
	StatusUnavailable Status = "unavailable"
)

// NormalizeStatus maps the upstream one-letter status codes. "a" is available,
// "d" is doubtful, everything else (injured, suspended, unavailable, not in
// squad) collapses to unavailable.
func NormalizeStatus(code string) Status {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "a":
		return StatusAvailable
	case "d":
		return StatusDoubtful
	default:
		return StatusUnavailable
	}
}

// Player is one roster entry from a bootstrap-static snapshot. Snapshots are
// replaced wholesale on refresh; fields are never mutated in place.
type Player struct {
	ID         int
	FirstName  string
	SecondName string
	WebName    string
	TeamID     int
	TeamName   string
	TeamShort  string
	Position   Position
	// Price is in tenths of a million, as upstream reports it.
	Price             int
	Status            Status
	News              string
	TotalPoints       int
	PointsPerGame     string
	Form              string
	SelectedByPercent string
	Minutes           int
	Goals             int
	Assists           int
	CleanSheets       int
	Bonus             int
	ICTIndex          string
}

func (p Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.SecondName)
}

func (p Player) PriceMillions() float64 {
	return float64(p.Price) / 10.0
}

type Team struct {
	ID        int
	Name      string
	ShortName string
	Code      int

	Strength            int
	StrengthOverallHome int
	StrengthOverallAway int
	StrengthAttackHome  int
	StrengthAttackAway  int
	StrengthDefenceHome int
	StrengthDefenceAway int

	LeaguePosition int
}

type Gameweek struct {
	ID         int
	Name       string
	IsCurrent  bool
	IsNext     bool
	IsPrevious bool
	Finished   bool
	DeadlineAt time.Time
}

// Snapshot is one immutable view of the static FPL data. Lookups are indexed
// at construction time.
type Snapshot struct {
	Players   []Player
	Teams     []Team
	Gameweeks []Gameweek

	playerByID map[int]Player
	teamByID   map[int]Team
}

func NewSnapshot(players []Player, teams []Team, gameweeks []Gameweek) *Snapshot {
	s := &Snapshot{
		Players:    players,
		Teams:      teams,
		Gameweeks:  gameweeks,
		playerByID: make(map[int]Player, len(players)),
		teamByID:   make(map[int]Team, len(teams)),
	}
	for _, p := range players {
		s.playerByID[p.ID] = p
	}
	for _, t := range teams {
		s.teamByID[t.ID] = t
	}
	return s
}

func (s *Snapshot) PlayerByID(id int) (Player, bool) {
	p, ok := s.playerByID[id]
	return p, ok
}

func (s *Snapshot) TeamByID(id int) (Team, bool) {
	t, ok := s.teamByID[id]
	return t, ok
}

// TeamByName matches a team by case-insensitive substring of the full or
// short name. A miss is an expected outcome, not an error.
func (s *Snapshot) TeamByName(query string) (Team, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return Team{}, false
	}
	for _, t := range s.Teams {
		if strings.Contains(strings.ToLower(t.Name), query) ||
			strings.Contains(strings.ToLower(t.ShortName), query) {
			return t, true
		}
	}
	return Team{}, false
}

// PlayersByPosition returns every player in the given position.
func (s *Snapshot) PlayersByPosition(pos Position) []Player {
	out := make([]Player, 0, len(s.Players)/4)
	for _, p := range s.Players {
		if p.Position == pos {
			out = append(out, p)
		}
	}
	return out
}

// CurrentGameweekID resolves the running gameweek. Between seasons or before
// the first deadline no gameweek carries the current flag, so the next-flagged
// gameweek minus one stands in.
func (s *Snapshot) CurrentGameweekID() (int, bool) {
	for _, gw := range s.Gameweeks {
		if gw.IsCurrent {
			return gw.ID, true
		}
	}
	for _, gw := range s.Gameweeks {
		if gw.IsNext {
			return gw.ID - 1, true
		}
	}
	return 0, false
}

// UpcomingGameweekID is the first gameweek flagged current or next, the
// anchor for blank/double gameweek scans.
func (s *Snapshot) UpcomingGameweekID() (int, bool) {
	for _, gw := range s.Gameweeks {
		if gw.IsCurrent || gw.IsNext {
			return gw.ID, true
		}
	}
	return 0, false
}

// GameweekByID returns the gameweek record, if scheduled.
func (s *Snapshot) GameweekByID(id int) (Gameweek, bool) {
	for _, gw := range s.Gameweeks {
		if gw.ID == id {
			return gw, true
		}
	}
	return Gameweek{}, false
}
