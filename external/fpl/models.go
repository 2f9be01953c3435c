package fpl

import (
	"time"

	"github.com/premierstats/fpl-mcp/internal/domain/fixture"
	"github.com/premierstats/fpl-mcp/internal/domain/roster"
)

type bootstrapEnvelope struct {
	Events       []eventItem       `json:"events"`
	Teams        []teamItem        `json:"teams"`
	Elements     []elementItem     `json:"elements"`
	ElementTypes []elementTypeItem `json:"element_types"`
}

type eventItem struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	IsCurrent    bool   `json:"is_current"`
	IsNext       bool   `json:"is_next"`
	IsPrevious   bool   `json:"is_previous"`
	Finished     bool   `json:"finished"`
	DeadlineTime string `json:"deadline_time"`
}

type teamItem struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	ShortName           string `json:"short_name"`
	Code                int    `json:"code"`
	Strength            int    `json:"strength"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
	StrengthAttackHome  int    `json:"strength_attack_home"`
	StrengthAttackAway  int    `json:"strength_attack_away"`
	StrengthDefenceHome int    `json:"strength_defence_home"`
	StrengthDefenceAway int    `json:"strength_defence_away"`
	Position            int    `json:"position"`
}

type elementItem struct {
	ID                int    `json:"id"`
	FirstName         string `json:"first_name"`
	SecondName        string `json:"second_name"`
	WebName           string `json:"web_name"`
	Team              int    `json:"team"`
	ElementType       int    `json:"element_type"`
	NowCost           int    `json:"now_cost"`
	Status            string `json:"status"`
	News              string `json:"news"`
	TotalPoints       int    `json:"total_points"`
	PointsPerGame     string `json:"points_per_game"`
	Form              string `json:"form"`
	SelectedByPercent string `json:"selected_by_percent"`
	Minutes           int    `json:"minutes"`
	GoalsScored       int    `json:"goals_scored"`
	Assists           int    `json:"assists"`
	CleanSheets       int    `json:"clean_sheets"`
	Bonus             int    `json:"bonus"`
	ICTIndex          string `json:"ict_index"`
}

type elementTypeItem struct {
	ID                int    `json:"id"`
	SingularNameShort string `json:"singular_name_short"`
}

type fixtureItem struct {
	ID              int    `json:"id"`
	Event           *int   `json:"event"`
	TeamH           int    `json:"team_h"`
	TeamA           int    `json:"team_a"`
	KickoffTime     string `json:"kickoff_time"`
	TeamHDifficulty int    `json:"team_h_difficulty"`
	TeamADifficulty int    `json:"team_a_difficulty"`
	Finished        bool   `json:"finished"`
}

// PlayerSummary is the per-player detail payload from element-summary.
type PlayerSummary struct {
	History  []PlayerRound   `json:"history"`
	Fixtures []PlayerFixture `json:"fixtures"`
}

type PlayerRound struct {
	Round       int `json:"round"`
	TotalPoints int `json:"total_points"`
	Minutes     int `json:"minutes"`
	GoalsScored int `json:"goals_scored"`
	Assists     int `json:"assists"`
	Bonus       int `json:"bonus"`
}

type PlayerFixture struct {
	Event      *int `json:"event"`
	IsHome     bool `json:"is_home"`
	Difficulty int  `json:"difficulty"`
}

func mapSnapshot(env bootstrapEnvelope) *roster.Snapshot {
	positionByType := make(map[int]roster.Position, len(env.ElementTypes))
	for _, et := range env.ElementTypes {
		positionByType[et.ID] = roster.Position(et.SingularNameShort)
	}

	teams := make([]roster.Team, 0, len(env.Teams))
	teamByID := make(map[int]teamItem, len(env.Teams))
	for _, t := range env.Teams {
		teamByID[t.ID] = t
		teams = append(teams, roster.Team{
			ID:                  t.ID,
			Name:                t.Name,
			ShortName:           t.ShortName,
			Code:                t.Code,
			Strength:            t.Strength,
			StrengthOverallHome: t.StrengthOverallHome,
			StrengthOverallAway: t.StrengthOverallAway,
			StrengthAttackHome:  t.StrengthAttackHome,
			StrengthAttackAway:  t.StrengthAttackAway,
			StrengthDefenceHome: t.StrengthDefenceHome,
			StrengthDefenceAway: t.StrengthDefenceAway,
			LeaguePosition:      t.Position,
		})
	}

	players := make([]roster.Player, 0, len(env.Elements))
	for _, e := range env.Elements {
		team := teamByID[e.Team]
		players = append(players, roster.Player{
			ID:                e.ID,
			FirstName:         e.FirstName,
			SecondName:        e.SecondName,
			WebName:           e.WebName,
			TeamID:            e.Team,
			TeamName:          team.Name,
			TeamShort:         team.ShortName,
			Position:          positionByType[e.ElementType],
			Price:             e.NowCost,
			Status:            roster.NormalizeStatus(e.Status),
			News:              e.News,
			TotalPoints:       e.TotalPoints,
			PointsPerGame:     e.PointsPerGame,
			Form:              e.Form,
			SelectedByPercent: e.SelectedByPercent,
			Minutes:           e.Minutes,
			Goals:             e.GoalsScored,
			Assists:           e.Assists,
			CleanSheets:       e.CleanSheets,
			Bonus:             e.Bonus,
			ICTIndex:          e.ICTIndex,
		})
	}

	gameweeks := make([]roster.Gameweek, 0, len(env.Events))
	for _, ev := range env.Events {
		gameweeks = append(gameweeks, roster.Gameweek{
			ID:         ev.ID,
			Name:       ev.Name,
			IsCurrent:  ev.IsCurrent,
			IsNext:     ev.IsNext,
			IsPrevious: ev.IsPrevious,
			Finished:   ev.Finished,
			DeadlineAt: parseKickoff(ev.DeadlineTime),
		})
	}

	return roster.NewSnapshot(players, teams, gameweeks)
}

func mapFixtures(items []fixtureItem) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(items))
	for _, item := range items {
		out = append(out, fixture.Fixture{
			ID:             item.ID,
			Gameweek:       item.Event,
			HomeTeamID:     item.TeamH,
			AwayTeamID:     item.TeamA,
			KickoffAt:      parseKickoff(item.KickoffTime),
			HomeDifficulty: item.TeamHDifficulty,
			AwayDifficulty: item.TeamADifficulty,
			Finished:       item.Finished,
		})
	}
	return out
}

func parseKickoff(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
