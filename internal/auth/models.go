package auth

// Pick is one squad slot in a gameweek team.
type Pick struct {
	Element       int  `json:"element"`
	Position      int  `json:"position"`
	Multiplier    int  `json:"multiplier"`
	IsCaptain     bool `json:"is_captain"`
	IsViceCaptain bool `json:"is_vice_captain"`
}

// TeamPicks is the payload shared by my-team and entry picks endpoints.
type TeamPicks struct {
	ActiveChip string `json:"active_chip"`
	Picks      []Pick `json:"picks"`
	EntryHistory struct {
		Event       int `json:"event"`
		Points      int `json:"points"`
		TotalPoints int `json:"total_points"`
		Rank        int `json:"rank"`
	} `json:"entry_history"`
}

// Entry is the public profile of one FPL entry.
type Entry struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	PlayerFirstName     string `json:"player_first_name"`
	PlayerLastName      string `json:"player_last_name"`
	SummaryOverallPoints int   `json:"summary_overall_points"`
	SummaryOverallRank   int   `json:"summary_overall_rank"`
	SummaryEventPoints   int   `json:"summary_event_points"`
	CurrentEvent         int   `json:"current_event"`
}

type LeagueEntry struct {
	Entry      int    `json:"entry"`
	EntryName  string `json:"entry_name"`
	PlayerName string `json:"player_name"`
	Rank       int    `json:"rank"`
	Total      int    `json:"total"`
}

type LeagueStandings struct {
	League struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"league"`
	Standings struct {
		HasNext bool          `json:"has_next"`
		Results []LeagueEntry `json:"results"`
	} `json:"standings"`
}
