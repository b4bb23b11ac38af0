package models

// WeeklyEntry is one row of a weekly leaderboard.
// Wins counts half a win for every push the user was part of.
type WeeklyEntry struct {
	UserID      int64   `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Wins        float64 `json:"wins"`
	Losses      int     `json:"losses"`
	Pushes      int     `json:"pushes"`
}

// SeasonEntry is one row of the season leaderboard
type SeasonEntry struct {
	UserID       int64   `json:"user_id"`
	DisplayName  string  `json:"display_name"`
	TotalWins    float64 `json:"total_wins"`
	TotalLosses  int     `json:"total_losses"`
	WeeksPlayed  int     `json:"weeks_played"`
	PerfectWeeks int     `json:"perfect_weeks"`
}

// WinPercentage returns wins over decided picks, zero when nothing is decided
func (e *SeasonEntry) WinPercentage() float64 {
	total := e.TotalWins + float64(e.TotalLosses)
	if total == 0 {
		return 0
	}
	return e.TotalWins / total
}

// BowlEntry is one row of the bowl confidence-pool leaderboard
type BowlEntry struct {
	UserID            int64  `json:"user_id"`
	DisplayName       string `json:"display_name"`
	SpreadPoints      int    `json:"spread_points"`
	SpreadWins        int    `json:"spread_wins"`
	SpreadLosses      int    `json:"spread_losses"`
	SpreadPushes      int    `json:"spread_pushes"`
	OutrightWins      int    `json:"outright_wins"`
	GamesCompleted    int    `json:"games_completed"`
	TotalGames        int    `json:"total_games"`
	MaxPossiblePoints int    `json:"max_possible_points"`
}

// BowlPickDetail is the per-game audit row of a user's bowl season
type BowlPickDetail struct {
	GameID             int64   `json:"game_id"`
	GameNumber         int     `json:"game_number"`
	BowlName           string  `json:"bowl_name"`
	Favorite           string  `json:"favorite"`
	Underdog           string  `json:"underdog"`
	Line               float64 `json:"line"`
	SpreadPick         string  `json:"spread_pick"`
	OutrightWinnerPick string  `json:"outright_winner_pick"`
	ConfidencePoints   int     `json:"confidence_points"`
	Resolved           bool    `json:"resolved"`
	SpreadCorrect      bool    `json:"spread_correct"`
	OutrightCorrect    bool    `json:"outright_correct"`
	IsPush             bool    `json:"is_push"`
	PointsEarned       int     `json:"points_earned"`
}

// WeeklyPickDetail is the per-game audit row of a user's weekly picks.
// Points is 1 for a cover, 0.5 for a push and 0 otherwise.
type WeeklyPickDetail struct {
	GameID       int64   `json:"game_id"`
	Week         int     `json:"week"`
	Favorite     string  `json:"favorite"`
	Underdog     string  `json:"underdog"`
	Line         float64 `json:"line"`
	SelectedTeam string  `json:"selected_team"`
	Resolved     bool    `json:"resolved"`
	Correct      bool    `json:"correct"`
	IsPush       bool    `json:"is_push"`
	Points       float64 `json:"points"`
}

// UserHistory is a user's pick-by-pick breakdown for a season
type UserHistory struct {
	UserID      int64              `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Season      int                `json:"season"`
	Weekly      []WeeklyPickDetail `json:"weekly"`
	Bowl        []BowlPickDetail   `json:"bowl"`
}
