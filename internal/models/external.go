package models

// ExternalGameResult is the provider-neutral shape of a third-party game result.
// Home and away do not correspond to favorite and underdog.
type ExternalGameResult struct {
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	HomeScore   int    `json:"home_score"`
	AwayScore   int    `json:"away_score"`
	IsCompleted bool   `json:"is_completed"`
}

// UnmatchedResult is an external result that could not be paired with a tracked game
type UnmatchedResult struct {
	Home   string `json:"home"`
	Away   string `json:"away"`
	Reason string `json:"reason"`
}

// MatchResult is the outcome of reconciling external results with tracked games
type MatchResult struct {
	Matched              []ResultInput     `json:"matched"`
	Unmatched            []UnmatchedResult `json:"unmatched"`
	AlreadyResolvedCount int               `json:"already_resolved_count"`
	IncompleteCount      int               `json:"incomplete_count"`
}
