package client

import (
	"strings"

	"pickem/engine/internal/models"
)

// ProviderPayload is one game result in a provider's own wire shape.
// Each provider shape converts to the provider-neutral result before leaving this package.
type ProviderPayload interface {
	ToExternalResult() models.ExternalGameResult
	provider() string
}

// SportsDataIOScore is a game row from the SportsDataIO CFB scores API
type SportsDataIOScore struct {
	GameID        int    `json:"GameID"`
	Season        int    `json:"Season"`
	Week          int    `json:"Week"`
	Status        string `json:"Status"`
	HomeTeam      string `json:"HomeTeam"`
	AwayTeam      string `json:"AwayTeam"`
	HomeTeamName  string `json:"HomeTeamName"`
	AwayTeamName  string `json:"AwayTeamName"`
	HomeTeamScore *int   `json:"HomeTeamScore"`
	AwayTeamScore *int   `json:"AwayTeamScore"`
	IsClosed      bool   `json:"IsClosed"`
}

func (SportsDataIOScore) provider() string { return "sportsdataio" }

// ToExternalResult prefers full team names over abbreviations
func (s SportsDataIOScore) ToExternalResult() models.ExternalGameResult {
	return models.ExternalGameResult{
		HomeTeam:    firstNonEmpty(s.HomeTeamName, s.HomeTeam),
		AwayTeam:    firstNonEmpty(s.AwayTeamName, s.AwayTeam),
		HomeScore:   intOrZero(s.HomeTeamScore),
		AwayScore:   intOrZero(s.AwayTeamScore),
		IsCompleted: s.completed(),
	}
}

// completed requires a final status and both scores
func (s SportsDataIOScore) completed() bool {
	if s.HomeTeamScore == nil || s.AwayTeamScore == nil {
		return false
	}
	if s.IsClosed {
		return true
	}
	status := strings.ToLower(s.Status)
	return status == "final" || strings.HasPrefix(status, "f/")
}

// CFBDGame is a game row from the CollegeFootballData games API
type CFBDGame struct {
	ID         int    `json:"id"`
	Season     int    `json:"season"`
	Week       int    `json:"week"`
	SeasonType string `json:"seasonType"`
	Completed  bool   `json:"completed"`
	HomeTeam   string `json:"homeTeam"`
	AwayTeam   string `json:"awayTeam"`
	HomePoints *int   `json:"homePoints"`
	AwayPoints *int   `json:"awayPoints"`
}

func (CFBDGame) provider() string { return "cfbd" }

// ToExternalResult treats a game without both scores as incomplete
func (g CFBDGame) ToExternalResult() models.ExternalGameResult {
	return models.ExternalGameResult{
		HomeTeam:    g.HomeTeam,
		AwayTeam:    g.AwayTeam,
		HomeScore:   intOrZero(g.HomePoints),
		AwayScore:   intOrZero(g.AwayPoints),
		IsCompleted: g.Completed && g.HomePoints != nil && g.AwayPoints != nil,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
