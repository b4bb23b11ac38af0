package models

import (
	"database/sql"
	"fmt"
	"time"
)

// GameKind distinguishes regular-season weekly games from bowl games
type GameKind string

const (
	KindWeekly GameKind = "weekly"
	KindBowl   GameKind = "bowl"
)

// Scope selects a slate of games within a season.
// For weekly games Week is the week number; bowl scope covers every bowl game of the season.
type Scope struct {
	Kind GameKind
	Week int
}

// WeekScope returns the scope for a regular-season week
func WeekScope(week int) Scope {
	return Scope{Kind: KindWeekly, Week: week}
}

// BowlScope returns the scope for the bowl season
func BowlScope() Scope {
	return Scope{Kind: KindBowl}
}

// IsBowl returns true for the bowl scope
func (s Scope) IsBowl() bool {
	return s.Kind == KindBowl
}

func (s Scope) String() string {
	if s.IsBowl() {
		return "bowl"
	}
	return fmt.Sprintf("week %d", s.Week)
}

// Game represents a game offered for picks, weekly or bowl.
// ScopeKey is the week number for weekly games and the game number for bowl games.
type Game struct {
	ID           int64          `db:"id"`
	Season       int            `db:"season"`
	Kind         GameKind       `db:"kind"`
	ScopeKey     int            `db:"scope_key"`
	FavoriteName string         `db:"favorite_name"`
	UnderdogName string         `db:"underdog_name"`
	Line         float64        `db:"line"`
	KickoffTime  time.Time      `db:"kickoff_time"`
	BowlName     sql.NullString `db:"bowl_name"`

	// Result
	FavoriteScore      sql.NullInt32  `db:"favorite_score"`
	UnderdogScore      sql.NullInt32  `db:"underdog_score"`
	SpreadWinnerName   sql.NullString `db:"spread_winner_name"`
	IsPush             bool           `db:"is_push"`
	OutrightWinnerName sql.NullString `db:"outright_winner_name"`
	ResolvedAt         sql.NullTime   `db:"resolved_at"`
	ResolvedBy         sql.NullString `db:"resolved_by"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// HasResult reports whether the spread outcome is settled.
// Scores alone do not make a result.
func (g *Game) HasResult() bool {
	return g.SpreadWinnerName.Valid || g.IsPush
}

// IsLockedAt returns true once now has reached kickoff
func (g *Game) IsLockedAt(now time.Time) bool {
	return !now.Before(g.KickoffTime)
}

// IsSide returns true if team is exactly the favorite or underdog name
func (g *Game) IsSide(team string) bool {
	return team == g.FavoriteName || team == g.UnderdogName
}

// InScope returns true if the game belongs to the given season and scope
func (g *Game) InScope(season int, scope Scope) bool {
	if g.Season != season || g.Kind != scope.Kind {
		return false
	}
	if scope.Kind == KindWeekly {
		return g.ScopeKey == scope.Week
	}
	return true
}

// Week returns the week number for weekly games, zero for bowl games
func (g *Game) Week() int {
	if g.Kind == KindWeekly {
		return g.ScopeKey
	}
	return 0
}

// LineInput is one posted line from an upload or external feed.
// GameNumber is only read for bowl scope.
type LineInput struct {
	Favorite    string    `json:"favorite"`
	Underdog    string    `json:"underdog"`
	Line        float64   `json:"line"`
	KickoffTime time.Time `json:"kickoff_time"`
	GameNumber  int       `json:"game_number,omitempty"`
	BowlName    string    `json:"bowl_name,omitempty"`
}

// ToGame converts a LineInput to an unresolved Game for the given season and scope
func (li *LineInput) ToGame(season int, scope Scope) *Game {
	game := &Game{
		Season:       season,
		Kind:         scope.Kind,
		ScopeKey:     scope.Week,
		FavoriteName: li.Favorite,
		UnderdogName: li.Underdog,
		Line:         li.Line,
		KickoffTime:  li.KickoffTime,
	}

	if scope.IsBowl() {
		game.ScopeKey = li.GameNumber
		if li.BowlName != "" {
			game.BowlName = sql.NullString{String: li.BowlName, Valid: true}
		}
	}

	return game
}
