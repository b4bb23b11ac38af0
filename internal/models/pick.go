package models

import (
	"database/sql"
	"time"
)

// Pick is a user's weekly selection against the spread.
// Season and Week are denormalized from the game for fast lookup.
type Pick struct {
	ID           int64        `db:"id"`
	UserID       int64        `db:"user_id"`
	GameID       int64        `db:"game_id"`
	Season       int          `db:"season"`
	Week         int          `db:"week"`
	SelectedTeam string       `db:"selected_team"`
	SubmittedAt  time.Time    `db:"submitted_at"`
	UpdatedAt    sql.NullTime `db:"updated_at"`
}

// BowlPick is a user's confidence-pool pick for a bowl game
type BowlPick struct {
	ID                 int64        `db:"id"`
	UserID             int64        `db:"user_id"`
	GameID             int64        `db:"game_id"`
	Season             int          `db:"season"`
	SpreadPick         string       `db:"spread_pick"`
	ConfidencePoints   int          `db:"confidence_points"`
	OutrightWinnerPick string       `db:"outright_winner_pick"`
	SubmittedAt        time.Time    `db:"submitted_at"`
	UpdatedAt          sql.NullTime `db:"updated_at"`
}

// PickInput is one item of a submission batch.
// ConfidencePoints and OutrightPick are only read for bowl submissions.
type PickInput struct {
	GameID           int64  `json:"game_id"`
	Selection        string `json:"selection"`
	ConfidencePoints int    `json:"confidence_points,omitempty"`
	OutrightPick     string `json:"outright_pick,omitempty"`
}

// User is a pick'em participant
type User struct {
	ID          int64     `db:"id"`
	DisplayName string    `db:"display_name"`
	CreatedAt   time.Time `db:"created_at"`
}
