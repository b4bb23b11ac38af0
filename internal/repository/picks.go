package repository

import (
	"context"
	"errors"
	"fmt"

	"pickem/engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const pickColumns = `id, user_id, game_id, season, week, selected_team, submitted_at, updated_at`

// PickRepository handles weekly pick database operations
type PickRepository struct {
	db *Database
}

func scanPick(row rowScanner) (*models.Pick, error) {
	var pick models.Pick
	err := row.Scan(
		&pick.ID, &pick.UserID, &pick.GameID, &pick.Season, &pick.Week,
		&pick.SelectedTeam, &pick.SubmittedAt, &pick.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pick, nil
}

func (r *PickRepository) list(ctx context.Context, query string, args ...any) ([]*models.Pick, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get picks: %w", err)
	}
	defer rows.Close()

	var picks []*models.Pick
	for rows.Next() {
		pick, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		picks = append(picks, pick)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating picks: %w", err)
	}

	return picks, nil
}

// Upsert creates a pick or overwrites the selection of the user's existing pick for the game.
// A resubmission keeps the original submitted_at and stamps updated_at with pick.SubmittedAt.
// The stored row is scanned back into pick.
func (r *PickRepository) Upsert(ctx context.Context, pick *models.Pick) error {
	query := `
		INSERT INTO picks (user_id, game_id, season, week, selected_team, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, game_id) DO UPDATE SET
			selected_team = EXCLUDED.selected_team,
			updated_at = EXCLUDED.submitted_at
		RETURNING ` + pickColumns

	stored, err := scanPick(r.db.Pool.QueryRow(
		ctx, query,
		pick.UserID, pick.GameID, pick.Season, pick.Week, pick.SelectedTeam, pick.SubmittedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to upsert pick: %w", err)
	}

	*pick = *stored

	log.Debug().
		Int64("user_id", pick.UserID).
		Int64("game_id", pick.GameID).
		Str("selected", pick.SelectedTeam).
		Bool("resubmitted", pick.UpdatedAt.Valid).
		Msg("Pick saved")

	return nil
}

// GetByUserAndGame retrieves a user's pick for a game, returning nil if none exists
func (r *PickRepository) GetByUserAndGame(ctx context.Context, userID, gameID int64) (*models.Pick, error) {
	query := `SELECT ` + pickColumns + ` FROM picks WHERE user_id = $1 AND game_id = $2`

	pick, err := scanPick(r.db.Pool.QueryRow(ctx, query, userID, gameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}

	return pick, nil
}

// ListByWeek retrieves every user's picks for a season week
func (r *PickRepository) ListByWeek(ctx context.Context, season, week int) ([]*models.Pick, error) {
	query := `SELECT ` + pickColumns + `
		FROM picks
		WHERE season = $1 AND week = $2
		ORDER BY user_id, game_id`

	return r.list(ctx, query, season, week)
}

// ListBySeason retrieves every weekly pick of a season
func (r *PickRepository) ListBySeason(ctx context.Context, season int) ([]*models.Pick, error) {
	query := `SELECT ` + pickColumns + `
		FROM picks
		WHERE season = $1
		ORDER BY week, user_id, game_id`

	return r.list(ctx, query, season)
}

// ListByUser retrieves a user's weekly picks for a season
func (r *PickRepository) ListByUser(ctx context.Context, userID int64, season int) ([]*models.Pick, error) {
	query := `SELECT ` + pickColumns + `
		FROM picks
		WHERE user_id = $1 AND season = $2
		ORDER BY week, game_id`

	return r.list(ctx, query, userID, season)
}
