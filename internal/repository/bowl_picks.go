package repository

import (
	"context"
	"fmt"

	"pickem/engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const bowlPickColumns = `id, user_id, game_id, season, spread_pick, confidence_points, outright_winner_pick,
	submitted_at, updated_at`

// BowlPickRepository handles bowl confidence-pool pick database operations
type BowlPickRepository struct {
	db *Database
}

func scanBowlPick(row rowScanner) (*models.BowlPick, error) {
	var pick models.BowlPick
	err := row.Scan(
		&pick.ID, &pick.UserID, &pick.GameID, &pick.Season, &pick.SpreadPick,
		&pick.ConfidencePoints, &pick.OutrightWinnerPick, &pick.SubmittedAt, &pick.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pick, nil
}

func (r *BowlPickRepository) list(ctx context.Context, query string, args ...any) ([]*models.BowlPick, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bowl picks: %w", err)
	}
	defer rows.Close()

	var picks []*models.BowlPick
	for rows.Next() {
		pick, err := scanBowlPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bowl pick: %w", err)
		}
		picks = append(picks, pick)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bowl picks: %w", err)
	}

	return picks, nil
}

// ListByUser retrieves a user's bowl picks for a season
func (r *BowlPickRepository) ListByUser(ctx context.Context, userID int64, season int) ([]*models.BowlPick, error) {
	query := `SELECT ` + bowlPickColumns + `
		FROM bowl_picks
		WHERE user_id = $1 AND season = $2
		ORDER BY confidence_points DESC`

	return r.list(ctx, query, userID, season)
}

// ListBySeason retrieves every bowl pick of a season
func (r *BowlPickRepository) ListBySeason(ctx context.Context, season int) ([]*models.BowlPick, error) {
	query := `SELECT ` + bowlPickColumns + `
		FROM bowl_picks
		WHERE season = $1
		ORDER BY user_id, game_id`

	return r.list(ctx, query, season)
}

// UpsertBatch saves a user's accepted bowl picks in one transaction.
// Confidence uniqueness is checked at commit so values may be swapped between games within a batch.
func (r *BowlPickRepository) UpsertBatch(ctx context.Context, picks []*models.BowlPick) error {
	if len(picks) == 0 {
		return nil
	}

	query := `
		INSERT INTO bowl_picks (
			user_id, game_id, season, spread_pick, confidence_points, outright_winner_pick, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, game_id) DO UPDATE SET
			spread_pick = EXCLUDED.spread_pick,
			confidence_points = EXCLUDED.confidence_points,
			outright_winner_pick = EXCLUDED.outright_winner_pick,
			updated_at = EXCLUDED.submitted_at
		RETURNING ` + bowlPickColumns

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, pick := range picks {
			stored, err := scanBowlPick(tx.QueryRow(
				ctx, query,
				pick.UserID, pick.GameID, pick.Season, pick.SpreadPick,
				pick.ConfidencePoints, pick.OutrightWinnerPick, pick.SubmittedAt,
			))
			if err != nil {
				return fmt.Errorf("failed to upsert bowl pick for game %d: %w", pick.GameID, err)
			}
			*pick = *stored
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Int64("user_id", picks[0].UserID).
		Int("count", len(picks)).
		Msg("Bowl picks saved")

	return nil
}
