package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pickem/engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const gameColumns = `
	id, season, kind, scope_key, favorite_name, underdog_name, line, kickoff_time, bowl_name,
	favorite_score, underdog_score, spread_winner_name, is_push, outright_winner_name,
	resolved_at, resolved_by, created_at, updated_at`

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	var game models.Game
	var kind string
	err := row.Scan(
		&game.ID, &game.Season, &kind, &game.ScopeKey, &game.FavoriteName, &game.UnderdogName,
		&game.Line, &game.KickoffTime, &game.BowlName,
		&game.FavoriteScore, &game.UnderdogScore, &game.SpreadWinnerName, &game.IsPush, &game.OutrightWinnerName,
		&game.ResolvedAt, &game.ResolvedBy, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	game.Kind = models.GameKind(kind)
	return &game, nil
}

func collectGames(rows pgx.Rows) ([]*models.Game, error) {
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// UpsertLine inserts a game or, if it already exists for the same season, scope and teams,
// updates only its line and kickoff. Result columns are never touched.
// The stored row is scanned back into game.
func (r *GameRepository) UpsertLine(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (
			season, kind, scope_key, favorite_name, underdog_name, line, kickoff_time, bowl_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (season, kind, scope_key, favorite_name, underdog_name) DO UPDATE SET
			line = EXCLUDED.line,
			kickoff_time = EXCLUDED.kickoff_time,
			bowl_name = COALESCE(EXCLUDED.bowl_name, games.bowl_name),
			updated_at = NOW()
		RETURNING ` + gameColumns

	stored, err := scanGame(r.db.Pool.QueryRow(
		ctx, query,
		game.Season, string(game.Kind), game.ScopeKey, game.FavoriteName, game.UnderdogName,
		game.Line, game.KickoffTime, game.BowlName,
	))
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	*game = *stored

	log.Debug().
		Int64("id", game.ID).
		Int("season", game.Season).
		Int("scope_key", game.ScopeKey).
		Str("favorite", game.FavoriteName).
		Str("underdog", game.UnderdogName).
		Float64("line", game.Line).
		Msg("Game line upserted")

	return nil
}

// GetByID retrieves a game by its database ID, returning nil if it does not exist
func (r *GameRepository) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// ListByScope retrieves the games of a season and scope ordered by week or game number
func (r *GameRepository) ListByScope(ctx context.Context, season int, scope models.Scope) ([]*models.Game, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if scope.IsBowl() {
		query := `SELECT ` + gameColumns + `
			FROM games
			WHERE season = $1 AND kind = $2
			ORDER BY scope_key, kickoff_time, id`
		rows, err = r.db.Pool.Query(ctx, query, season, string(models.KindBowl))
	} else {
		query := `SELECT ` + gameColumns + `
			FROM games
			WHERE season = $1 AND kind = $2 AND scope_key = $3
			ORDER BY scope_key, kickoff_time, id`
		rows, err = r.db.Pool.Query(ctx, query, season, string(models.KindWeekly), scope.Week)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get games by scope: %w", err)
	}

	return collectGames(rows)
}

// ListBySeason retrieves every game of one kind in a season ordered by week or game number
func (r *GameRepository) ListBySeason(ctx context.Context, season int, kind models.GameKind) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE season = $1 AND kind = $2
		ORDER BY scope_key, kickoff_time, id`

	rows, err := r.db.Pool.Query(ctx, query, season, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to get games by season: %w", err)
	}

	return collectGames(rows)
}

// ListPending retrieves games of a season that kicked off before the given time and have no result
func (r *GameRepository) ListPending(ctx context.Context, season int, before time.Time) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE season = $1 AND kickoff_time <= $2 AND spread_winner_name IS NULL AND NOT is_push
		ORDER BY kind, scope_key, kickoff_time, id`

	rows, err := r.db.Pool.Query(ctx, query, season, before)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending games: %w", err)
	}

	return collectGames(rows)
}

// SaveResult overwrites the result columns of a game
func (r *GameRepository) SaveResult(ctx context.Context, game *models.Game) error {
	query := `
		UPDATE games SET
			favorite_score = $1,
			underdog_score = $2,
			spread_winner_name = $3,
			is_push = $4,
			outright_winner_name = $5,
			resolved_at = $6,
			resolved_by = $7,
			updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		game.FavoriteScore, game.UnderdogScore, game.SpreadWinnerName, game.IsPush,
		game.OutrightWinnerName, game.ResolvedAt, game.ResolvedBy, game.ID,
	).Scan(&game.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("game not found: id=%d", game.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to save game result: %w", err)
	}

	return nil
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM games`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}
