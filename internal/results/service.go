package results

import (
	"context"
	"database/sql"
	"fmt"

	"pickem/engine/internal/metrics"
	"pickem/engine/internal/models"

	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog/log"
)

// GameStore reads games and stores their results
type GameStore interface {
	GetByID(ctx context.Context, id int64) (*models.Game, error)
	SaveResult(ctx context.Context, game *models.Game) error
}

// Invalidator drops derived data for a season once its results change
type Invalidator interface {
	InvalidateSeason(ctx context.Context, season int) error
}

// Service records final scores and settles games against the spread
type Service struct {
	games       GameStore
	clock       clock.Clock
	invalidator Invalidator
}

// NewService creates a result service. invalidator may be nil.
func NewService(games GameStore, clk clock.Clock, invalidator Invalidator) *Service {
	return &Service{games: games, clock: clk, invalidator: invalidator}
}

// EnterResult records a final score, overwriting any earlier result.
// It returns nil if the game does not exist, models.ErrNegativeScore for a negative score
// and models.ErrScoreOutOfRange for a score too large to store.
func (s *Service) EnterResult(ctx context.Context, gameID int64, favoriteScore, underdogScore int, enteredBy string) (*models.Game, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", gameID, err)
	}
	if game == nil {
		metrics.RecordResultFailed(models.ReasonNotFound)
		return nil, nil
	}
	switch scoreProblem(favoriteScore, underdogScore) {
	case models.ReasonNegativeScore:
		metrics.RecordResultFailed(models.ReasonNegativeScore)
		return nil, models.ErrNegativeScore
	case models.ReasonScoreOutOfRange:
		metrics.RecordResultFailed(models.ReasonScoreOutOfRange)
		return nil, models.ErrScoreOutOfRange
	}

	if err := s.apply(ctx, game, favoriteScore, underdogScore, enteredBy); err != nil {
		return nil, err
	}

	s.invalidate(ctx, game.Season)
	return game, nil
}

// BulkEnterResults records each item independently.
// Items for missing games, games outside the season and scope, or scores that cannot be stored are reported as failed.
func (s *Service) BulkEnterResults(ctx context.Context, season int, scope models.Scope, items []models.ResultInput, enteredBy string) (*models.BulkResult, error) {
	result := &models.BulkResult{
		Entered: []int64{},
		Failed:  []models.ItemRejection{},
	}
	if len(items) == 0 {
		return result, nil
	}

	for _, item := range items {
		game, err := s.games.GetByID(ctx, item.GameID)
		if err != nil {
			return nil, fmt.Errorf("failed to load game %d: %w", item.GameID, err)
		}

		var reason string
		switch {
		case game == nil:
			reason = models.ReasonNotFound
		case !game.InScope(season, scope):
			reason = models.ReasonWrongScope
		default:
			reason = scoreProblem(item.FavoriteScore, item.UnderdogScore)
		}
		if reason != "" {
			result.Failed = append(result.Failed, models.ItemRejection{Ref: item.GameID, Reason: reason})
			metrics.RecordResultFailed(reason)
			log.Debug().Int64("game_id", item.GameID).Str("reason", reason).Msg("Result rejected")
			continue
		}

		if err := s.apply(ctx, game, item.FavoriteScore, item.UnderdogScore, enteredBy); err != nil {
			return nil, err
		}
		result.Entered = append(result.Entered, game.ID)
	}

	if result.EnteredCount() > 0 {
		s.invalidate(ctx, season)
	}

	log.Info().
		Int("season", season).
		Str("scope", scope.String()).
		Str("entered_by", enteredBy).
		Int("entered", result.EnteredCount()).
		Int("failed", result.FailedCount()).
		Msg("Bulk results entered")

	return result, nil
}

func (s *Service) apply(ctx context.Context, game *models.Game, favoriteScore, underdogScore int, enteredBy string) error {
	winner, push := CalculateSpreadWinner(game.FavoriteName, game.UnderdogName, game.Line, favoriteScore, underdogScore)

	game.FavoriteScore = sql.NullInt32{Int32: int32(favoriteScore), Valid: true}
	game.UnderdogScore = sql.NullInt32{Int32: int32(underdogScore), Valid: true}
	game.SpreadWinnerName = nullString(winner)
	game.IsPush = push
	game.OutrightWinnerName = sql.NullString{}
	if game.Kind == models.KindBowl {
		game.OutrightWinnerName = nullString(outrightWinner(game.FavoriteName, game.UnderdogName, favoriteScore, underdogScore))
	}
	game.ResolvedAt = sql.NullTime{Time: s.clock.Now(), Valid: true}
	game.ResolvedBy = nullString(enteredBy)

	if err := s.games.SaveResult(ctx, game); err != nil {
		return fmt.Errorf("failed to save result for game %d: %w", game.ID, err)
	}

	metrics.RecordResultEntered(push)

	log.Debug().
		Int64("game_id", game.ID).
		Str("favorite", game.FavoriteName).
		Int("favorite_score", favoriteScore).
		Str("underdog", game.UnderdogName).
		Int("underdog_score", underdogScore).
		Float64("line", game.Line).
		Str("spread_winner", winner).
		Bool("push", push).
		Msg("Result entered")

	return nil
}

func (s *Service) invalidate(ctx context.Context, season int) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateSeason(ctx, season); err != nil {
		metrics.RecordError("results", "cache_invalidate")
		log.Warn().Err(err).Int("season", season).Msg("Failed to invalidate standings cache")
	}
}

// scoreProblem returns the rejection reason for a pair of scores, or "" if both can be stored
func scoreProblem(favoriteScore, underdogScore int) string {
	switch {
	case favoriteScore < 0 || underdogScore < 0:
		return models.ReasonNegativeScore
	case favoriteScore > models.MaxScore || underdogScore > models.MaxScore:
		return models.ReasonScoreOutOfRange
	}
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
