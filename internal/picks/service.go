package picks

import (
	"context"
	"fmt"
	"time"

	"pickem/engine/internal/metrics"
	"pickem/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// Games resolves games and their lock state
type Games interface {
	Game(ctx context.Context, id int64) (*models.Game, error)
	Locked(game *models.Game) bool
	Now() time.Time
}

// PickStore persists weekly picks
type PickStore interface {
	Upsert(ctx context.Context, pick *models.Pick) error
}

// BowlPickStore persists bowl picks
type BowlPickStore interface {
	ListByUser(ctx context.Context, userID int64, season int) ([]*models.BowlPick, error)
	UpsertBatch(ctx context.Context, picks []*models.BowlPick) error
}

// UserStore looks up the submitting user
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Invalidator drops derived data for a season once its picks change
type Invalidator interface {
	InvalidateSeason(ctx context.Context, season int) error
}

// Service accepts pick submissions
type Service struct {
	games       Games
	picks       PickStore
	bowlPicks   BowlPickStore
	users       UserStore
	invalidator Invalidator
}

// NewService creates a pick submission service. invalidator may be nil.
func NewService(games Games, picks PickStore, bowlPicks BowlPickStore, users UserStore, invalidator Invalidator) *Service {
	return &Service{games: games, picks: picks, bowlPicks: bowlPicks, users: users, invalidator: invalidator}
}

// Submit validates each item independently and saves the accepted ones.
// Rule violations are reported per item; an error means the batch could not be evaluated or saved.
func (s *Service) Submit(ctx context.Context, userID int64, season int, scope models.Scope, items []models.PickInput) (*models.SubmissionResult, error) {
	result := &models.SubmissionResult{
		Accepted: []int64{},
		Rejected: []models.ItemRejection{},
	}
	if len(items) == 0 {
		return result, nil
	}

	kind := string(scope.Kind)
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		for _, item := range items {
			reject(result, kind, userID, item.GameID, models.ReasonUserNotFound)
		}
		return result, nil
	}

	items = dropRepeatedGames(items, kind, userID, result)

	if scope.IsBowl() {
		err = s.submitBowl(ctx, userID, season, items, result)
	} else {
		err = s.submitWeekly(ctx, userID, season, scope, items, result)
	}
	if err != nil {
		return nil, err
	}

	if result.AcceptedCount() > 0 && s.invalidator != nil {
		if err := s.invalidator.InvalidateSeason(ctx, season); err != nil {
			metrics.RecordError("picks", "cache_invalidate")
			log.Warn().Err(err).Int("season", season).Msg("Failed to invalidate standings cache")
		}
	}

	log.Info().
		Int64("user_id", userID).
		Int("season", season).
		Str("scope", scope.String()).
		Int("accepted", result.AcceptedCount()).
		Int("rejected", result.RejectedCount()).
		Msg("Picks submitted")

	return result, nil
}

func (s *Service) submitWeekly(ctx context.Context, userID int64, season int, scope models.Scope, items []models.PickInput, result *models.SubmissionResult) error {
	now := s.games.Now()

	for _, item := range items {
		game, reason, err := s.check(ctx, season, scope, item.GameID)
		if err != nil {
			return err
		}
		if reason == "" && !game.IsSide(item.Selection) {
			reason = models.ReasonInvalidSelection
		}
		if reason != "" {
			reject(result, string(models.KindWeekly), userID, item.GameID, reason)
			continue
		}

		pick := &models.Pick{
			UserID:       userID,
			GameID:       game.ID,
			Season:       game.Season,
			Week:         game.Week(),
			SelectedTeam: item.Selection,
			SubmittedAt:  now,
		}
		if err := s.picks.Upsert(ctx, pick); err != nil {
			return fmt.Errorf("failed to save pick for game %d: %w", game.ID, err)
		}

		result.Accepted = append(result.Accepted, game.ID)
		metrics.RecordPickAccepted(string(models.KindWeekly))
	}

	return nil
}

func (s *Service) submitBowl(ctx context.Context, userID int64, season int, items []models.PickInput, result *models.SubmissionResult) error {
	existing, err := s.bowlPicks.ListByUser(ctx, userID, season)
	if err != nil {
		return fmt.Errorf("failed to load existing bowl picks: %w", err)
	}

	if !confidenceUnique(existing, items) {
		for _, item := range items {
			reject(result, string(models.KindBowl), userID, item.GameID, models.ReasonDuplicateConfidence)
		}
		log.Debug().
			Int64("user_id", userID).
			Int("season", season).
			Msg("Bowl submission rejected for duplicate confidence points")
		return nil
	}

	now := s.games.Now()
	var accepted []*models.BowlPick

	for _, item := range items {
		game, reason, err := s.check(ctx, season, models.BowlScope(), item.GameID)
		if err != nil {
			return err
		}
		if reason == "" {
			switch {
			case !game.IsSide(item.Selection):
				reason = models.ReasonInvalidSelection
			case !game.IsSide(item.OutrightPick):
				reason = models.ReasonInvalidOutrightPick
			case item.ConfidencePoints <= 0:
				reason = models.ReasonInvalidConfidence
			}
		}
		if reason != "" {
			reject(result, string(models.KindBowl), userID, item.GameID, reason)
			continue
		}

		accepted = append(accepted, &models.BowlPick{
			UserID:             userID,
			GameID:             game.ID,
			Season:             season,
			SpreadPick:         item.Selection,
			ConfidencePoints:   item.ConfidencePoints,
			OutrightWinnerPick: item.OutrightPick,
			SubmittedAt:        now,
		})
	}

	accepted = s.dropKeptCollisions(existing, accepted, userID, result)
	if len(accepted) == 0 {
		return nil
	}

	if err := s.bowlPicks.UpsertBatch(ctx, accepted); err != nil {
		return fmt.Errorf("failed to save bowl picks: %w", err)
	}

	for _, pick := range accepted {
		result.Accepted = append(result.Accepted, pick.GameID)
		metrics.RecordPickAccepted(string(models.KindBowl))
	}

	return nil
}

// check applies the shared rules: the game exists in the requested scope and is not locked
func (s *Service) check(ctx context.Context, season int, scope models.Scope, gameID int64) (*models.Game, string, error) {
	game, err := s.games.Game(ctx, gameID)
	if err != nil {
		return nil, "", err
	}
	if game == nil || !game.InScope(season, scope) {
		return nil, models.ReasonNotFound, nil
	}
	if s.games.Locked(game) {
		return game, models.ReasonLocked, nil
	}
	return game, "", nil
}

// confidenceUnique checks the incoming values together with the values of existing picks
// that the batch does not replace
func confidenceUnique(existing []*models.BowlPick, items []models.PickInput) bool {
	replaced := make(map[int64]bool, len(items))
	for _, item := range items {
		replaced[item.GameID] = true
	}

	used := make(map[int]bool, len(existing)+len(items))
	for _, pick := range existing {
		if !replaced[pick.GameID] {
			used[pick.ConfidencePoints] = true
		}
	}
	for _, item := range items {
		if used[item.ConfidencePoints] {
			return false
		}
		used[item.ConfidencePoints] = true
	}
	return true
}

// dropKeptCollisions rejects accepted picks whose confidence equals an existing pick that stays,
// because that game's replacement was rejected. Rejecting one can keep another existing pick,
// so it repeats until nothing changes.
func (s *Service) dropKeptCollisions(existing []*models.BowlPick, accepted []*models.BowlPick, userID int64, result *models.SubmissionResult) []*models.BowlPick {
	for {
		replacing := make(map[int64]bool, len(accepted))
		for _, pick := range accepted {
			replacing[pick.GameID] = true
		}

		kept := make(map[int]bool, len(existing))
		for _, pick := range existing {
			if !replacing[pick.GameID] {
				kept[pick.ConfidencePoints] = true
			}
		}

		remaining := accepted[:0:0]
		for _, pick := range accepted {
			if kept[pick.ConfidencePoints] {
				reject(result, string(models.KindBowl), userID, pick.GameID, models.ReasonDuplicateConfidence)
				continue
			}
			remaining = append(remaining, pick)
		}

		if len(remaining) == len(accepted) {
			return remaining
		}
		accepted = remaining
	}
}

// dropRepeatedGames keeps the first item for each game and rejects the rest
func dropRepeatedGames(items []models.PickInput, kind string, userID int64, result *models.SubmissionResult) []models.PickInput {
	seen := make(map[int64]bool, len(items))
	kept := make([]models.PickInput, 0, len(items))
	for _, item := range items {
		if seen[item.GameID] {
			reject(result, kind, userID, item.GameID, models.ReasonDuplicateGame)
			continue
		}
		seen[item.GameID] = true
		kept = append(kept, item)
	}
	return kept
}

func reject(result *models.SubmissionResult, kind string, userID, gameID int64, reason string) {
	result.Rejected = append(result.Rejected, models.ItemRejection{Ref: gameID, Reason: reason})
	metrics.RecordPickRejected(kind, reason)

	log.Debug().
		Int64("user_id", userID).
		Int64("game_id", gameID).
		Str("reason", reason).
		Msg("Pick rejected")
}
