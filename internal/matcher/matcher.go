package matcher

import (
	"context"
	"fmt"
	"strings"

	"pickem/engine/internal/metrics"
	"pickem/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// Games lists the tracked games of a season and scope
type Games interface {
	GetGamesFor(ctx context.Context, season int, scope models.Scope) ([]*models.Game, error)
}

// Normalizer resolves raw team names to canonical names
type Normalizer interface {
	Normalize(name string) string
}

// Matcher pairs external results with tracked games.
// It never writes results; matched scores are handed to result entry.
type Matcher struct {
	games      Games
	normalizer Normalizer
}

// New creates a matcher
func New(games Games, normalizer Normalizer) *Matcher {
	return &Matcher{games: games, normalizer: normalizer}
}

type trackedGame struct {
	game     *models.Game
	favorite string
	underdog string
}

// Match reconciles external results for a season and scope.
// Each game is emitted at most once per call.
// Incomplete results are counted and skipped. Games that already have a result are counted
// as already resolved and not emitted again, so repeated runs do not reprocess settled games.
func (m *Matcher) Match(ctx context.Context, season int, scope models.Scope, external []models.ExternalGameResult) (*models.MatchResult, error) {
	result := &models.MatchResult{
		Matched:   []models.ResultInput{},
		Unmatched: []models.UnmatchedResult{},
	}

	games, err := m.games.GetGamesFor(ctx, season, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load games for matching: %w", err)
	}

	tracked := make([]trackedGame, 0, len(games))
	for _, game := range games {
		tracked = append(tracked, trackedGame{
			game:     game,
			favorite: m.normalizer.Normalize(game.FavoriteName),
			underdog: m.normalizer.Normalize(game.UnderdogName),
		})
	}

	emitted := make(map[int64]bool)
	for _, ext := range external {
		if !ext.IsCompleted {
			result.IncompleteCount++
			continue
		}

		home := m.normalizer.Normalize(ext.HomeTeam)
		away := m.normalizer.Normalize(ext.AwayTeam)

		match := find(tracked, home, away)
		if match == nil {
			result.Unmatched = append(result.Unmatched, models.UnmatchedResult{
				Home:   ext.HomeTeam,
				Away:   ext.AwayTeam,
				Reason: models.ReasonNotFound,
			})
			log.Debug().
				Str("home", ext.HomeTeam).
				Str("away", ext.AwayTeam).
				Msg("No tracked game for external result")
			continue
		}

		if match.game.HasResult() {
			result.AlreadyResolvedCount++
			continue
		}

		// The first completed row for a game wins; later rows for it are reported, not applied
		if emitted[match.game.ID] {
			result.Unmatched = append(result.Unmatched, models.UnmatchedResult{
				Home:   ext.HomeTeam,
				Away:   ext.AwayTeam,
				Reason: models.ReasonDuplicateResult,
			})
			log.Warn().
				Int64("game_id", match.game.ID).
				Str("home", ext.HomeTeam).
				Str("away", ext.AwayTeam).
				Msg("Duplicate external result for game, keeping the first")
			continue
		}
		emitted[match.game.ID] = true

		input := models.ResultInput{GameID: match.game.ID}
		if same(home, match.favorite) {
			input.FavoriteScore, input.UnderdogScore = ext.HomeScore, ext.AwayScore
		} else {
			input.FavoriteScore, input.UnderdogScore = ext.AwayScore, ext.HomeScore
		}
		result.Matched = append(result.Matched, input)
	}

	metrics.RecordMatchOutcomes(len(result.Matched), len(result.Unmatched), result.AlreadyResolvedCount, result.IncompleteCount)

	log.Info().
		Int("season", season).
		Str("scope", scope.String()).
		Int("external", len(external)).
		Int("matched", len(result.Matched)).
		Int("unmatched", len(result.Unmatched)).
		Int("already_resolved", result.AlreadyResolvedCount).
		Int("incomplete", result.IncompleteCount).
		Msg("External results matched")

	return result, nil
}

// find returns the tracked game whose teams are {home, away} in either order
func find(tracked []trackedGame, home, away string) *trackedGame {
	if home == "" || away == "" {
		return nil
	}
	for i := range tracked {
		t := &tracked[i]
		if (same(t.favorite, home) && same(t.underdog, away)) || (same(t.favorite, away) && same(t.underdog, home)) {
			return t
		}
	}
	return nil
}

func same(a, b string) bool {
	return strings.EqualFold(a, b)
}
