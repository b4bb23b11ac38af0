package standings

import (
	"context"
	"fmt"
	"time"

	"pickem/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// Cache is a JSON key-value cache with prefix invalidation
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// Cached serves leaderboards from a cache and computes them on a miss.
// Cache failures fall back to computing.
type Cached struct {
	agg   *Aggregator
	cache Cache
	ttl   time.Duration
}

// NewCached wraps an aggregator with a cache
func NewCached(agg *Aggregator, cache Cache, ttl time.Duration) *Cached {
	return &Cached{agg: agg, cache: cache, ttl: ttl}
}

func seasonPrefix(season int) string {
	return fmt.Sprintf("standings:%d:", season)
}

// WeeklyStandings returns the cached weekly leaderboard
func (c *Cached) WeeklyStandings(ctx context.Context, season, week int) ([]models.WeeklyEntry, error) {
	key := fmt.Sprintf("%sweek:%d", seasonPrefix(season), week)
	return load(ctx, c, key, func() ([]models.WeeklyEntry, error) {
		return c.agg.WeeklyStandings(ctx, season, week)
	})
}

// SeasonStandings returns the cached season leaderboard
func (c *Cached) SeasonStandings(ctx context.Context, season int) ([]models.SeasonEntry, error) {
	key := seasonPrefix(season) + "season"
	return load(ctx, c, key, func() ([]models.SeasonEntry, error) {
		return c.agg.SeasonStandings(ctx, season)
	})
}

// BowlStandings returns the cached bowl leaderboard
func (c *Cached) BowlStandings(ctx context.Context, season int) ([]models.BowlEntry, error) {
	key := seasonPrefix(season) + "bowl"
	return load(ctx, c, key, func() ([]models.BowlEntry, error) {
		return c.agg.BowlStandings(ctx, season)
	})
}

// UserHistory returns the cached pick breakdown of a user
func (c *Cached) UserHistory(ctx context.Context, userID int64, season int) (*models.UserHistory, error) {
	key := fmt.Sprintf("%suser:%d", seasonPrefix(season), userID)
	return load(ctx, c, key, func() (*models.UserHistory, error) {
		return c.agg.UserHistory(ctx, userID, season)
	})
}

// InvalidateSeason drops every cached leaderboard of a season
func (c *Cached) InvalidateSeason(ctx context.Context, season int) error {
	removed, err := c.cache.InvalidatePrefix(ctx, seasonPrefix(season))
	if err != nil {
		return fmt.Errorf("failed to invalidate standings for %d: %w", season, err)
	}

	log.Debug().Int("season", season).Int("removed", removed).Msg("Standings cache invalidated")
	return nil
}

// Warm recomputes and caches the leaderboards a scope's results feed:
// the week and season tables for a week, the bowl table for the bowl season
func (c *Cached) Warm(ctx context.Context, season int, scope models.Scope) error {
	if scope.IsBowl() {
		_, err := c.BowlStandings(ctx, season)
		return err
	}
	if _, err := c.WeeklyStandings(ctx, season, scope.Week); err != nil {
		return err
	}
	_, err := c.SeasonStandings(ctx, season)
	return err
}

func load[T any](ctx context.Context, c *Cached, key string, compute func() (T, error)) (T, error) {
	var cached T
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Standings cache read failed, computing")
	}
	if hit {
		return cached, nil
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	if err := c.cache.SetJSON(ctx, key, value, c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache standings")
	}

	return value, nil
}
