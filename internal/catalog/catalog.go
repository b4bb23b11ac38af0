package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pickem/engine/internal/metrics"
	"pickem/engine/internal/models"

	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog/log"
)

// GameStore persists games
type GameStore interface {
	GetByID(ctx context.Context, id int64) (*models.Game, error)
	ListByScope(ctx context.Context, season int, scope models.Scope) ([]*models.Game, error)
	UpsertLine(ctx context.Context, game *models.Game) error
}

// LockState is the lock status of a game at a point in time
type LockState int

const (
	// LockUnknown means the game does not exist
	LockUnknown LockState = iota
	LockOpen
	LockLocked
)

func (s LockState) String() string {
	switch s {
	case LockOpen:
		return "open"
	case LockLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Catalog owns the scheduled games, their lines and their lock state
type Catalog struct {
	games GameStore
	clock clock.Clock
}

// New creates a catalog
func New(games GameStore, clk clock.Clock) *Catalog {
	return &Catalog{games: games, clock: clk}
}

// Now returns the catalog's current time
func (c *Catalog) Now() time.Time {
	return c.clock.Now()
}

// Game returns a game by ID, nil if it does not exist
func (c *Catalog) Game(ctx context.Context, id int64) (*models.Game, error) {
	game, err := c.games.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", id, err)
	}
	return game, nil
}

// Locked reports whether picks on the game are closed as of now.
// Kickoff itself counts as locked.
func (c *Catalog) Locked(game *models.Game) bool {
	return game.IsLockedAt(c.clock.Now())
}

// IsLocked returns the lock state of a game, LockUnknown if it does not exist
func (c *Catalog) IsLocked(ctx context.Context, id int64) (LockState, error) {
	game, err := c.Game(ctx, id)
	if err != nil {
		return LockUnknown, err
	}
	if game == nil {
		return LockUnknown, nil
	}
	if c.Locked(game) {
		return LockLocked, nil
	}
	return LockOpen, nil
}

// GetGamesFor returns the games of a season and scope ordered by week or game number
func (c *Catalog) GetGamesFor(ctx context.Context, season int, scope models.Scope) ([]*models.Game, error) {
	games, err := c.games.ListByScope(ctx, season, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for %d %s: %w", season, scope.String(), err)
	}
	return games, nil
}

// SyncFromSource upserts one game per line item and returns the number of games created or updated.
// Existing games get the new line and kickoff; results are left alone.
// Malformed items are skipped with a warning.
func (c *Catalog) SyncFromSource(ctx context.Context, season int, scope models.Scope, items []models.LineInput) (int, error) {
	affected := 0

	for i := range items {
		item := items[i]
		item.Favorite = strings.TrimSpace(item.Favorite)
		item.Underdog = strings.TrimSpace(item.Underdog)
		item.BowlName = strings.TrimSpace(item.BowlName)

		if reason := invalidLine(item, scope); reason != "" {
			log.Warn().
				Int("season", season).
				Str("scope", scope.String()).
				Str("favorite", item.Favorite).
				Str("underdog", item.Underdog).
				Float64("line", item.Line).
				Str("reason", reason).
				Msg("Skipping line item")
			continue
		}

		game := item.ToGame(season, scope)
		if err := c.games.UpsertLine(ctx, game); err != nil {
			return affected, fmt.Errorf("failed to sync %s vs %s: %w", item.Favorite, item.Underdog, err)
		}
		affected++
	}

	metrics.RecordGamesSynced(string(scope.Kind), affected)

	log.Info().
		Int("season", season).
		Str("scope", scope.String()).
		Int("items", len(items)).
		Int("affected", affected).
		Msg("Lines synced")

	return affected, nil
}

func invalidLine(item models.LineInput, scope models.Scope) string {
	switch {
	case item.Favorite == "" || item.Underdog == "":
		return "missing team name"
	case strings.EqualFold(item.Favorite, item.Underdog):
		return "favorite and underdog are the same team"
	case item.Line > 0:
		return "line must be expressed relative to the favorite"
	case item.KickoffTime.IsZero():
		return "missing kickoff time"
	case scope.IsBowl() && item.GameNumber <= 0:
		return "missing bowl game number"
	case !scope.IsBowl() && scope.Week <= 0:
		return "week number must be positive"
	}
	return ""
}
