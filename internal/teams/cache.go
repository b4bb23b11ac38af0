package teams

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"pickem/engine/internal/metrics"
	"pickem/engine/internal/models"

	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog/log"
)

// AliasSource loads the full alias table
type AliasSource interface {
	List(ctx context.Context) ([]*models.TeamAlias, error)
}

// snapshot is an immutable view of the alias table.
// Keys are lower-cased and trimmed.
type snapshot struct {
	aliases   map[string]string
	canonical map[string]string
	loadedAt  time.Time
}

var emptySnapshot = &snapshot{
	aliases:   map[string]string{},
	canonical: map[string]string{},
}

// AliasCache holds the alias table in memory.
// Refresh swaps in a complete new snapshot so readers never see a partial table.
type AliasCache struct {
	source  AliasSource
	clock   clock.Clock
	current atomic.Pointer[snapshot]
}

// NewAliasCache creates an empty cache; call Load before use
func NewAliasCache(source AliasSource, clk clock.Clock) *AliasCache {
	c := &AliasCache{source: source, clock: clk}
	c.current.Store(emptySnapshot)
	return c
}

// Load reads the alias table for the first time
func (c *AliasCache) Load(ctx context.Context) error {
	return c.Refresh(ctx)
}

// Refresh replaces the cached table with the current contents of the source.
// On failure the previous snapshot stays in place.
func (c *AliasCache) Refresh(ctx context.Context) error {
	rows, err := c.source.List(ctx)
	if err != nil {
		metrics.RecordAliasRefresh("error", 0)
		return fmt.Errorf("failed to load team aliases: %w", err)
	}

	next := &snapshot{
		aliases:   make(map[string]string, len(rows)),
		canonical: make(map[string]string),
		loadedAt:  c.clock.Now(),
	}
	for _, row := range rows {
		canonical := strings.TrimSpace(row.CanonicalName)
		if canonical == "" {
			continue
		}
		next.aliases[key(row.Alias)] = canonical
		next.canonical[key(canonical)] = canonical
	}

	c.current.Store(next)
	metrics.RecordAliasRefresh("success", len(next.aliases))

	log.Info().
		Int("aliases", len(next.aliases)).
		Int("canonical_names", len(next.canonical)).
		Msg("Team alias cache refreshed")

	return nil
}

// LoadedAt returns when the current snapshot was read, zero if never loaded
func (c *AliasCache) LoadedAt() time.Time {
	return c.current.Load().loadedAt
}

// Len returns the number of cached aliases
func (c *AliasCache) Len() int {
	return len(c.current.Load().aliases)
}

func (c *AliasCache) view() *snapshot {
	return c.current.Load()
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
