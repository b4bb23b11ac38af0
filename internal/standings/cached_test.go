package standings

import (
	"context"
	"testing"
	"time"

	"pickem/engine/internal/cache"
	"pickem/engine/internal/models"
	"pickem/engine/internal/results"

	"github.com/alicebob/miniredis/v2"
	"github.com/itbasis/go-clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedFixture(t *testing.T) (*fixture, *Cached, *miniredis.Miniredis) {
	t.Helper()
	f := newFixture(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	return f, NewCached(f.agg, cache.New(rdb), time.Hour), mr
}

func TestCached_ServesFromCacheUntilInvalidated(t *testing.T) {
	f, cached, mr := newCachedFixture(t)
	ctx := context.Background()

	game := f.game(models.WeekScope(1), models.LineInput{Favorite: "Alabama", Underdog: "Auburn", Line: -7.5})
	f.pick(1, game, "Alabama")

	first, err := cached.WeeklyStandings(ctx, season, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Zero(t, first[0].Wins)
	assert.True(t, mr.Exists("standings:2024:week:1"))

	// A result entered without invalidation is not visible yet
	f.result(game, 31, 7)
	stale, err := cached.WeeklyStandings(ctx, season, 1)
	require.NoError(t, err)
	assert.Equal(t, first, stale)

	require.NoError(t, cached.InvalidateSeason(ctx, season))
	fresh, err := cached.WeeklyStandings(ctx, season, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, fresh[0].Wins)
}

func TestCached_ResultEntryInvalidates(t *testing.T) {
	f, cached, _ := newCachedFixture(t)
	ctx := context.Background()

	mock := clock.NewMock()
	mock.Set(kickoff.Add(4 * time.Hour))
	resultsSvc := results.NewService(f.store.Games, mock, cached)

	game := f.game(models.BowlScope(), models.LineInput{Favorite: "Ohio State", Underdog: "Oregon", Line: -2.5, GameNumber: 1})
	f.bowlPick(1, game, "Oregon", 3, "Oregon")

	before, err := cached.BowlStandings(ctx, season)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Zero(t, before[0].SpreadPoints)

	_, err = resultsSvc.EnterResult(ctx, game.ID, 20, 21, "admin")
	require.NoError(t, err)

	after, err := cached.BowlStandings(ctx, season)
	require.NoError(t, err)
	assert.Equal(t, 3, after[0].SpreadPoints)
	assert.Equal(t, 1, after[0].OutrightWins)
}

func TestCached_FallsBackWhenCacheDown(t *testing.T) {
	f, cached, mr := newCachedFixture(t)
	f.weekOne()
	mr.Close()

	entries, err := cached.SeasonStandings(context.Background(), season)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	history, err := cached.UserHistory(context.Background(), 1, season)
	require.NoError(t, err)
	assert.Len(t, history.Weekly, 3)

	assert.Error(t, cached.InvalidateSeason(context.Background(), season))
}

func TestCached_Warm(t *testing.T) {
	f, cached, mr := newCachedFixture(t)
	ctx := context.Background()

	game := f.game(models.WeekScope(2), models.LineInput{Favorite: "Alabama", Underdog: "Auburn", Line: -7.5})
	f.pick(1, game, "Auburn")
	f.result(game, 24, 17)

	require.NoError(t, cached.Warm(ctx, season, models.WeekScope(2)))
	assert.True(t, mr.Exists("standings:2024:week:2"))
	assert.True(t, mr.Exists("standings:2024:season"))
	assert.False(t, mr.Exists("standings:2024:bowl"))

	require.NoError(t, cached.Warm(ctx, season, models.BowlScope()))
	assert.True(t, mr.Exists("standings:2024:bowl"))

	// Reads after warming come from the cache
	f.store.Games.Fail = true
	weekly, err := cached.WeeklyStandings(ctx, season, 2)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, 1.0, weekly[0].Wins)
}
