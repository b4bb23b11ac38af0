package matcher

import (
	"context"
	"testing"
	"time"

	"pickem/engine/internal/catalog"
	"pickem/engine/internal/models"
	"pickem/engine/internal/results"
	"pickem/engine/internal/teams"
	"pickem/engine/internal/testutil"

	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kickoff = time.Date(2024, 9, 14, 19, 0, 0, 0, time.UTC)

type fixture struct {
	matcher *Matcher
	results *results.Service
	store   *testutil.Store
	games   []*models.Game
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := testutil.NewStore()
	store.Aliases.Add("usf", "South Florida")
	store.Aliases.Add("ole miss", "Mississippi")
	store.Aliases.Add("miami (fl)", "Miami")

	mock := clock.NewMock()
	mock.Set(kickoff.Add(5 * time.Hour))

	aliases := teams.NewAliasCache(store.Aliases, mock)
	require.NoError(t, aliases.Load(ctx))

	cat := catalog.New(store.Games, mock)
	_, err := cat.SyncFromSource(ctx, 2024, models.WeekScope(3), []models.LineInput{
		{Favorite: "South Florida", Underdog: "Tulane", Line: -3.5, KickoffTime: kickoff},
		{Favorite: "Mississippi", Underdog: "LSU", Line: -2, KickoffTime: kickoff},
		{Favorite: "Miami (FL)", Underdog: "Florida State", Line: -10, KickoffTime: kickoff},
	})
	require.NoError(t, err)

	games, err := cat.GetGamesFor(ctx, 2024, models.WeekScope(3))
	require.NoError(t, err)

	return &fixture{
		matcher: New(cat, teams.NewNormalizer(aliases)),
		results: results.NewService(store.Games, mock, nil),
		store:   store,
		games:   games,
	}
}

func TestMatch(t *testing.T) {
	f := newFixture(t)

	result, err := f.matcher.Match(context.Background(), 2024, models.WeekScope(3), []models.ExternalGameResult{
		// Favorite at home
		{HomeTeam: "USF", AwayTeam: "Tulane", HomeScore: 28, AwayScore: 20, IsCompleted: true},
		// Favorite on the road; scores must be swapped
		{HomeTeam: "LSU", AwayTeam: "Ole Miss", HomeScore: 17, AwayScore: 24, IsCompleted: true},
		{HomeTeam: "Florida State", AwayTeam: "Miami (FL)", HomeScore: 0, AwayScore: 0, IsCompleted: false},
		{HomeTeam: "Montana", AwayTeam: "Idaho", HomeScore: 30, AwayScore: 10, IsCompleted: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.ResultInput{
		{GameID: f.games[0].ID, FavoriteScore: 28, UnderdogScore: 20},
		{GameID: f.games[1].ID, FavoriteScore: 24, UnderdogScore: 17},
	}, result.Matched)
	assert.Equal(t, []models.UnmatchedResult{
		{Home: "Montana", Away: "Idaho", Reason: models.ReasonNotFound},
	}, result.Unmatched)
	assert.Equal(t, 1, result.IncompleteCount)
	assert.Zero(t, result.AlreadyResolvedCount)
}

func TestMatch_AliasOnTrackedSide(t *testing.T) {
	f := newFixture(t)

	// The tracked game was entered as "Miami (FL)"; the feed uses the canonical name
	result, err := f.matcher.Match(context.Background(), 2024, models.WeekScope(3), []models.ExternalGameResult{
		{HomeTeam: "Miami", AwayTeam: "florida state", HomeScore: 35, AwayScore: 21, IsCompleted: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.ResultInput{
		{GameID: f.games[2].ID, FavoriteScore: 35, UnderdogScore: 21},
	}, result.Matched)
}

func TestMatch_RerunSkipsResolvedGames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	external := []models.ExternalGameResult{
		{HomeTeam: "USF", AwayTeam: "Tulane", HomeScore: 28, AwayScore: 20, IsCompleted: true},
	}

	first, err := f.matcher.Match(ctx, 2024, models.WeekScope(3), external)
	require.NoError(t, err)
	require.Len(t, first.Matched, 1)

	entered, err := f.results.BulkEnterResults(ctx, 2024, models.WeekScope(3), first.Matched, "external-sync")
	require.NoError(t, err)
	require.Equal(t, 1, entered.EnteredCount())

	second, err := f.matcher.Match(ctx, 2024, models.WeekScope(3), external)
	require.NoError(t, err)
	assert.Empty(t, second.Matched)
	assert.Equal(t, 1, second.AlreadyResolvedCount)
}

func TestMatch_NoTrackedGames(t *testing.T) {
	f := newFixture(t)

	result, err := f.matcher.Match(context.Background(), 2024, models.WeekScope(9), []models.ExternalGameResult{
		{HomeTeam: "USF", AwayTeam: "Tulane", HomeScore: 28, AwayScore: 20, IsCompleted: true},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Matched)
	assert.Len(t, result.Unmatched, 1)
}

func TestMatch_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Games.Fail = true

	_, err := f.matcher.Match(context.Background(), 2024, models.WeekScope(3), nil)
	assert.ErrorIs(t, err, testutil.ErrUnavailable)
}

func TestMatch_DuplicateRowsEmitGameOnce(t *testing.T) {
	f := newFixture(t)

	result, err := f.matcher.Match(context.Background(), 2024, models.WeekScope(3), []models.ExternalGameResult{
		{HomeTeam: "Tulane", AwayTeam: "USF", HomeScore: 10, AwayScore: 24, IsCompleted: true},
		{HomeTeam: "Tulane", AwayTeam: "South Florida", HomeScore: 10, AwayScore: 20, IsCompleted: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.ResultInput{
		{GameID: f.games[0].ID, FavoriteScore: 24, UnderdogScore: 10},
	}, result.Matched)
	assert.Equal(t, []models.UnmatchedResult{
		{Home: "Tulane", Away: "South Florida", Reason: models.ReasonDuplicateResult},
	}, result.Unmatched)
	assert.Zero(t, result.AlreadyResolvedCount)
}
