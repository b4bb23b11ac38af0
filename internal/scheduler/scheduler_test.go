package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pickem/engine/internal/catalog"
	"pickem/engine/internal/client"
	"pickem/engine/internal/config"
	"pickem/engine/internal/matcher"
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
	scheduler *Scheduler
	store     *testutil.Store
	aliases   *teams.AliasCache
	clock     *clock.Mock
}

// newFixture wires the scheduler to in-memory stores and a fake CFBD server
func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	ctx := context.Background()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := testutil.NewStore()
	store.Aliases.Add("uiowa", "Iowa")

	mock := clock.NewMock()
	mock.Set(kickoff.Add(4 * time.Hour))

	aliases := teams.NewAliasCache(store.Aliases, mock)
	require.NoError(t, aliases.Load(ctx))

	cat := catalog.New(store.Games, mock)
	fetcher, err := client.NewClient(client.KindCFBD, server.URL, "key", 5*time.Second, 1)
	require.NoError(t, err)

	cfg := &config.Config{
		Season:           2024,
		AliasRefreshCron: "*/15 * * * *",
		ResultSyncCron:   "*/10 * * * *",
	}

	s := NewScheduler(cfg, Deps{
		Fetcher: fetcher,
		Matcher: matcher.New(cat, teams.NewNormalizer(aliases)),
		Results: results.NewService(store.Games, mock, nil),
		Pending: store.Games,
		Aliases: aliases,
		Lines:   cat,
	}, mock)

	return &fixture{scheduler: s, store: store, aliases: aliases, clock: mock}
}

func (f *fixture) seedWeek(t *testing.T, week int, start time.Time, lines ...models.LineInput) {
	t.Helper()
	for i := range lines {
		lines[i].KickoffTime = start
	}
	n, err := f.scheduler.SyncLines(context.Background(), 2024, models.WeekScope(week), lines)
	require.NoError(t, err)
	require.Equal(t, len(lines), n)
}

func cfbdWeek3(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("week") != "3" {
		w.Write([]byte(`[]`))
		return
	}
	w.Write([]byte(`[
		{"id":1,"completed":true,"homeTeam":"Minnesota","awayTeam":"UIowa","homePoints":20,"awayPoints":24},
		{"id":2,"completed":true,"homeTeam":"Purdue","awayTeam":"Indiana","homePoints":14,"awayPoints":14},
		{"id":3,"completed":true,"homeTeam":"Montana","awayTeam":"Idaho","homePoints":30,"awayPoints":10}
	]`))
}

func TestReconcilePending(t *testing.T) {
	f := newFixture(t, cfbdWeek3)
	ctx := context.Background()

	f.seedWeek(t, 3, kickoff,
		models.LineInput{Favorite: "Iowa", Underdog: "Minnesota", Line: -3.5},
		models.LineInput{Favorite: "Purdue", Underdog: "Indiana", Line: -1},
	)
	f.seedWeek(t, 4, kickoff.Add(7*24*time.Hour),
		models.LineInput{Favorite: "Iowa", Underdog: "Nebraska", Line: -6},
	)

	summaries, err := f.scheduler.ReconcilePending(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, models.WeekScope(3), summary.Scope)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 2, summary.Entered)
	assert.Zero(t, summary.Failed)

	games, err := f.store.Games.ListByScope(ctx, 2024, models.WeekScope(3))
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, "Iowa", games[0].SpreadWinnerName.String)
	assert.Equal(t, int32(24), games[0].FavoriteScore.Int32)
	assert.Equal(t, int32(20), games[0].UnderdogScore.Int32)
	assert.Equal(t, EnteredBy, games[0].ResolvedBy.String)

	assert.Equal(t, "Indiana", games[1].SpreadWinnerName.String)

	// Everything past kickoff is settled now
	summaries, err = f.scheduler.ReconcilePending(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestReconcilePending_NothingKickedOff(t *testing.T) {
	calls := 0
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	})

	f.seedWeek(t, 5, kickoff.Add(14*24*time.Hour),
		models.LineInput{Favorite: "Iowa", Underdog: "Ohio State", Line: -1},
	)

	summaries, err := f.scheduler.ReconcilePending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Zero(t, calls)
}

func TestReconcileResults_LeavesResolvedGamesAlone(t *testing.T) {
	f := newFixture(t, cfbdWeek3)
	ctx := context.Background()

	f.seedWeek(t, 3, kickoff,
		models.LineInput{Favorite: "Iowa", Underdog: "Minnesota", Line: -3.5},
	)
	games, err := f.store.Games.ListByScope(ctx, 2024, models.WeekScope(3))
	require.NoError(t, err)

	// A manual correction already settled the game
	manual := results.NewService(f.store.Games, f.clock, nil)
	_, err = manual.EnterResult(ctx, games[0].ID, 10, 20, "admin")
	require.NoError(t, err)

	summary, err := f.scheduler.ReconcileResults(ctx, 2024, models.WeekScope(3))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyResolved)
	assert.Zero(t, summary.Entered)

	stored, err := f.store.Games.GetByID(ctx, games[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", stored.ResolvedBy.String)
	assert.Equal(t, "Minnesota", stored.SpreadWinnerName.String)
}

func TestReconcileResults_ProviderError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	f.seedWeek(t, 3, kickoff,
		models.LineInput{Favorite: "Iowa", Underdog: "Minnesota", Line: -3.5},
	)

	_, err := f.scheduler.ReconcilePending(context.Background())
	require.Error(t, err)

	games, err := f.store.Games.ListByScope(context.Background(), 2024, models.WeekScope(3))
	require.NoError(t, err)
	assert.False(t, games[0].HasResult())
}

func TestReconcilePending_StoreError(t *testing.T) {
	f := newFixture(t, cfbdWeek3)
	f.store.Games.Fail = true

	_, err := f.scheduler.ReconcilePending(context.Background())
	assert.ErrorIs(t, err, testutil.ErrUnavailable)
}

func TestRefreshAliases(t *testing.T) {
	f := newFixture(t, cfbdWeek3)
	require.Equal(t, 1, f.aliases.Len())

	f.store.Aliases.Add("gophers", "Minnesota")
	require.NoError(t, f.scheduler.RefreshAliases(context.Background()))
	assert.Equal(t, 2, f.aliases.Len())
}

func TestSyncLines_SkipsMalformedItems(t *testing.T) {
	f := newFixture(t, cfbdWeek3)

	n, err := f.scheduler.SyncLines(context.Background(), 2024, models.WeekScope(3), []models.LineInput{
		{Favorite: "Iowa", Underdog: "Minnesota", Line: -3.5, KickoffTime: kickoff},
		{Favorite: "Iowa", Underdog: "Iowa", Line: -1, KickoffTime: kickoff},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.store.Games.Count())
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, cfbdWeek3)

	require.NoError(t, f.scheduler.Start(context.Background()))
	f.scheduler.Stop()
}

func TestStart_InvalidCron(t *testing.T) {
	f := newFixture(t, cfbdWeek3)
	f.scheduler.cfg.ResultSyncCron = "not a schedule"

	assert.Error(t, f.scheduler.Start(context.Background()))
}

func TestPendingScopes(t *testing.T) {
	games := []*models.Game{
		{Kind: models.KindBowl, ScopeKey: 3},
		{Kind: models.KindWeekly, ScopeKey: 7},
		{Kind: models.KindWeekly, ScopeKey: 2},
		{Kind: models.KindWeekly, ScopeKey: 7},
		{Kind: models.KindBowl, ScopeKey: 1},
	}

	assert.Equal(t, []models.Scope{
		models.WeekScope(2),
		models.WeekScope(7),
		models.BowlScope(),
	}, pendingScopes(games))
}

type recordingWarmer struct {
	scopes []models.Scope
}

func (w *recordingWarmer) Warm(ctx context.Context, season int, scope models.Scope) error {
	w.scopes = append(w.scopes, scope)
	return nil
}

func TestReconcileResults_WarmsStandingsAfterEntry(t *testing.T) {
	f := newFixture(t, cfbdWeek3)
	ctx := context.Background()
	warmer := &recordingWarmer{}
	f.scheduler.deps.Standings = warmer

	f.seedWeek(t, 3, kickoff,
		models.LineInput{Favorite: "Iowa", Underdog: "Minnesota", Line: -3.5},
	)

	_, err := f.scheduler.ReconcileResults(ctx, 2024, models.WeekScope(3))
	require.NoError(t, err)
	assert.Equal(t, []models.Scope{models.WeekScope(3)}, warmer.scopes)

	// Nothing new to enter, nothing to warm
	_, err = f.scheduler.ReconcileResults(ctx, 2024, models.WeekScope(3))
	require.NoError(t, err)
	assert.Len(t, warmer.scopes, 1)
}
