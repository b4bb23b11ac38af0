package picks

import (
	"context"
	"testing"
	"time"

	"pickem/engine/internal/catalog"
	"pickem/engine/internal/models"
	"pickem/engine/internal/testutil"

	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	season = 2024
	userID = int64(7)
)

var kickoff = time.Date(2024, 9, 14, 19, 0, 0, 0, time.UTC)

type fakeInvalidator struct {
	seasons []int
}

func (f *fakeInvalidator) InvalidateSeason(ctx context.Context, season int) error {
	f.seasons = append(f.seasons, season)
	return nil
}

type fixture struct {
	svc         *Service
	store       *testutil.Store
	clock       *clock.Mock
	weekly      []*models.Game
	bowls       []*models.Game
	catalog     *catalog.Catalog
	invalidator *fakeInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := testutil.NewStore()
	store.Users.Add(userID, "Avery")
	mock := clock.NewMock()
	mock.Set(kickoff.Add(-48 * time.Hour))
	cat := catalog.New(store.Games, mock)

	_, err := cat.SyncFromSource(ctx, season, models.WeekScope(3), []models.LineInput{
		{Favorite: "Alabama", Underdog: "Auburn", Line: -7.5, KickoffTime: kickoff},
		{Favorite: "Georgia", Underdog: "Clemson", Line: -3, KickoffTime: kickoff.Add(-72 * time.Hour)},
	})
	require.NoError(t, err)

	_, err = cat.SyncFromSource(ctx, season, models.BowlScope(), []models.LineInput{
		{Favorite: "Ohio State", Underdog: "Oregon", Line: -2.5, KickoffTime: kickoff, GameNumber: 1},
		{Favorite: "Texas", Underdog: "Arizona State", Line: -13.5, KickoffTime: kickoff, GameNumber: 2},
		{Favorite: "Penn State", Underdog: "SMU", Line: -8.5, KickoffTime: kickoff, GameNumber: 3},
		{Favorite: "Notre Dame", Underdog: "Indiana", Line: -7.5, KickoffTime: kickoff.Add(-72 * time.Hour), GameNumber: 4},
	})
	require.NoError(t, err)

	weekly, err := cat.GetGamesFor(ctx, season, models.WeekScope(3))
	require.NoError(t, err)
	bowls, err := cat.GetGamesFor(ctx, season, models.BowlScope())
	require.NoError(t, err)

	inv := &fakeInvalidator{}
	return &fixture{
		svc:         NewService(cat, store.Picks, store.BowlPicks, store.Users, inv),
		store:       store,
		clock:       mock,
		weekly:      weekly,
		bowls:       bowls,
		catalog:     cat,
		invalidator: inv,
	}
}

func TestSubmit_Weekly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open, locked := f.weekly[0], f.weekly[1]

	result, err := f.svc.Submit(ctx, userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: open.ID, Selection: "Auburn"},
		{GameID: locked.ID, Selection: "Georgia"},
		{GameID: 9999, Selection: "Texas"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{open.ID}, result.Accepted)
	assert.Equal(t, []models.ItemRejection{
		{Ref: locked.ID, Reason: models.ReasonLocked},
		{Ref: 9999, Reason: models.ReasonNotFound},
	}, result.Rejected)
	assert.Equal(t, 1, f.store.Picks.Count())

	pick, err := f.store.Picks.GetByUserAndGame(ctx, userID, open.ID)
	require.NoError(t, err)
	assert.Equal(t, "Auburn", pick.SelectedTeam)
	assert.Equal(t, 3, pick.Week)
	assert.Equal(t, f.clock.Now(), pick.SubmittedAt)
	assert.False(t, pick.UpdatedAt.Valid)
}

func TestSubmit_WeeklyResubmissionUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.weekly[0]

	_, err := f.svc.Submit(ctx, userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: game.ID, Selection: "Alabama"},
	})
	require.NoError(t, err)

	f.clock.Add(time.Hour)
	result, err := f.svc.Submit(ctx, userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: game.ID, Selection: "Auburn"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AcceptedCount())

	assert.Equal(t, 1, f.store.Picks.Count(), "Exactly one pick row")
	pick, err := f.store.Picks.GetByUserAndGame(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, "Auburn", pick.SelectedTeam)
	require.True(t, pick.UpdatedAt.Valid)
	assert.Equal(t, f.clock.Now(), pick.UpdatedAt.Time)
}

func TestSubmit_WeeklyValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open, locked := f.weekly[0], f.weekly[1]

	result, err := f.svc.Submit(ctx, userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: locked.ID, Selection: "Nobody"},
		{GameID: open.ID, Selection: "alabama"},
		{GameID: open.ID, Selection: ""},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Accepted)
	assert.Equal(t, []models.ItemRejection{
		{Ref: locked.ID, Reason: models.ReasonLocked},
		{Ref: open.ID, Reason: models.ReasonInvalidSelection},
		{Ref: open.ID, Reason: models.ReasonInvalidSelection},
	}, result.Rejected)
}

func TestSubmit_WeeklyGameOutsideScope(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Submit(context.Background(), userID, season, models.WeekScope(4), []models.PickInput{
		{GameID: f.weekly[0].ID, Selection: "Alabama"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.ItemRejection{{Ref: f.weekly[0].ID, Reason: models.ReasonNotFound}}, result.Rejected)
}

func TestSubmit_LockedAtKickoff(t *testing.T) {
	f := newFixture(t)
	game := f.weekly[0]

	f.clock.Set(kickoff.Add(-time.Second))
	result, err := f.svc.Submit(context.Background(), userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: game.ID, Selection: "Alabama"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AcceptedCount())

	f.clock.Set(kickoff)
	result, err = f.svc.Submit(context.Background(), userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: game.ID, Selection: "Auburn"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.ItemRejection{{Ref: game.ID, Reason: models.ReasonLocked}}, result.Rejected)
}

func TestSubmit_Empty(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Submit(context.Background(), userID, season, models.BowlScope(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.AcceptedCount())
	assert.Zero(t, result.RejectedCount())
}

func TestSubmit_StoreFailureIsError(t *testing.T) {
	f := newFixture(t)
	f.store.Picks.Fail = true

	_, err := f.svc.Submit(context.Background(), userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: f.weekly[0].ID, Selection: "Alabama"},
	})
	assert.ErrorIs(t, err, testutil.ErrUnavailable)
}

func TestSubmit_Bowl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, userID, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[0].ID, Selection: "Oregon", ConfidencePoints: 3, OutrightPick: "Oregon"},
		{GameID: f.bowls[1].ID, Selection: "Texas", ConfidencePoints: 2, OutrightPick: "Texas"},
		{GameID: f.bowls[2].ID, Selection: "SMU", ConfidencePoints: 1, OutrightPick: "Clemson"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{f.bowls[0].ID, f.bowls[1].ID}, result.Accepted)
	assert.Equal(t, []models.ItemRejection{
		{Ref: f.bowls[2].ID, Reason: models.ReasonInvalidOutrightPick},
	}, result.Rejected)

	picks, err := f.store.BowlPicks.ListByUser(ctx, userID, season)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, 3, picks[0].ConfidencePoints)
	assert.Equal(t, "Oregon", picks[0].OutrightWinnerPick)
}

func TestSubmit_BowlDuplicateConfidenceRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Submit(context.Background(), userID, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[0].ID, Selection: "Oregon", ConfidencePoints: 2, OutrightPick: "Oregon"},
		{GameID: f.bowls[1].ID, Selection: "Texas", ConfidencePoints: 2, OutrightPick: "Texas"},
		{GameID: f.bowls[2].ID, Selection: "SMU", ConfidencePoints: 1, OutrightPick: "SMU"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Accepted)
	assert.Equal(t, 3, result.RejectedCount())
	for _, rejection := range result.Rejected {
		assert.Equal(t, models.ReasonDuplicateConfidence, rejection.Reason)
	}
	assert.Zero(t, f.store.BowlPicks.Count(), "Nothing from the batch is persisted")
}

func TestSubmit_BowlConfidenceAgainstExistingPicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, userID, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[0].ID, Selection: "Oregon", ConfidencePoints: 1, OutrightPick: "Oregon"},
		{GameID: f.bowls[1].ID, Selection: "Texas", ConfidencePoints: 2, OutrightPick: "Texas"},
	})
	require.NoError(t, err)

	// Reusing a value held by a pick outside the batch is rejected
	result, err := f.svc.Submit(ctx, userID, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[2].ID, Selection: "SMU", ConfidencePoints: 2, OutrightPick: "SMU"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.ItemRejection{{Ref: f.bowls[2].ID, Reason: models.ReasonDuplicateConfidence}}, result.Rejected)

	// Swapping values between replaced games is allowed
	result, err = f.svc.Submit(ctx, userID, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[0].ID, Selection: "Ohio State", ConfidencePoints: 2, OutrightPick: "Ohio State"},
		{GameID: f.bowls[1].ID, Selection: "Texas", ConfidencePoints: 1, OutrightPick: "Texas"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AcceptedCount())

	picks, err := f.store.BowlPicks.ListByUser(ctx, userID, season)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, f.bowls[0].ID, picks[0].GameID)
	assert.Equal(t, "Ohio State", picks[0].SpreadPick)
	assert.True(t, picks[0].UpdatedAt.Valid)
}

func TestSubmit_BowlCollisionWithKeptPick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lockedBowl := f.bowls[3]

	// Pick the Notre Dame game while it is still open
	f.clock.Set(lockedBowl.KickoffTime.Add(-time.Hour))
	_, err := f.svc.Submit(ctx, userID, season, models.BowlScope(), []models.PickInput{
		{GameID: lockedBowl.ID, Selection: "Indiana", ConfidencePoints: 4, OutrightPick: "Notre Dame"},
	})
	require.NoError(t, err)

	// After it locks, trying to move its 4 to another game keeps the old pick,
	// so the other game cannot take 4 either
	f.clock.Set(lockedBowl.KickoffTime.Add(time.Hour))
	result, err := f.svc.Submit(ctx, userID, season, models.BowlScope(), []models.PickInput{
		{GameID: lockedBowl.ID, Selection: "Indiana", ConfidencePoints: 1, OutrightPick: "Indiana"},
		{GameID: f.bowls[0].ID, Selection: "Oregon", ConfidencePoints: 4, OutrightPick: "Oregon"},
		{GameID: f.bowls[1].ID, Selection: "Texas", ConfidencePoints: 3, OutrightPick: "Texas"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{f.bowls[1].ID}, result.Accepted)
	assert.ElementsMatch(t, []models.ItemRejection{
		{Ref: lockedBowl.ID, Reason: models.ReasonLocked},
		{Ref: f.bowls[0].ID, Reason: models.ReasonDuplicateConfidence},
	}, result.Rejected)

	picks, err := f.store.BowlPicks.ListByUser(ctx, userID, season)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, 4, picks[0].ConfidencePoints)
	assert.Equal(t, lockedBowl.ID, picks[0].GameID)
}

func TestSubmit_BowlInvalidConfidence(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Submit(context.Background(), userID, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[0].ID, Selection: "Oregon", ConfidencePoints: 0, OutrightPick: "Oregon"},
		{GameID: f.bowls[1].ID, Selection: "Longhorns", ConfidencePoints: 2, OutrightPick: "Texas"},
		{GameID: f.weekly[0].ID, Selection: "Alabama", ConfidencePoints: 3, OutrightPick: "Alabama"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Accepted)
	assert.Equal(t, []models.ItemRejection{
		{Ref: f.bowls[0].ID, Reason: models.ReasonInvalidConfidence},
		{Ref: f.bowls[1].ID, Reason: models.ReasonInvalidSelection},
		{Ref: f.weekly[0].ID, Reason: models.ReasonNotFound},
	}, result.Rejected)
}

func TestSubmit_UnknownUserRejectsEveryItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, 999, season, models.WeekScope(3), []models.PickInput{
		{GameID: f.weekly[0].ID, Selection: "Alabama"},
		{GameID: 9999, Selection: "Texas"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Accepted)
	assert.Equal(t, []models.ItemRejection{
		{Ref: f.weekly[0].ID, Reason: models.ReasonUserNotFound},
		{Ref: 9999, Reason: models.ReasonUserNotFound},
	}, result.Rejected)
	assert.Zero(t, f.store.Picks.Count())

	bowl, err := f.svc.Submit(ctx, 999, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[0].ID, Selection: "Oregon", ConfidencePoints: 1, OutrightPick: "Oregon"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.ItemRejection{{Ref: f.bowls[0].ID, Reason: models.ReasonUserNotFound}}, bowl.Rejected)
	assert.Zero(t, f.store.BowlPicks.Count())
	assert.Empty(t, f.invalidator.seasons)
}

func TestSubmit_UserLookupFailureIsError(t *testing.T) {
	f := newFixture(t)
	f.store.Users.Fail = true

	_, err := f.svc.Submit(context.Background(), userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: f.weekly[0].ID, Selection: "Alabama"},
	})
	assert.ErrorIs(t, err, testutil.ErrUnavailable)
}

func TestSubmit_BowlRepeatedGameInBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, userID, season, models.BowlScope(), []models.PickInput{
		{GameID: f.bowls[0].ID, Selection: "Oregon", ConfidencePoints: 3, OutrightPick: "Oregon"},
		{GameID: f.bowls[0].ID, Selection: "Ohio State", ConfidencePoints: 2, OutrightPick: "Ohio State"},
		{GameID: f.bowls[1].ID, Selection: "Texas", ConfidencePoints: 2, OutrightPick: "Texas"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{f.bowls[0].ID, f.bowls[1].ID}, result.Accepted)
	assert.Equal(t, []models.ItemRejection{
		{Ref: f.bowls[0].ID, Reason: models.ReasonDuplicateGame},
	}, result.Rejected)

	picks, err := f.store.BowlPicks.ListByUser(ctx, userID, season)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, "Oregon", picks[0].SpreadPick)
	assert.Equal(t, 3, picks[0].ConfidencePoints)
	assert.Equal(t, 2, picks[1].ConfidencePoints)
}

func TestSubmit_WeeklyRepeatedGameInBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.weekly[0]

	result, err := f.svc.Submit(ctx, userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: open.ID, Selection: "Alabama"},
		{GameID: open.ID, Selection: "Auburn"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{open.ID}, result.Accepted)
	assert.Equal(t, []models.ItemRejection{{Ref: open.ID, Reason: models.ReasonDuplicateGame}}, result.Rejected)

	pick, err := f.store.Picks.GetByUserAndGame(ctx, userID, open.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alabama", pick.SelectedTeam)
}

func TestSubmit_InvalidatesSeasonOnlyWhenSomethingIsAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open, locked := f.weekly[0], f.weekly[1]

	_, err := f.svc.Submit(ctx, userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: locked.ID, Selection: "Georgia"},
	})
	require.NoError(t, err)
	assert.Empty(t, f.invalidator.seasons)

	_, err = f.svc.Submit(ctx, userID, season, models.WeekScope(3), []models.PickInput{
		{GameID: open.ID, Selection: "Alabama"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{season}, f.invalidator.seasons)
}
