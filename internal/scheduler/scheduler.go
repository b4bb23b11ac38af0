package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pickem/engine/internal/config"
	"pickem/engine/internal/metrics"
	"pickem/engine/internal/models"

	"github.com/itbasis/go-clock"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// EnteredBy marks results written by the reconciliation job
const EnteredBy = "external-sync"

// ResultsFetcher reads final scores from an external provider
type ResultsFetcher interface {
	Kind() string
	FetchResults(ctx context.Context, season int, scope models.Scope) ([]models.ExternalGameResult, error)
}

// Matcher pairs external results with tracked games
type Matcher interface {
	Match(ctx context.Context, season int, scope models.Scope, external []models.ExternalGameResult) (*models.MatchResult, error)
}

// ResultEntry stores matched scores
type ResultEntry interface {
	BulkEnterResults(ctx context.Context, season int, scope models.Scope, items []models.ResultInput, enteredBy string) (*models.BulkResult, error)
}

// PendingGames lists games that have kicked off without a result
type PendingGames interface {
	ListPending(ctx context.Context, season int, before time.Time) ([]*models.Game, error)
}

// AliasRefresher reloads the team alias table
type AliasRefresher interface {
	Refresh(ctx context.Context) error
	Len() int
}

// LineSyncer upserts posted lines into the catalog
type LineSyncer interface {
	SyncFromSource(ctx context.Context, season int, scope models.Scope, items []models.LineInput) (int, error)
}

// StandingsWarmer refills cached leaderboards after results change
type StandingsWarmer interface {
	Warm(ctx context.Context, season int, scope models.Scope) error
}

// Deps are the collaborators driven by the scheduler. Standings may be nil.
type Deps struct {
	Fetcher   ResultsFetcher
	Matcher   Matcher
	Results   ResultEntry
	Pending   PendingGames
	Aliases   AliasRefresher
	Lines     LineSyncer
	Standings StandingsWarmer
}

// Scheduler runs the background jobs:
// - Periodic reload of the team alias table
// - Reconciliation of final scores for games that have kicked off
type Scheduler struct {
	cfg   *config.Config
	deps  Deps
	clock clock.Clock
	cron  *cron.Cron

	// one reconciliation at a time
	reconcileMu sync.Mutex
}

// ReconcileSummary totals one reconciliation pass over a scope
type ReconcileSummary struct {
	Season          int
	Scope           models.Scope
	Fetched         int
	Matched         int
	Unmatched       int
	AlreadyResolved int
	Incomplete      int
	Entered         int
	Failed          int
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, deps Deps, clk clock.Clock) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		deps:  deps,
		clock: clk,
		cron:  cron.New(),
	}
}

// Start registers the cron jobs and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.AliasRefreshCron, func() {
		if err := s.RefreshAliases(ctx); err != nil {
			log.Error().Err(err).Msg("Alias refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule alias refresh: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.ResultSyncCron, func() {
		if _, err := s.ReconcilePending(ctx); err != nil {
			log.Error().Err(err).Msg("Result reconciliation failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule result reconciliation: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("alias_refresh", s.cfg.AliasRefreshCron).
		Str("result_sync", s.cfg.ResultSyncCron).
		Str("provider", s.deps.Fetcher.Kind()).
		Msg("Scheduler jobs registered")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	<-s.cron.Stop().Done()

	log.Info().Msg("Scheduler stopped")
}

// RefreshAliases reloads the team alias table
func (s *Scheduler) RefreshAliases(ctx context.Context) error {
	start := time.Now()

	if err := s.deps.Aliases.Refresh(ctx); err != nil {
		metrics.RecordSync("aliases", "error", time.Since(start).Seconds())
		return err
	}

	metrics.RecordSync("aliases", "success", time.Since(start).Seconds())
	log.Debug().Int("aliases", s.deps.Aliases.Len()).Msg("Alias refresh complete")
	return nil
}

// ReconcilePending reconciles every scope of the current season that has games
// past kickoff without a result. A failing scope does not stop the others.
func (s *Scheduler) ReconcilePending(ctx context.Context) ([]*ReconcileSummary, error) {
	now := s.clock.Now()
	season := s.cfg.CurrentSeason(now)

	pending, err := s.deps.Pending.ListPending(ctx, season, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending games: %w", err)
	}

	scopes := pendingScopes(pending)
	if len(scopes) == 0 {
		log.Debug().Int("season", season).Msg("No games awaiting results")
		return nil, nil
	}

	log.Info().
		Int("season", season).
		Int("pending_games", len(pending)).
		Int("scopes", len(scopes)).
		Msg("Reconciling pending games")

	var firstErr error
	summaries := make([]*ReconcileSummary, 0, len(scopes))
	for _, scope := range scopes {
		summary, err := s.ReconcileResults(ctx, season, scope)
		if err != nil {
			log.Error().Err(err).Str("scope", scope.String()).Msg("Scope reconciliation failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		summaries = append(summaries, summary)
	}

	return summaries, firstErr
}

// ReconcileResults fetches provider results for one scope, matches them to tracked games
// and enters the matched scores. Games that already have a result are left alone.
func (s *Scheduler) ReconcileResults(ctx context.Context, season int, scope models.Scope) (*ReconcileSummary, error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	start := time.Now()
	fail := func(stage string, err error) (*ReconcileSummary, error) {
		metrics.RecordSync("results", "error", time.Since(start).Seconds())
		metrics.RecordError("scheduler", stage)
		return nil, err
	}

	external, err := s.deps.Fetcher.FetchResults(ctx, season, scope)
	if err != nil {
		return fail("fetch", fmt.Errorf("failed to fetch results for %s: %w", scope, err))
	}

	matched, err := s.deps.Matcher.Match(ctx, season, scope, external)
	if err != nil {
		return fail("match", err)
	}

	summary := &ReconcileSummary{
		Season:          season,
		Scope:           scope,
		Fetched:         len(external),
		Matched:         len(matched.Matched),
		Unmatched:       len(matched.Unmatched),
		AlreadyResolved: matched.AlreadyResolvedCount,
		Incomplete:      matched.IncompleteCount,
	}

	for _, u := range matched.Unmatched {
		log.Warn().
			Str("home", u.Home).
			Str("away", u.Away).
			Str("scope", scope.String()).
			Msg("External result did not match a tracked game")
	}

	if len(matched.Matched) > 0 {
		bulk, err := s.deps.Results.BulkEnterResults(ctx, season, scope, matched.Matched, EnteredBy)
		if err != nil {
			return fail("enter", err)
		}
		summary.Entered = bulk.EnteredCount()
		summary.Failed = bulk.FailedCount()
	}

	if summary.Entered > 0 && s.deps.Standings != nil {
		if err := s.deps.Standings.Warm(ctx, season, scope); err != nil {
			metrics.RecordError("scheduler", "standings_warm")
			log.Warn().Err(err).Str("scope", scope.String()).Msg("Failed to warm standings cache")
		}
	}

	metrics.RecordSync("results", "success", time.Since(start).Seconds())

	log.Info().
		Int("season", season).
		Str("scope", scope.String()).
		Int("fetched", summary.Fetched).
		Int("entered", summary.Entered).
		Int("failed", summary.Failed).
		Int("unmatched", summary.Unmatched).
		Dur("duration", time.Since(start)).
		Msg("Result reconciliation complete")

	return summary, nil
}

// SyncLines upserts a slate of posted lines and returns how many games were written
func (s *Scheduler) SyncLines(ctx context.Context, season int, scope models.Scope, items []models.LineInput) (int, error) {
	start := time.Now()

	synced, err := s.deps.Lines.SyncFromSource(ctx, season, scope, items)
	if err != nil {
		metrics.RecordSync("lines", "error", time.Since(start).Seconds())
		return 0, err
	}

	metrics.RecordSync("lines", "success", time.Since(start).Seconds())
	return synced, nil
}

// pendingScopes returns the distinct scopes of games, weeks ascending then bowl
func pendingScopes(games []*models.Game) []models.Scope {
	seen := make(map[models.Scope]struct{})
	var scopes []models.Scope
	for _, game := range games {
		scope := models.WeekScope(game.ScopeKey)
		if game.Kind == models.KindBowl {
			scope = models.BowlScope()
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		scopes = append(scopes, scope)
	}

	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].IsBowl() != scopes[j].IsBowl() {
			return !scopes[i].IsBowl()
		}
		return scopes[i].Week < scopes[j].Week
	})
	return scopes
}
