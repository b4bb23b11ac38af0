// Command manualsync runs one-shot catalog and result operations for a single week or the bowl season:
// syncing posted lines from a JSON file, entering results by hand, reconciling against the
// external provider, and printing standings.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"pickem/engine/internal/cache"
	"pickem/engine/internal/catalog"
	"pickem/engine/internal/client"
	"pickem/engine/internal/config"
	"pickem/engine/internal/matcher"
	"pickem/engine/internal/models"
	"pickem/engine/internal/repository"
	"pickem/engine/internal/results"
	"pickem/engine/internal/scheduler"
	"pickem/engine/internal/standings"
	"pickem/engine/internal/teams"

	"github.com/itbasis/go-clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	season      int
	week        int
	bowl        bool
	linesFile   string
	resultsFile string
	enteredBy   string
	reconcile   bool
	standings   bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("manualsync", flag.ContinueOnError)

	opts := &options{}
	fs.IntVar(&opts.season, "season", 0, "season year (defaults to SEASON or the current year)")
	fs.IntVar(&opts.week, "week", 0, "regular-season week")
	fs.BoolVar(&opts.bowl, "bowl", false, "operate on the bowl season instead of a week")
	fs.StringVar(&opts.linesFile, "lines", "", "JSON file of posted lines to sync")
	fs.StringVar(&opts.resultsFile, "results", "", "JSON file of final scores to enter")
	fs.StringVar(&opts.enteredBy, "entered-by", "manual", "name recorded on entered results")
	fs.BoolVar(&opts.reconcile, "reconcile", false, "fetch and enter final scores from the external provider")
	fs.BoolVar(&opts.standings, "standings", false, "print standings for the scope as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.bowl == (opts.week > 0) {
		return nil, errors.New("exactly one of -week or -bowl is required")
	}
	if opts.linesFile == "" && opts.resultsFile == "" && !opts.reconcile && !opts.standings {
		return nil, errors.New("nothing to do: pass -lines, -results, -reconcile or -standings")
	}

	return opts, nil
}

func (o *options) scope() models.Scope {
	if o.bowl {
		return models.BowlScope()
	}
	return models.WeekScope(o.week)
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.MustLoad()
	clk := clock.New()

	season := opts.season
	if season == 0 {
		season = cfg.CurrentSeason(clk.Now())
	}
	scope := opts.scope()

	if err := repository.Migrate(cfg.DatabaseDSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("Validating service health...")
	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	aliases := teams.NewAliasCache(db.Aliases, clk)
	if err := aliases.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load team aliases")
	}

	// Read and invalidate standings through redis when it is reachable, as the worker does
	aggregator := standings.NewAggregator(db.Games, db.Picks, db.BowlPicks, db.Users, cfg.PicksPerWeek)
	var (
		reader      standingsReader = aggregator
		invalidator results.Invalidator
		warmer      scheduler.StandingsWarmer
	)
	redisCache, err := cache.NewCache(ctx, cache.Config{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable - computing standings without cache")
	} else {
		defer redisCache.Close()
		cached := standings.NewCached(aggregator, redisCache, cfg.StandingsTTL())
		reader, invalidator, warmer = cached, cached, cached
	}

	cat := catalog.New(db.Games, clk)
	resultService := results.NewService(db.Games, clk, invalidator)
	deps := scheduler.Deps{
		Matcher:   matcher.New(cat, teams.NewNormalizer(aliases)),
		Results:   resultService,
		Pending:   db.Games,
		Aliases:   aliases,
		Lines:     cat,
		Standings: warmer,
	}

	if opts.reconcile {
		provider, err := client.NewClient(cfg.ProviderKind, cfg.ProviderURL(), cfg.ProviderAPIKey, cfg.ProviderTimeout, cfg.APIRateLimit)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create provider client")
		}
		deps.Fetcher = provider
	}
	sched := scheduler.NewScheduler(cfg, deps, clk)

	if opts.linesFile != "" {
		var items []models.LineInput
		if err := readJSON(opts.linesFile, &items); err != nil {
			log.Fatal().Err(err).Msg("Failed to read lines file")
		}
		synced, err := sched.SyncLines(ctx, season, scope, items)
		if err != nil {
			log.Fatal().Err(err).Msg("Line sync failed")
		}
		log.Info().Int("items", len(items)).Int("synced", synced).Msg("Lines synced")
	}

	if opts.resultsFile != "" {
		var items []models.ResultInput
		if err := readJSON(opts.resultsFile, &items); err != nil {
			log.Fatal().Err(err).Msg("Failed to read results file")
		}
		bulk, err := resultService.BulkEnterResults(ctx, season, scope, items, opts.enteredBy)
		if err != nil {
			log.Fatal().Err(err).Msg("Result entry failed")
		}
		for _, f := range bulk.Failed {
			log.Warn().Int64("game_id", f.Ref).Str("reason", f.Reason).Msg("Result not entered")
		}
	}

	if opts.reconcile {
		summary, err := sched.ReconcileResults(ctx, season, scope)
		if err != nil {
			log.Fatal().Err(err).Msg("Reconciliation failed")
		}
		log.Info().
			Int("fetched", summary.Fetched).
			Int("entered", summary.Entered).
			Int("unmatched", summary.Unmatched).
			Int("already_resolved", summary.AlreadyResolved).
			Msg("Reconciliation complete")
	}

	if opts.standings {
		if err := printStandings(ctx, os.Stdout, reader, season, scope); err != nil {
			log.Fatal().Err(err).Msg("Failed to compute standings")
		}
	}
}

func readJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
