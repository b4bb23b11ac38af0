package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickem/engine/internal/cache"
	"pickem/engine/internal/catalog"
	"pickem/engine/internal/client"
	"pickem/engine/internal/config"
	"pickem/engine/internal/matcher"
	"pickem/engine/internal/metrics"
	"pickem/engine/internal/repository"
	"pickem/engine/internal/results"
	"pickem/engine/internal/scheduler"
	"pickem/engine/internal/standings"
	"pickem/engine/internal/teams"

	"github.com/itbasis/go-clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting pick'em worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("provider", cfg.ProviderKind).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk := clock.New()

	// Apply schema before connecting
	if err := repository.Migrate(cfg.DatabaseDSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	db, err := repository.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().
		Str("host", cfg.DatabaseHost).
		Str("database", cfg.DatabaseName).
		Msg("Database connection established")

	// Standings cache is optional; without it standings are computed on every read
	var (
		invalidator results.Invalidator
		warmer      scheduler.StandingsWarmer
	)
	redisCache, err := cache.NewCache(ctx, cache.Config{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without standings cache")
	} else {
		defer redisCache.Close()
		aggregator := standings.NewAggregator(db.Games, db.Picks, db.BowlPicks, db.Users, cfg.PicksPerWeek)
		cached := standings.NewCached(aggregator, redisCache, cfg.StandingsTTL())
		invalidator, warmer = cached, cached
	}

	aliases := teams.NewAliasCache(db.Aliases, clk)
	if err := aliases.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load team aliases")
	}

	provider, err := client.NewClient(cfg.ProviderKind, cfg.ProviderURL(), cfg.ProviderAPIKey, cfg.ProviderTimeout, cfg.APIRateLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create provider client")
	}

	cat := catalog.New(db.Games, clk)
	sched := scheduler.NewScheduler(cfg, scheduler.Deps{
		Fetcher:   provider,
		Matcher:   matcher.New(cat, teams.NewNormalizer(aliases)),
		Results:   results.NewService(db.Games, clk, invalidator),
		Pending:   db.Games,
		Aliases:   aliases,
		Lines:     cat,
		Standings: warmer,
	}, clk)

	// Start metrics HTTP server
	var metricsServer *http.Server
	if cfg.EnableMetrics {
		metricsServer = newMetricsServer(cfg.MetricsPort, db, redisCache)
		go func() {
			log.Info().Int("port", cfg.MetricsPort).Msg("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Publish pool statistics
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stat := db.Pool.Stat()
				metrics.UpdateDBConnectionStats(stat.AcquiredConns(), stat.IdleConns())
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}

		// Catch up on anything that finished while the worker was down
		if _, err := sched.ReconcilePending(ctx); err != nil {
			log.Error().Err(err).Msg("Initial reconciliation failed, continuing anyway...")
		}
	} else {
		log.Info().Msg("Scheduler disabled")
	}

	// Keep running until context is cancelled
	<-ctx.Done()
	log.Info().Msg("Received shutdown signal, gracefully shutting down...")

	if cfg.EnableScheduler {
		sched.Stop()
	}

	if metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// newMetricsServer serves /metrics and a /health check covering postgres and redis.
// redisCache may be nil.
func newMetricsServer(port int, db *repository.Database, redisCache *cache.Cache) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","component":"database"}`)
			return
		}

		redisStatus := "disabled"
		if redisCache != nil {
			redisStatus = "healthy"
			if err := redisCache.Health(r.Context()); err != nil {
				redisStatus = "unhealthy"
			}
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","redis":%q}`, redisStatus)
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
