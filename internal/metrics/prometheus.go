package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the pick'em engine

var (
	// Provider metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_provider_calls_total",
			Help: "Total number of external results provider calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickem_provider_call_duration_seconds",
			Help:    "Duration of provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickem_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickem_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_cache_hits_total",
			Help: "Total number of standings cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_cache_misses_total",
			Help: "Total number of standings cache misses",
		},
	)

	// Pick submission metrics
	PicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_picks_total",
			Help: "Pick submission items by outcome and rejection reason",
		},
		[]string{"kind", "outcome", "reason"},
	)

	// Result entry metrics
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_results_total",
			Help: "Result entries by outcome",
		},
		[]string{"outcome", "reason"},
	)

	PushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_result_pushes_total",
			Help: "Results that landed exactly on the line",
		},
	)

	// Matcher metrics
	MatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_match_outcomes_total",
			Help: "External results by match outcome",
		},
		[]string{"outcome"},
	)

	// Normalizer metrics
	NormalizerPassThroughTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_normalizer_pass_through_total",
			Help: "Team names returned unchanged because no alias or canonical name matched",
		},
	)

	AliasCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickem_alias_cache_size",
			Help: "Number of aliases held in memory",
		},
	)

	AliasRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_alias_refreshes_total",
			Help: "Alias cache reloads by status",
		},
		[]string{"status"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickem_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	GamesSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_games_synced_total",
			Help: "Games created or updated by line sync",
		},
		[]string{"kind"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickem_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)
)

// RecordAPICall records a provider call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordPickAccepted records an accepted pick
func RecordPickAccepted(kind string) {
	PicksTotal.WithLabelValues(kind, "accepted", "").Inc()
}

// RecordPickRejected records a rejected pick with its reason
func RecordPickRejected(kind, reason string) {
	PicksTotal.WithLabelValues(kind, "rejected", reason).Inc()
}

// RecordResultEntered records a stored result
func RecordResultEntered(isPush bool) {
	ResultsTotal.WithLabelValues("entered", "").Inc()
	if isPush {
		PushesTotal.Inc()
	}
}

// RecordResultFailed records a result item that was not stored
func RecordResultFailed(reason string) {
	ResultsTotal.WithLabelValues("failed", reason).Inc()
}

// RecordMatchOutcomes records one matcher run
func RecordMatchOutcomes(matched, unmatched, alreadyResolved, incomplete int) {
	MatchOutcomesTotal.WithLabelValues("matched").Add(float64(matched))
	MatchOutcomesTotal.WithLabelValues("unmatched").Add(float64(unmatched))
	MatchOutcomesTotal.WithLabelValues("already_resolved").Add(float64(alreadyResolved))
	MatchOutcomesTotal.WithLabelValues("incomplete").Add(float64(incomplete))
}

// RecordPassThrough records an unrecognized team name
func RecordPassThrough() {
	NormalizerPassThroughTotal.Inc()
}

// RecordAliasRefresh records an alias cache reload
func RecordAliasRefresh(status string, size int) {
	AliasRefreshesTotal.WithLabelValues(status).Inc()
	if status == "success" {
		AliasCacheSize.Set(float64(size))
	}
}

// RecordGamesSynced records games touched by a line sync
func RecordGamesSynced(kind string, count int) {
	GamesSynced.WithLabelValues(kind).Add(float64(count))
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
