package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	askOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "godeye_ask_outcomes_total",
			Help: "Total number of answered questions by terminal outcome.",
		},
		[]string{"kind"},
	)
	askAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "godeye_ask_attempts",
			Help:    "Attempts consumed by the generate-validate-repair loop per question.",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
	)
	askDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "godeye_ask_duration_seconds",
			Help:    "End-to-end latency of answering one question.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120},
		},
	)
	columnRepairsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godeye_column_repairs_total",
			Help: "Total number of invalid column references corrected by fuzzy match.",
		},
	)
	executionRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godeye_execution_retries_total",
			Help: "Total number of candidate statements discarded after an execution error.",
		},
	)
	generationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godeye_generation_failures_total",
			Help: "Total number of failed or empty generation model calls.",
		},
	)
	schemaFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "godeye_schema_fetch_seconds",
			Help:    "Latency of building a schema snapshot.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	slackDuplicateEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godeye_slack_duplicate_events_total",
			Help: "Total number of Slack events dropped as duplicates.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		askOutcomesTotal,
		askAttempts,
		askDurationSeconds,
		columnRepairsTotal,
		executionRetriesTotal,
		generationFailuresTotal,
		schemaFetchSeconds,
		slackDuplicateEventsTotal,
	)
}

func ObserveAsk(kind string, attempts int, elapsed time.Duration) {
	askOutcomesTotal.WithLabelValues(kind).Inc()
	if attempts > 0 {
		askAttempts.Observe(float64(attempts))
	}
	askDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementColumnRepair() {
	columnRepairsTotal.Inc()
}

func IncrementExecutionRetry() {
	executionRetriesTotal.Inc()
}

func IncrementGenerationFailure() {
	generationFailuresTotal.Inc()
}

func ObserveSchemaFetch(err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	schemaFetchSeconds.WithLabelValues(status).Observe(elapsed.Seconds())
}

func IncrementSlackDuplicate() {
	slackDuplicateEventsTotal.Inc()
}
