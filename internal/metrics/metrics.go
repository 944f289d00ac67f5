// Package metrics holds the prometheus collectors for the ledger.
// Collectors register on the default registry and are served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "partycasino"

// HTTP

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route template and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route template.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// Ledger

var BalanceAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "balance_adjustments_total",
	Help:      "Balance adjustments by result (ok, insufficient, error).",
}, []string{"result"})

var TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions_total",
	Help:      "Transactions appended by type.",
}, []string{"type"})

var Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "compensations_total",
	Help:      "Rollbacks of partially applied operations by result (ok, failed).",
}, []string{"result"})

// Games

var GameTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "games",
	Name:      "transitions_total",
	Help:      "Game lifecycle transitions by resulting status.",
}, []string{"status"})

var PlayerJoinFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "games",
	Name:      "join_failures_total",
	Help:      "Players dropped from a game during creation because their bet failed.",
})

var Reprocessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "games",
	Name:      "reprocessed_total",
	Help:      "Reprocess requests by outcome (processed, already_processed).",
}, []string{"outcome"})

// Events

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Entity-changed events by type and result.",
}, []string{"type", "result"})

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
