// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nociq"

var (
	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status_code"},
	)

	// DBPoolConnections tracks database connection pool state.
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Number of database connections by state",
		},
		[]string{"state"},
	)

	// OutageVersionsAppended counts versions written to the store.
	OutageVersionsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outage",
			Name:      "versions_appended_total",
			Help:      "Number of outage versions appended, by operation",
		},
		[]string{"operation"},
	)

	// VersionConflicts counts rejected concurrent appends.
	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outage",
			Name:      "version_conflicts_total",
			Help:      "Number of concurrent appends rejected by the version store",
		},
	)

	// GeocodeLookups counts geocoding attempts by outcome.
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "lookups_total",
			Help:      "Number of geocoding lookups by outcome",
		},
		[]string{"outcome"},
	)
)
