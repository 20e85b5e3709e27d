package metrics

import "github.com/jackc/pgx/v5/pgxpool"

// RecordDBPoolMetrics snapshots the pgx pool state into the connection
// gauges. Called on a ticker from the app; only meaningful under the
// postgres storage driver.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	stat := pool.Stat()

	DBPoolConnections.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	DBPoolConnections.WithLabelValues("constructing").Set(float64(stat.ConstructingConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
}
