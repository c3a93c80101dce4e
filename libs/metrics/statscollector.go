// Package metrics holds prometheus collectors shared across services.
package metrics

import (
	"database/sql"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsGetter is satisfied by *sql.DB and *sqlx.DB
type StatsGetter interface {
	Stats() sql.DBStats
}

// StatsCollector exports sql.DBStats for one or more databases as prometheus metrics
type StatsCollector struct {
	mu      sync.Mutex
	getters map[string]StatsGetter

	maxOpenDesc           *prometheus.Desc
	openDesc              *prometheus.Desc
	inUseDesc             *prometheus.Desc
	idleDesc              *prometheus.Desc
	waitedForDesc         *prometheus.Desc
	blockedSecondsDesc    *prometheus.Desc
	closedMaxIdleDesc     *prometheus.Desc
	closedMaxLifetimeDesc *prometheus.Desc
}

// NewStatsCollector creates a collector labeled with dbName
func NewStatsCollector(dbName string, sg StatsGetter) *StatsCollector {
	return &StatsCollector{
		getters: map[string]StatsGetter{dbName: sg},
		maxOpenDesc: prometheus.NewDesc(
			"go_sql_stats_connections_max_open",
			"Maximum number of open connections to the database.",
			[]string{"db_name"}, nil,
		),
		openDesc: prometheus.NewDesc(
			"go_sql_stats_connections_open",
			"The number of established connections both in use and idle.",
			[]string{"db_name"}, nil,
		),
		inUseDesc: prometheus.NewDesc(
			"go_sql_stats_connections_in_use",
			"The number of connections currently in use.",
			[]string{"db_name"}, nil,
		),
		idleDesc: prometheus.NewDesc(
			"go_sql_stats_connections_idle",
			"The number of idle connections.",
			[]string{"db_name"}, nil,
		),
		waitedForDesc: prometheus.NewDesc(
			"go_sql_stats_connections_waited_for",
			"The total number of connections waited for.",
			[]string{"db_name"}, nil,
		),
		blockedSecondsDesc: prometheus.NewDesc(
			"go_sql_stats_connections_blocked_seconds",
			"The total time blocked waiting for a new connection.",
			[]string{"db_name"}, nil,
		),
		closedMaxIdleDesc: prometheus.NewDesc(
			"go_sql_stats_connections_closed_max_idle",
			"The total number of connections closed due to SetMaxIdleConns.",
			[]string{"db_name"}, nil,
		),
		closedMaxLifetimeDesc: prometheus.NewDesc(
			"go_sql_stats_connections_closed_max_lifetime",
			"The total number of connections closed due to SetConnMaxLifetime.",
			[]string{"db_name"}, nil,
		),
	}
}

// AddStatsGetter adds another database to an existing collector
func (c *StatsCollector) AddStatsGetter(dbName string, sg StatsGetter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getters[dbName] = sg
}

// Describe implements the prometheus.Collector interface
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxOpenDesc
	ch <- c.openDesc
	ch <- c.inUseDesc
	ch <- c.idleDesc
	ch <- c.waitedForDesc
	ch <- c.blockedSecondsDesc
	ch <- c.closedMaxIdleDesc
	ch <- c.closedMaxLifetimeDesc
}

// Collect implements the prometheus.Collector interface
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for dbName, sg := range c.getters {
		stats := sg.Stats()

		ch <- prometheus.MustNewConstMetric(
			c.maxOpenDesc, prometheus.GaugeValue, float64(stats.MaxOpenConnections), dbName)
		ch <- prometheus.MustNewConstMetric(
			c.openDesc, prometheus.GaugeValue, float64(stats.OpenConnections), dbName)
		ch <- prometheus.MustNewConstMetric(
			c.inUseDesc, prometheus.GaugeValue, float64(stats.InUse), dbName)
		ch <- prometheus.MustNewConstMetric(
			c.idleDesc, prometheus.GaugeValue, float64(stats.Idle), dbName)
		ch <- prometheus.MustNewConstMetric(
			c.waitedForDesc, prometheus.CounterValue, float64(stats.WaitCount), dbName)
		ch <- prometheus.MustNewConstMetric(
			c.blockedSecondsDesc, prometheus.CounterValue, stats.WaitDuration.Seconds(), dbName)
		ch <- prometheus.MustNewConstMetric(
			c.closedMaxIdleDesc, prometheus.CounterValue, float64(stats.MaxIdleClosed), dbName)
		ch <- prometheus.MustNewConstMetric(
			c.closedMaxLifetimeDesc, prometheus.CounterValue, float64(stats.MaxLifetimeClosed), dbName)
	}
}
