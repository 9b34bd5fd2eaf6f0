package database

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/event"
)

// PoolStatsCollector exports MongoDB connection pool statistics. The driver
// exposes no pool snapshot, so counts are accumulated from pool events
// delivered through Monitor.
type PoolStatsCollector struct {
	service string

	created       atomic.Int64
	closed        atomic.Int64
	checkedOut    atomic.Int64
	checkedIn     atomic.Int64
	checkoutFails atomic.Int64
	cleared       atomic.Int64

	openConns      *prometheus.Desc
	inUseConns     *prometheus.Desc
	createdTotal   *prometheus.Desc
	closedTotal    *prometheus.Desc
	checkoutTotal  *prometheus.Desc
	checkoutFailed *prometheus.Desc
	clearedTotal   *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for one service's pool.
func NewPoolStatsCollector(service string) *PoolStatsCollector {
	labels := []string{"service"}
	return &PoolStatsCollector{
		service: service,
		openConns: prometheus.NewDesc(
			"db_pool_open_connections",
			"Number of open connections in the pool",
			labels, nil,
		),
		inUseConns: prometheus.NewDesc(
			"db_pool_in_use_connections",
			"Number of connections currently checked out",
			labels, nil,
		),
		createdTotal: prometheus.NewDesc(
			"db_pool_connections_created_total",
			"Total number of connections created",
			labels, nil,
		),
		closedTotal: prometheus.NewDesc(
			"db_pool_connections_closed_total",
			"Total number of connections closed",
			labels, nil,
		),
		checkoutTotal: prometheus.NewDesc(
			"db_pool_checkout_total",
			"Total number of successful connection checkouts",
			labels, nil,
		),
		checkoutFailed: prometheus.NewDesc(
			"db_pool_checkout_failed_total",
			"Total number of failed connection checkouts",
			labels, nil,
		),
		clearedTotal: prometheus.NewDesc(
			"db_pool_cleared_total",
			"Total number of times the pool was cleared",
			labels, nil,
		),
	}
}

// Monitor returns the driver hook that feeds the collector.
func (c *PoolStatsCollector) Monitor() *event.PoolMonitor {
	return &event.PoolMonitor{Event: c.observe}
}

func (c *PoolStatsCollector) observe(evt *event.PoolEvent) {
	switch evt.Type {
	case event.ConnectionCreated:
		c.created.Add(1)
	case event.ConnectionClosed:
		c.closed.Add(1)
	case event.GetSucceeded:
		c.checkedOut.Add(1)
	case event.ConnectionReturned:
		c.checkedIn.Add(1)
	case event.GetFailed:
		c.checkoutFails.Add(1)
	case event.PoolCleared:
		c.cleared.Add(1)
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openConns
	ch <- c.inUseConns
	ch <- c.createdTotal
	ch <- c.closedTotal
	ch <- c.checkoutTotal
	ch <- c.checkoutFailed
	ch <- c.clearedTotal
}

// Collect sends the current counts as metrics.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	created, closed := c.created.Load(), c.closed.Load()
	out, in := c.checkedOut.Load(), c.checkedIn.Load()

	ch <- prometheus.MustNewConstMetric(c.openConns, prometheus.GaugeValue, float64(max(created-closed, 0)), c.service)
	ch <- prometheus.MustNewConstMetric(c.inUseConns, prometheus.GaugeValue, float64(max(out-in, 0)), c.service)
	ch <- prometheus.MustNewConstMetric(c.createdTotal, prometheus.CounterValue, float64(created), c.service)
	ch <- prometheus.MustNewConstMetric(c.closedTotal, prometheus.CounterValue, float64(closed), c.service)
	ch <- prometheus.MustNewConstMetric(c.checkoutTotal, prometheus.CounterValue, float64(out), c.service)
	ch <- prometheus.MustNewConstMetric(c.checkoutFailed, prometheus.CounterValue, float64(c.checkoutFails.Load()), c.service)
	ch <- prometheus.MustNewConstMetric(c.clearedTotal, prometheus.CounterValue, float64(c.cleared.Load()), c.service)
}
