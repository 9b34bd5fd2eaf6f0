package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/event"
)

func TestPoolStatsCollector_ImplementsCollector(t *testing.T) {
	var _ prometheus.Collector = NewPoolStatsCollector("catalog")
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector("catalog")

	ch := make(chan *prometheus.Desc, 10)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 7)
	assert.Contains(t, strings.Join(names, " "), "db_pool_in_use_connections")
}

func TestPoolStatsCollector_CountsPoolEvents(t *testing.T) {
	c := NewPoolStatsCollector("catalog")
	monitor := c.Monitor()

	for _, typ := range []string{
		event.ConnectionCreated,
		event.ConnectionCreated,
		event.ConnectionCreated,
		event.GetSucceeded,
		event.GetSucceeded,
		event.ConnectionReturned,
		event.GetFailed,
		event.ConnectionClosed,
		event.PoolCleared,
		event.PoolReady,
	} {
		monitor.Event(&event.PoolEvent{Type: typ})
	}

	expected := `
# HELP db_pool_in_use_connections Number of connections currently checked out
# TYPE db_pool_in_use_connections gauge
db_pool_in_use_connections{service="catalog"} 1
# HELP db_pool_open_connections Number of open connections in the pool
# TYPE db_pool_open_connections gauge
db_pool_open_connections{service="catalog"} 2
# HELP db_pool_checkout_failed_total Total number of failed connection checkouts
# TYPE db_pool_checkout_failed_total counter
db_pool_checkout_failed_total{service="catalog"} 1
# HELP db_pool_cleared_total Total number of times the pool was cleared
# TYPE db_pool_cleared_total counter
db_pool_cleared_total{service="catalog"} 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"db_pool_in_use_connections",
		"db_pool_open_connections",
		"db_pool_checkout_failed_total",
		"db_pool_cleared_total",
	)
	assert.NoError(t, err)
	assert.Equal(t, 7, testutil.CollectAndCount(c))
}

func TestPoolStatsCollector_GaugesNeverNegative(t *testing.T) {
	c := NewPoolStatsCollector("catalog")
	c.Monitor().Event(&event.PoolEvent{Type: event.ConnectionClosed})
	c.Monitor().Event(&event.PoolEvent{Type: event.ConnectionReturned})

	expected := `
# HELP db_pool_open_connections Number of open connections in the pool
# TYPE db_pool_open_connections gauge
db_pool_open_connections{service="catalog"} 0
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "db_pool_open_connections"))
}
