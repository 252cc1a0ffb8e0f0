package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuery(KindIdu, ResultSuccess, 120*time.Millisecond, 42)
	m.ObserveQuery(KindIdu, ResultSuccess, 80*time.Millisecond, 3)
	m.ObserveQuery(KindSiren, ResultError, time.Second, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(KindIdu, ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(KindSiren, ResultError)))

	// failed queries record no latency
	assert.Equal(t, 1, testutil.CollectAndCount(m.QueryDuration))
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("POST", "/api/v1/parcels/search", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/parcels/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestIncrementExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementExport("xlsx")
	m.IncrementExport("xlsx")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("xlsx")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveQuery(KindIdu, ResultSuccess, time.Second, 1)
		m.IncrementExport("json")
		m.ObserveRequest("GET", "/health", 200, time.Millisecond)
	})
}
