package prometheus

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/srvkit/pkg/metrics"
	"github.com/marmos91/srvkit/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistererDisablesMetrics(t *testing.T) {
	assert.Nil(t, NewLifecycleMetrics(nil, "srvd"))
	assert.Nil(t, NewAdminMetrics(nil, "srvd"))
	assert.Nil(t, NewExportMetrics(nil, "srvd"))

	// Helpers must accept the nil interfaces.
	metrics.ObservePhase(nil, "main", time.Second, false)
	metrics.SetPhase(nil, "main")
	metrics.ObserveShutdownRequest(nil, "signal")
	metrics.ObserveRequest(nil, "/admin/ping", "GET", 200, time.Millisecond)
	metrics.ObserveExport(nil, "file", time.Millisecond, nil)
}

func TestLifecycleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetrics(reg, "srvd").(*lifecycleMetrics)

	m.ObservePhase("init", 10*time.Millisecond, false)
	m.ObservePhase("main", time.Second, true)
	m.SetPhase("main")
	m.ObserveShutdownRequest("signal")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.phaseFailures.WithLabelValues("init")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phaseFailures.WithLabelValues("main")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.currentPhase.WithLabelValues("main")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.currentPhase.WithLabelValues("init")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shutdownRequests.WithLabelValues("signal")))

	m.SetPhase("exit")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.currentPhase.WithLabelValues("main")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.currentPhase.WithLabelValues("exit")))
}

func TestAdminAndExportMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewAdminMetrics(reg, "srvd").(*adminMetrics)
	e := NewExportMetrics(reg, "srvd").(*exportMetrics)

	a.ObserveRequest("/admin/ping", "GET", 200, time.Millisecond)
	a.ObserveRequest("/admin/ping", "GET", 200, time.Millisecond)
	a.ObserveRequest("/admin/shutdown", "POST", 401, time.Millisecond)
	e.ObserveExport("file", time.Millisecond, nil)
	e.ObserveExport("s3", time.Millisecond, errors.New("denied"))

	assert.Equal(t, 2.0, testutil.ToFloat64(a.requests.WithLabelValues("/admin/ping", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.requests.WithLabelValues("/admin/shutdown", "POST", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.exports.WithLabelValues("file", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.exports.WithLabelValues("s3", "error")))
}

func TestStatsCollector(t *testing.T) {
	recv := stats.NewInMemory(nil)
	recv.Counter("srv/requests").Incr(5)
	recv.Gauge("queue depth").Set(3)
	h := recv.Histogram("lifecycle/main_ms")
	h.Observe(10)
	h.Observe(20)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewStatsCollector("srvd", recv.Snapshot)))

	expected := `
# HELP srvd_srv_requests_total Counter srv/requests
# TYPE srvd_srv_requests_total counter
srvd_srv_requests_total 5
# HELP srvd_queue_depth Gauge queue depth
# TYPE srvd_queue_depth gauge
srvd_queue_depth 3
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "srvd_srv_requests_total", "srvd_queue_depth")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "srvd_lifecycle_main_ms")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricName(t *testing.T) {
	c := NewStatsCollector("srvd", nil)
	assert.Equal(t, "srvd_http_admin_requests", c.metricName("http/admin/requests", ""))
	assert.Equal(t, "srvd_hits_total", c.metricName("hits", "_total"))
	assert.Equal(t, "srvd_hits_total", c.metricName("hits_total", "_total"))
	assert.Equal(t, "srvd__9lives", c.metricName("9lives", ""))
}

func TestNewRegistryHasRuntimeCollectors(t *testing.T) {
	families, err := NewRegistry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
