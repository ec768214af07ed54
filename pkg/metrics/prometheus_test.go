package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "goshop-test")

	m.RecordOrderCreated("ok")
	m.RecordOrderCreated("ok")
	m.RecordOrderCreated("insufficient_stock")
	m.RecordCommit("conflict")
	m.RecordNotification("amqp", "error")
	m.IncIdempotencyHit("http")
	m.IncEventsConsumed("ack")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.orders.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("amqp", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duplicates.WithLabelValues("http")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.firstSeen.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.consumed.WithLabelValues("ack")))
}

func TestPrometheus_UseCaseExecutionStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "goshop-test")

	m.RecordUseCaseExecution("CreateOrder", true, 10*time.Millisecond)
	m.RecordUseCaseExecution("CreateOrder", false, 20*time.Millisecond)
	m.RecordUseCaseExecution("CreateOrder", false, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.useCases.WithLabelValues("CreateOrder", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.useCases.WithLabelValues("CreateOrder", "failure")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.useCaseTime))
}

func TestPrometheus_SeriesNamesAndServiceLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "goshop-test")
	m.RecordCommit("ok")

	expected := `
# HELP goshop_unit_of_work_commits_total Unit of work commits by outcome.
# TYPE goshop_unit_of_work_commits_total counter
goshop_unit_of_work_commits_total{outcome="ok",service="goshop-test"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "goshop_unit_of_work_commits_total"))
}

func TestPrometheus_RegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg, "goshop-test")

	assert.Panics(t, func() { NewPrometheusMetrics(reg, "goshop-test") })
}

func TestPrometheus_RegistersRuntimeCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg, "goshop-test")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["process_start_time_seconds"] || names["go_info"])
}
