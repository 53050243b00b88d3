package metric

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_CoreMetricsRegistered(t *testing.T) {
	r := NewRegistry()

	m := r.CoreMetrics()
	m.RecordRun("success")
	m.RecordFileType("csv")
	m.ObserveStage("Parse", 15*time.Millisecond)
	m.RecordRecords("saved", 3)
	m.RecordNATSHealth(true)

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	assert.True(t, names["fileingest_pipeline_runs_total"])
	assert.True(t, names["fileingest_pipeline_stage_duration_seconds"])
	assert.True(t, names["fileingest_records_total"])
	assert.True(t, names["fileingest_files_by_type_total"])
	assert.True(t, names["fileingest_nats_connected"])
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_requests_total",
		Help: "Total ingest requests",
	})
	require.NoError(t, r.Register("api", "ingest_requests_total", counter))

	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_requests_total_other",
		Help: "Other",
	})
	err := r.Register("api", "ingest_requests_total", other)
	assert.Error(t, err)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_requests_total",
		Help: "Total ingest requests",
	})
	require.NoError(t, r.Register("api", "ingest_requests_total", counter))

	assert.True(t, r.Unregister("api", "ingest_requests_total"))
	assert.False(t, r.Unregister("api", "ingest_requests_total"))
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.CoreMetrics().RecordRun("failure")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "fileingest_pipeline_runs_total")
}

func TestMetrics_RecordRecordsIgnoresNonPositive(t *testing.T) {
	r := NewRegistry()
	m := r.CoreMetrics()

	m.RecordRecords("failed", 0)
	m.RecordRecords("failed", -1)

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "fileingest_records_total" {
			t.Fatalf("expected no records_total series, got %v", f)
		}
	}
}
