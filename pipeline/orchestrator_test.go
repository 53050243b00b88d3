package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/mapping"
	"github.com/c360/fileingest/report"
	"github.com/c360/fileingest/source"
	"github.com/c360/fileingest/store"
)

type fakeWriter struct {
	called  bool
	batches [][]mapping.NormalizedRecord
	err     error
}

func (w *fakeWriter) Store(_ context.Context, records []mapping.NormalizedRecord) (*store.BatchResult, error) {
	w.called = true
	if w.err != nil {
		return nil, w.err
	}
	w.batches = append(w.batches, records)
	return &store.BatchResult{SavedCount: len(records), Failures: []store.RecordFailure{}}, nil
}

type fakeReporter struct {
	successes []report.Summary
	failures  []errors.Kind
	causes    []string
	err       error
}

func (r *fakeReporter) Success(_ context.Context, _ report.FileRef, summary report.Summary) error {
	if r.err != nil {
		return r.err
	}
	r.successes = append(r.successes, summary)
	return nil
}

func (r *fakeReporter) Failure(_ context.Context, _ report.FileRef, kind errors.Kind, cause string) error {
	if r.err != nil {
		return r.err
	}
	r.failures = append(r.failures, kind)
	r.causes = append(r.causes, cause)
	return nil
}

type harness struct {
	fetcher  *source.MemoryFetcher
	writer   *fakeWriter
	reporter *fakeReporter
	orch     *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		fetcher:  source.NewMemoryFetcher(),
		writer:   &fakeWriter{},
		reporter: &fakeReporter{},
	}

	orch, err := NewOrchestrator(Deps{
		Fetcher:  h.fetcher,
		Registry: mapping.NewMemoryRegistry(nil),
		Writer:   h.writer,
		Reporter: h.reporter,
	}, 0)
	require.NoError(t, err)

	h.orch = orch
	return h
}

const defaultMappableCSV = "full_name,street_address,city,state,zipcode,auth_id\n" +
	"Jane Doe,1 Main St,Austin,TX,78701,A-1\n"

func TestRun_CSVWithDefaultMapping(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Put("uploads/batch.csv", []byte(defaultMappableCSV))

	result := h.orch.Run(context.Background(), "uploads/batch.csv", "")

	require.Equal(t, report.StatusSuccess, result.Status)
	require.NoError(t, result.Err)

	sc := result.Context
	require.NotNil(t, sc.FileType)
	assert.Equal(t, "csv", string(sc.FileType.Type))
	require.NotNil(t, sc.Validation)
	assert.True(t, sc.Validation.IsValid)
	assert.Len(t, sc.ParsedData, 1)

	require.NotNil(t, sc.MappedData)
	assert.Equal(t, 1, sc.MappedData.Valid)
	assert.Equal(t, 0, sc.MappedData.Invalid)

	// Every target field is populated
	normalized := sc.MappedData.Records[0]
	for _, field := range []string{"name", "address1", "city", "state", "zip", "auth_id"} {
		assert.True(t, normalized.HasValue(field), "field %s should be populated", field)
	}
	assert.Equal(t, "Jane Doe", normalized.Field("name"))
	assert.Equal(t, "A-1", normalized.Field("auth_id"))

	require.NotNil(t, sc.StorageResult)
	assert.Equal(t, 1, sc.StorageResult.SavedCount)

	require.Len(t, h.reporter.successes, 1)
	assert.Equal(t, 1, h.reporter.successes[0].SavedRecords)
}

func TestRun_MissingRequiredColumnFailsValidation(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Put("uploads/batch.csv", []byte(
		"full_name,street_address,city,state,zipcode\nJane Doe,1 Main St,Austin,TX,78701\n"))

	result := h.orch.Run(context.Background(), "uploads/batch.csv", "")

	require.Equal(t, report.StatusFailure, result.Status)
	require.Error(t, result.Err)
	assert.Equal(t, errors.KindValidationError, errors.KindOf(result.Err))

	// Validation short-circuits: nothing parsed, mapped, or stored
	assert.Nil(t, result.Context.ParsedData)
	assert.Nil(t, result.Context.MappedData)
	assert.False(t, h.writer.called)

	require.Len(t, h.reporter.failures, 1)
	assert.Equal(t, errors.KindValidationError, h.reporter.failures[0])
	assert.Contains(t, h.reporter.causes[0], "auth_id")
}

func TestRun_JSONWithInvalidRecordFiltered(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Put("uploads/batch.json", []byte(`[
		{"name": "Acme", "auth_id": "A-1"},
		{"name": "", "auth_id": "A-2"},
		{"name": "Globex", "auth_id": "A-3"}
	]`))

	result := h.orch.Run(context.Background(), "uploads/batch.json", "")

	require.Equal(t, report.StatusSuccess, result.Status)

	sc := result.Context
	assert.Equal(t, 3, sc.MappedData.Total)
	assert.Equal(t, 2, sc.MappedData.Valid)
	assert.Equal(t, 1, sc.MappedData.Invalid)

	// Only the valid records reach storage
	require.Len(t, h.writer.batches, 1)
	assert.Len(t, h.writer.batches[0], 2)
	assert.Equal(t, 2, sc.StorageResult.SavedCount)
	assert.Equal(t, 0, sc.StorageResult.FailedCount)
}

func TestRun_UnknownFileType(t *testing.T) {
	h := newHarness(t)
	// Mappable CSV content under an unrecognized extension still fails:
	// the extension is authoritative and the content is never sniffed
	h.fetcher.Put("uploads/data.dat", []byte(defaultMappableCSV))

	result := h.orch.Run(context.Background(), "uploads/data.dat", "")

	require.Equal(t, report.StatusFailure, result.Status)
	assert.Equal(t, "unknown", string(result.Context.FileType.Type))
	assert.Equal(t, errors.KindUnsupportedFileType, errors.KindOf(result.Err))

	assert.False(t, h.writer.called)
	require.Len(t, h.reporter.failures, 1)
	assert.Equal(t, errors.KindUnsupportedFileType, h.reporter.failures[0])
}

func TestRun_SourceFetchFailure(t *testing.T) {
	h := newHarness(t)

	result := h.orch.Run(context.Background(), "uploads/absent.csv", "")

	require.Equal(t, report.StatusFailure, result.Status)
	assert.Equal(t, errors.KindSourceError, errors.KindOf(result.Err))
	assert.False(t, h.writer.called)
}

func TestRun_StoreFailure(t *testing.T) {
	h := newHarness(t)
	h.writer.err = fmt.Errorf("database is locked")
	h.fetcher.Put("uploads/batch.csv", []byte(defaultMappableCSV))

	result := h.orch.Run(context.Background(), "uploads/batch.csv", "")

	require.Equal(t, report.StatusFailure, result.Status)
	assert.Equal(t, errors.KindRecordPersistError, errors.KindOf(result.Err))
	require.Len(t, h.reporter.failures, 1)
	assert.Equal(t, errors.KindRecordPersistError, h.reporter.failures[0])
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Put("uploads/batch.csv", []byte(defaultMappableCSV))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := h.orch.Run(ctx, "uploads/batch.csv", "")

	require.Equal(t, report.StatusFailure, result.Status)
	assert.Equal(t, errors.KindAborted, errors.KindOf(result.Err))
	assert.False(t, h.writer.called)
}

func TestRun_ReportFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.reporter.err = fmt.Errorf("broker unreachable")
	h.fetcher.Put("uploads/batch.csv", []byte(defaultMappableCSV))

	result := h.orch.Run(context.Background(), "uploads/batch.csv", "")

	// The run still completes; the terminal status is degraded
	assert.Equal(t, report.StatusSuccess, result.Status)
	assert.NoError(t, result.Err)
	assert.Error(t, result.ReportErr)
	assert.Equal(t, 1, result.Context.StorageResult.SavedCount)
}

func TestRun_EmptyMappingSourceUsesDefault(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Put("uploads/batch.csv", []byte(defaultMappableCSV))

	result := h.orch.Run(context.Background(), "uploads/batch.csv", "")
	assert.Equal(t, mapping.DefaultName, result.Context.MappingSource)
}

func TestNewOrchestrator_RequiresDeps(t *testing.T) {
	_, err := NewOrchestrator(Deps{}, 0)
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateTypeDetect, "TypeDetect"},
		{StateValidate, "Validate"},
		{StateParse, "Parse"},
		{StateMap, "Map"},
		{StateStore, "Store"},
		{StateReportSuccess, "ReportSuccess"},
		{StateReportFailure, "ReportFailure"},
		{StateDone, "Done"},
		{State(42), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
