// Package pipeline sequences one file-processing run as a linear state
// machine: TypeDetect, Validate, Parse, Map, Store, then a terminal success
// or failure report. Any stage failure short-circuits directly to the
// failure report carrying the error kind and cause. Every external
// dependency is injected; the orchestrator holds no global state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
	"github.com/c360/fileingest/metric"
	"github.com/c360/fileingest/parser"
	"github.com/c360/fileingest/report"
	"github.com/c360/fileingest/source"
	"github.com/c360/fileingest/store"
)

// DefaultStageTimeout bounds a single stage when no budget is configured
const DefaultStageTimeout = 30 * time.Second

// Deps carries the orchestrator's injected collaborators
type Deps struct {
	Fetcher  source.Fetcher
	Registry mapping.Registry
	Writer   store.Writer
	Reporter report.Reporter
	Logger   *slog.Logger
	Metrics  *metric.Metrics

	// ParserFor resolves the parser for a detected file type. Defaults to
	// the parser package dispatch; tests substitute failing parsers here.
	ParserFor func(filetype.Type) (Parser, error)
}

// Result is the terminal outcome of one run
type Result struct {
	Status  string        // report.StatusSuccess or report.StatusFailure
	Context *StageContext // the accumulated envelope
	Err     error         // the stage error that routed to failure, nil on success
	// ReportErr carries a reporting failure. The run still completes; the
	// terminal status is merely degraded.
	ReportErr error
}

// Orchestrator drives the pipeline state machine. Each run is sequential;
// concurrent runs are independent instances sharing only the injected
// collaborators.
type Orchestrator struct {
	fetcher    source.Fetcher
	registry   mapping.Registry
	writer     store.Writer
	reporter   report.Reporter
	detector   *filetype.Detector
	normalizer *mapping.Normalizer
	parserFor  func(filetype.Type) (Parser, error)
	logger     *slog.Logger
	metrics    *metric.Metrics

	stageTimeout time.Duration
}

// NewOrchestrator creates an orchestrator with explicit dependencies
func NewOrchestrator(deps Deps, stageTimeout time.Duration) (*Orchestrator, error) {
	if deps.Fetcher == nil || deps.Registry == nil || deps.Writer == nil || deps.Reporter == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Orchestrator", "NewOrchestrator",
			"fetcher, registry, writer, and reporter are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ParserFor == nil {
		deps.ParserFor = defaultParserFor
	}
	if stageTimeout <= 0 {
		stageTimeout = DefaultStageTimeout
	}

	return &Orchestrator{
		fetcher:      deps.Fetcher,
		registry:     deps.Registry,
		writer:       deps.Writer,
		reporter:     deps.Reporter,
		detector:     filetype.NewDetector(),
		normalizer:   mapping.NewNormalizer(),
		parserFor:    deps.ParserFor,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		stageTimeout: stageTimeout,
	}, nil
}

// run holds per-run working state that does not belong in the envelope
type run struct {
	sc     *StageContext
	data   []byte
	cfg    *mapping.Config
	parser Parser
}

// Parser is the slice of the parser package the orchestrator needs
type Parser interface {
	Headers(data []byte) ([]string, error)
	Parse(data []byte) ([]*mapping.Record, error)
}

func defaultParserFor(t filetype.Type) (Parser, error) {
	p, err := parser.ForType(t)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Run executes the full state machine for one file. The returned Result is
// always terminal: either a success summary or a failure with its cause.
func (o *Orchestrator) Run(ctx context.Context, locator, mappingSource string) *Result {
	sc := NewStageContext(locator, mappingSource)
	logger := o.logger.With(
		"component", "Orchestrator",
		"locator", sc.Locator,
		"mapping_source", sc.MappingSource)

	logger.Info("Pipeline run started")

	r := &run{sc: sc}
	stages := []struct {
		state State
		fn    func(context.Context, *run) *errors.StageError
	}{
		{StateTypeDetect, o.typeDetect},
		{StateValidate, o.validate},
		{StateParse, o.parse},
		{StateMap, o.mapRecords},
		{StateStore, o.store},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, logger, sc,
				errors.NewStageError(stage.state.String(), errors.KindAborted, err))
		}
		if stageErr := o.runStage(ctx, stage.state, r, stage.fn); stageErr != nil {
			return o.fail(ctx, logger, sc, stageErr)
		}
	}

	return o.succeed(ctx, logger, sc)
}

// runStage executes one stage under its timeout budget and records timing
func (o *Orchestrator) runStage(
	ctx context.Context,
	state State,
	r *run,
	fn func(context.Context, *run) *errors.StageError,
) *errors.StageError {
	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	start := time.Now()
	stageErr := fn(stageCtx, r)
	elapsed := time.Since(start)

	if o.metrics != nil {
		o.metrics.ObserveStage(state.String(), elapsed)
		if stageErr != nil {
			o.metrics.RecordStageFailure(state.String(), stageErr.Kind.String())
		}
	}

	return stageErr
}

// typeDetect fetches the source object and classifies it
func (o *Orchestrator) typeDetect(ctx context.Context, r *run) *errors.StageError {
	data, err := o.fetcher.Fetch(ctx, r.sc.Locator)
	if err != nil {
		return errors.NewStageError(StateTypeDetect.String(), errors.KindSourceError, err)
	}
	r.data = data

	descriptor := o.detector.Detect(r.sc.Locator, data)
	r.sc.FileType = &descriptor

	if o.metrics != nil {
		o.metrics.RecordFileType(string(descriptor.Type))
	}
	return nil
}

// validate resolves the parser and checks header mappability before the full
// file is parsed. An unknown file type fails here, not in the detector.
func (o *Orchestrator) validate(ctx context.Context, r *run) *errors.StageError {
	p, err := o.parserFor(r.sc.FileType.Type)
	if err != nil {
		return errors.NewStageError(StateValidate.String(), errors.KindUnsupportedFileType, err)
	}
	r.parser = p

	headers, err := p.Headers(r.data)
	if err != nil {
		return errors.NewStageError(StateValidate.String(), errors.KindParseError, err)
	}

	r.cfg = o.registry.Get(ctx, r.sc.MappingSource)

	result := mapping.Validate(headers, r.cfg)
	r.sc.Validation = &result

	if !result.IsValid {
		return errors.NewStageError(StateValidate.String(), errors.KindValidationError,
			fmt.Errorf("%w: %v", errors.ErrValidationFailed, result.Errors))
	}
	return nil
}

// parse decodes the full file into generic records
func (o *Orchestrator) parse(_ context.Context, r *run) *errors.StageError {
	records, err := r.parser.Parse(r.data)
	if err != nil {
		return errors.NewStageError(StateParse.String(), errors.KindParseError, err)
	}
	r.sc.ParsedData = records
	return nil
}

// mapRecords normalizes parsed records against the mapping configuration
func (o *Orchestrator) mapRecords(_ context.Context, r *run) *errors.StageError {
	result := o.normalizer.Normalize(r.sc.ParsedData, r.cfg)
	r.sc.MappedData = &result

	if o.metrics != nil {
		o.metrics.RecordRecords("valid", result.Valid)
		o.metrics.RecordRecords("invalid", result.Invalid)
	}
	return nil
}

// store persists the valid records. Per-record failures are aggregated by
// the writer and never fail the stage; only a whole-batch error does.
func (o *Orchestrator) store(ctx context.Context, r *run) *errors.StageError {
	result, err := o.writer.Store(ctx, r.sc.MappedData.Records)
	if err != nil {
		return errors.NewStageError(StateStore.String(), errors.KindRecordPersistError, err)
	}
	r.sc.StorageResult = result

	if o.metrics != nil {
		o.metrics.RecordRecords("saved", result.SavedCount)
		o.metrics.RecordRecords("failed", result.FailedCount)
	}
	return nil
}

// succeed emits the success report and closes the run
func (o *Orchestrator) succeed(ctx context.Context, logger *slog.Logger, sc *StageContext) *Result {
	summary := report.Summary{
		TotalRecords:   sc.MappedData.Total,
		ValidRecords:   sc.MappedData.Valid,
		InvalidRecords: sc.MappedData.Invalid,
		SavedRecords:   sc.StorageResult.SavedCount,
		FailedRecords:  sc.StorageResult.FailedCount,
	}

	result := &Result{Status: report.StatusSuccess, Context: sc}

	if err := o.reporter.Success(ctx, o.fileRef(sc), summary); err != nil {
		// Reporting is non-fatal; the run completes with a degraded status
		logger.Error("Success report delivery failed", "error", err)
		result.ReportErr = err
	}

	if o.metrics != nil {
		o.metrics.RecordRun("success")
		o.metrics.RecordReport(report.StatusSuccess)
	}

	logger.Info("Pipeline run succeeded",
		"total", summary.TotalRecords,
		"valid", summary.ValidRecords,
		"invalid", summary.InvalidRecords,
		"saved", summary.SavedRecords,
		"failed", summary.FailedRecords)

	return result
}

// fail emits the failure report carrying the stage error's kind and cause
func (o *Orchestrator) fail(
	ctx context.Context,
	logger *slog.Logger,
	sc *StageContext,
	stageErr *errors.StageError,
) *Result {
	result := &Result{Status: report.StatusFailure, Context: sc, Err: stageErr}

	cause := ""
	if stageErr.Err != nil {
		cause = stageErr.Err.Error()
	}

	if err := o.reporter.Failure(ctx, o.fileRef(sc), stageErr.Kind, cause); err != nil {
		logger.Error("Failure report delivery failed", "error", err)
		result.ReportErr = err
	}

	if o.metrics != nil {
		o.metrics.RecordRun("failure")
		o.metrics.RecordReport(report.StatusFailure)
	}

	logger.Error("Pipeline run failed",
		"stage", stageErr.Stage,
		"kind", stageErr.Kind.String(),
		"error", stageErr.Err)

	return result
}

func (o *Orchestrator) fileRef(sc *StageContext) report.FileRef {
	return report.FileRef{Locator: sc.Locator, MappingSource: sc.MappingSource}
}
