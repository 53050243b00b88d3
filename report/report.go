// Package report emits the terminal event for a pipeline run. Every run
// ends in exactly one of two shapes: a success summary or a failure with
// its cause. Delivery failures are non-fatal; the pipeline completes with a
// degraded status instead of crashing.
package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360/fileingest/errors"
)

// Terminal statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// FileRef identifies the file a report is about
type FileRef struct {
	Locator       string `json:"locator"`
	MappingSource string `json:"mappingSource"`
}

// Summary carries the aggregate statistics of a successful run
type Summary struct {
	TotalRecords   int `json:"totalRecords"`
	ValidRecords   int `json:"validRecords"`
	InvalidRecords int `json:"invalidRecords"`
	SavedRecords   int `json:"savedRecords"`
	FailedRecords  int `json:"failedRecords"`
}

// SuccessEvent is the terminal payload of a completed run
type SuccessEvent struct {
	Status     string    `json:"status"`
	DeliveryID string    `json:"deliveryId"`
	File       FileRef   `json:"file"`
	Summary    Summary   `json:"summary"`
	Timestamp  time.Time `json:"timestamp"`
}

// FailureEvent is the terminal payload of a failed run. Error carries the
// taxonomy kind; Cause the human-readable reason.
type FailureEvent struct {
	Status     string    `json:"status"`
	DeliveryID string    `json:"deliveryId"`
	File       FileRef   `json:"file"`
	Error      string    `json:"error"`
	Cause      string    `json:"cause"`
	Timestamp  time.Time `json:"timestamp"`
}

// Reporter emits terminal events for pipeline runs
type Reporter interface {
	Success(ctx context.Context, file FileRef, summary Summary) error
	Failure(ctx context.Context, file FileRef, kind errors.Kind, cause string) error
}

// Publisher is the messaging surface the NATS reporter needs. The
// natsclient Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Config holds the subjects terminal events are published on
type Config struct {
	SuccessSubject string `json:"success_subject" yaml:"success_subject"`
	FailureSubject string `json:"failure_subject" yaml:"failure_subject"`
}

// DefaultConfig returns the default report subjects
func DefaultConfig() Config {
	return Config{
		SuccessSubject: "ingest.report.success",
		FailureSubject: "ingest.report.failure",
	}
}

// NATSReporter publishes terminal events to NATS subjects. Each event
// carries a fresh delivery id so downstream consumers can deduplicate
// at-least-once deliveries.
type NATSReporter struct {
	publisher Publisher
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewNATSReporter creates a reporter publishing on the configured subjects
func NewNATSReporter(publisher Publisher, config Config, logger *slog.Logger) *NATSReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SuccessSubject == "" || config.FailureSubject == "" {
		defaults := DefaultConfig()
		if config.SuccessSubject == "" {
			config.SuccessSubject = defaults.SuccessSubject
		}
		if config.FailureSubject == "" {
			config.FailureSubject = defaults.FailureSubject
		}
	}
	return &NATSReporter{
		publisher: publisher,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Success publishes a success summary
func (r *NATSReporter) Success(ctx context.Context, file FileRef, summary Summary) error {
	event := SuccessEvent{
		Status:     StatusSuccess,
		DeliveryID: uuid.NewString(),
		File:       file,
		Summary:    summary,
		Timestamp:  r.now().UTC(),
	}

	if err := r.publish(ctx, r.config.SuccessSubject, event); err != nil {
		return errors.NewStageError("ReportSuccess", errors.KindReportingError, err)
	}

	r.logger.Info("Success report sent",
		"component", "NATSReporter",
		"locator", file.Locator,
		"delivery_id", event.DeliveryID,
		"saved", summary.SavedRecords)
	return nil
}

// Failure publishes a failure report
func (r *NATSReporter) Failure(ctx context.Context, file FileRef, kind errors.Kind, cause string) error {
	event := FailureEvent{
		Status:     StatusFailure,
		DeliveryID: uuid.NewString(),
		File:       file,
		Error:      kind.String(),
		Cause:      cause,
		Timestamp:  r.now().UTC(),
	}

	if err := r.publish(ctx, r.config.FailureSubject, event); err != nil {
		return errors.NewStageError("ReportFailure", errors.KindReportingError, err)
	}

	r.logger.Info("Failure report sent",
		"component", "NATSReporter",
		"locator", file.Locator,
		"delivery_id", event.DeliveryID,
		"kind", event.Error)
	return nil
}

// publish marshals and sends one event
func (r *NATSReporter) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WrapInvalid(err, "NATSReporter", "publish", "marshal event")
	}
	if err := r.publisher.Publish(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "NATSReporter", "publish", "publish to "+subject)
	}
	return nil
}

// LogReporter writes terminal events to the log only. Used when no
// messaging backend is configured.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a log-only reporter
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// Success logs a success summary
func (r *LogReporter) Success(_ context.Context, file FileRef, summary Summary) error {
	r.logger.Info("File processing succeeded",
		"component", "LogReporter",
		"locator", file.Locator,
		"mapping_source", file.MappingSource,
		"total", summary.TotalRecords,
		"valid", summary.ValidRecords,
		"invalid", summary.InvalidRecords,
		"saved", summary.SavedRecords,
		"failed", summary.FailedRecords)
	return nil
}

// Failure logs a failure report
func (r *LogReporter) Failure(_ context.Context, file FileRef, kind errors.Kind, cause string) error {
	r.logger.Error("File processing failed",
		"component", "LogReporter",
		"locator", file.Locator,
		"mapping_source", file.MappingSource,
		"kind", kind.String(),
		"cause", cause)
	return nil
}
