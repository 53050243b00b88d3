// Package errors provides standardized error handling for the file ingestion
// pipeline. It defines the stage error taxonomy that drives failure routing in
// the orchestrator, plus classification helpers for consistent error wrapping
// across packages.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the pipeline error taxonomy. The orchestrator's failure
// routing and the failure report payload are driven by these values.
type Kind int

const (
	// KindUnknown is the zero value for unclassified errors
	KindUnknown Kind = iota
	// KindUnsupportedFileType indicates the detector/parser cannot handle the file
	KindUnsupportedFileType
	// KindParseError indicates malformed file content; parsing is atomic
	KindParseError
	// KindValidationError indicates required target fields cannot be mapped from headers
	KindValidationError
	// KindRecordPersistError indicates a single record failed to persist (recovered locally)
	KindRecordPersistError
	// KindRegistryError indicates a mapping configuration fetch failed (degrades to default)
	KindRegistryError
	// KindSourceError indicates the source object could not be fetched
	KindSourceError
	// KindReportingError indicates the terminal notification failed to send (non-fatal)
	KindReportingError
	// KindAborted indicates the run was cancelled or timed out between stages
	KindAborted
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindUnsupportedFileType:
		return "UnsupportedFileType"
	case KindParseError:
		return "ParseError"
	case KindValidationError:
		return "ValidationError"
	case KindRecordPersistError:
		return "RecordPersistError"
	case KindRegistryError:
		return "RegistryError"
	case KindSourceError:
		return "SourceError"
	case KindReportingError:
		return "ReportingError"
	case KindAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// StageError is a whole-file failure raised by a pipeline stage. It carries
// the stage name, the taxonomy kind, and the underlying cause so the failure
// reporter can preserve both for operator visibility.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

// Error implements the error interface
func (se *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", se.Stage, se.Kind, se.Err)
}

// Unwrap returns the underlying error
func (se *StageError) Unwrap() error {
	return se.Err
}

// NewStageError creates a stage error with the given taxonomy kind
func NewStageError(stage string, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf extracts the taxonomy kind from an error chain. Errors that are not
// stage errors report KindUnknown.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// File handling errors
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file contains no data")
	ErrParsingFailed       = errors.New("parsing failed")
	ErrInvalidData         = errors.New("invalid data format")

	// Mapping and validation errors
	ErrMappingNotFound   = errors.New("mapping configuration not found")
	ErrValidationFailed  = errors.New("required fields cannot be mapped")
	ErrRegistryUnhealthy = errors.New("mapping registry unavailable")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrRecordConflict     = errors.New("record conflict")

	// Source retrieval errors
	ErrObjectNotFound = errors.New("source object not found")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrShuttingDown   = errors.New("component is shutting down")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrRegistryUnhealthy) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
		"busy",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidData) ||
		errors.Is(err, ErrParsingFailed) ||
		errors.Is(err, ErrUnsupportedFileType) ||
		errors.Is(err, ErrValidationFailed)
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}

	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	// Default to transient for unknown errors to allow retry
	return ErrorTransient
}

// newClassified creates a new classified error
// This is an internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}
