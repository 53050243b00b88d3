// Package store persists normalized records. Writes are batch-oriented with
// per-record failure tolerance: a record that cannot be persisted is counted
// and sampled, never fatal to the batch.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	// SQLite driver registration
	_ "github.com/mattn/go-sqlite3"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/mapping"
)

// FailureSampleLimit bounds the number of failures carried in a batch
// result, keeping report payloads small for large files.
const FailureSampleLimit = 5

// RecordFailure pairs a failed record with the reason it could not be
// persisted
type RecordFailure struct {
	Record mapping.NormalizedRecord `json:"record"`
	Error  string                   `json:"error"`
}

// BatchResult summarizes one storage pass. SavedCount + FailedCount always
// equals the number of records submitted.
type BatchResult struct {
	SavedCount  int             `json:"savedCount"`
	FailedCount int             `json:"failedCount"`
	Failures    []RecordFailure `json:"failures"`
}

// Writer persists valid normalized records
type Writer interface {
	Store(ctx context.Context, records []mapping.NormalizedRecord) (*BatchResult, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	address1   TEXT,
	city       TEXT,
	state      TEXT,
	zip        TEXT,
	auth_id    TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_name ON records(name);
`

const upsertQuery = `
INSERT INTO records (id, name, address1, city, state, zip, auth_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(auth_id) DO UPDATE SET
	name       = excluded.name,
	address1   = excluded.address1,
	city       = excluded.city,
	state      = excluded.state,
	zip        = excluded.zip,
	updated_at = excluded.updated_at
`

// SQLWriter persists records to a SQLite database, upserting by auth_id so
// re-processing the same file is idempotent
type SQLWriter struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLWriter opens (or creates) the database at the given DSN and ensures
// the schema exists
func NewSQLWriter(dsn string, logger *slog.Logger) (*SQLWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapFatal(err, "SQLWriter", "NewSQLWriter", "open database")
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapFatal(err, "SQLWriter", "NewSQLWriter", "apply schema")
	}

	return &SQLWriter{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database handle
func (w *SQLWriter) Close() error {
	return w.db.Close()
}

// Store upserts each record keyed by auth_id. Individual failures are
// recovered and aggregated; the batch always runs to completion.
func (w *SQLWriter) Store(ctx context.Context, records []mapping.NormalizedRecord) (*BatchResult, error) {
	result := &BatchResult{Failures: []RecordFailure{}}

	for _, record := range records {
		if err := w.upsert(ctx, record); err != nil {
			result.FailedCount++
			if len(result.Failures) < FailureSampleLimit {
				result.Failures = append(result.Failures, RecordFailure{
					Record: record,
					Error:  err.Error(),
				})
			}
			w.logger.Error("Failed to save record",
				"component", "SQLWriter",
				"auth_id", record.Field("auth_id"),
				"error", err)
			continue
		}
		result.SavedCount++
	}

	return result, nil
}

// upsert writes one record, creating it or updating the existing row with
// the same auth_id
func (w *SQLWriter) upsert(ctx context.Context, record mapping.NormalizedRecord) error {
	authID := record.Field("auth_id")
	if authID == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "SQLWriter", "upsert", "record has no auth_id")
	}

	now := w.now().UTC()
	_, err := w.db.ExecContext(ctx, upsertQuery,
		uuid.NewString(),
		record.Field("name"),
		record.Field("address1"),
		record.Field("city"),
		record.Field("state"),
		record.Field("zip"),
		authID,
		now,
		now,
	)
	if err != nil {
		return errors.WrapTransient(err, "SQLWriter", "upsert", "exec upsert for "+authID)
	}
	return nil
}

// Count returns the number of stored records
func (w *SQLWriter) Count(ctx context.Context) (int, error) {
	var count int
	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return 0, errors.WrapTransient(err, "SQLWriter", "Count", "query count")
	}
	return count, nil
}

// Lookup returns the stored field values for an auth_id
func (w *SQLWriter) Lookup(ctx context.Context, authID string) (mapping.NormalizedRecord, error) {
	row := w.db.QueryRowContext(ctx,
		"SELECT name, address1, city, state, zip FROM records WHERE auth_id = ?", authID)

	var name, address1, city, state, zip sql.NullString
	if err := row.Scan(&name, &address1, &city, &state, &zip); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.WrapInvalid(errors.ErrObjectNotFound, "SQLWriter", "Lookup",
				"auth_id "+authID)
		}
		return nil, errors.WrapTransient(err, "SQLWriter", "Lookup", "scan row")
	}

	record := mapping.NormalizedRecord{}
	set := func(field string, v sql.NullString) {
		if v.Valid {
			s := v.String
			record[field] = &s
		} else {
			record[field] = nil
		}
	}
	set("name", name)
	set("address1", address1)
	set("city", city)
	set("state", state)
	set("zip", zip)
	a := authID
	record["auth_id"] = &a

	return record, nil
}
