package repository

import (
	"context"
	"database/sql"
	"log/slog"
)

// schema is the DDL shared by the PostgreSQL and SQLite backends. The unique
// index on the dedup key makes re-ingestion idempotent at the store itself,
// closing the check-then-insert race window for concurrent uploads.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS logbook_files (
		id           TEXT PRIMARY KEY,
		profile_id   TEXT NOT NULL REFERENCES profiles(id),
		filename     TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_size    INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		blob_path    TEXT,
		status       TEXT NOT NULL,
		uploaded_at  TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_logbook_files_hash
		ON logbook_files(profile_id, content_hash)`,
	`CREATE TABLE IF NOT EXISTS procedure_records (
		id                  TEXT PRIMARY KEY,
		profile_id          TEXT NOT NULL REFERENCES profiles(id),
		ingest_seq          INTEGER NOT NULL,
		procedure_name      TEXT NOT NULL,
		laterality          TEXT NOT NULL,
		proc_date           TEXT NOT NULL,
		patient_identifier  TEXT NOT NULL,
		role_code           TEXT NOT NULL,
		hospital            TEXT NOT NULL,
		training_grade      TEXT NOT NULL,
		comment             TEXT,
		complications       TEXT NOT NULL DEFAULT '',
		complication_cause  TEXT,
		complication_action TEXT,
		linked_to_complication_log BOOLEAN NOT NULL DEFAULT FALSE,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_procedure_records_dedup
		ON procedure_records(profile_id, patient_identifier, laterality, procedure_name, proc_date)`,
	`CREATE TABLE IF NOT EXISTS complication_cases (
		id                 TEXT PRIMARY KEY,
		profile_id         TEXT NOT NULL REFERENCES profiles(id),
		record_id          TEXT REFERENCES procedure_records(id),
		patient_identifier TEXT NOT NULL,
		case_date          TEXT NOT NULL,
		laterality         TEXT NOT NULL,
		operation_type     TEXT NOT NULL,
		complications      TEXT NOT NULL,
		other_detail       TEXT,
		cause              TEXT,
		action_taken       TEXT,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_complication_cases_record
		ON complication_cases(record_id)`,
}

// Migrate applies the schema. Statements are idempotent, so this is safe to
// run on every startup.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration statement failed", "error", err)
			return err
		}
	}
	logger.Info("schema up to date")
	return nil
}
