// Package repository persists batch-run bookkeeping in a local sqlite
// database so re-runs can skip documents that already processed cleanly.
package repository

import (
	"context"
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS run (
	id          TEXT PRIMARY KEY,
	input_dir   TEXT NOT NULL,
	output_path TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_run (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES run(id),
	source_file TEXT NOT NULL,
	status      TEXT NOT NULL,
	vendor      TEXT NOT NULL DEFAULT '',
	invoice_no  TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_run_source ON document_run(source_file, status);
`

// Open opens (creating if needed) the sqlite database at path and
// applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening database", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, err
	}
	// sqlite allows one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.Error("failed to apply schema", "error", err)
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		logger.Warn("failed to enable WAL", "error", err)
	}
	return db, nil
}

// Close closes the database, logging rather than returning the error.
func Close(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
