package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dpp-tools/invoice-audit/constants"
)

// Run is one batch invocation over an input directory.
type Run struct {
	ID         uuid.UUID
	InputDir   string
	OutputPath string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// DocumentRun is one document's outcome within a run.
type DocumentRun struct {
	ID         uuid.UUID
	RunID      uuid.UUID
	SourceFile string
	Status     constants.DocStatus
	Vendor     string
	InvoiceNo  string
	Error      string
	UpdatedAt  time.Time
}

type RunRepository interface {
	StartRun(ctx context.Context, inputDir, outputPath string) (*Run, error)
	FinishRun(ctx context.Context, runID uuid.UUID) error
	StartDocument(ctx context.Context, runID uuid.UUID, sourceFile string) (*DocumentRun, error)
	FinishDocument(ctx context.Context, docID uuid.UUID, status constants.DocStatus, vendor, invoiceNo, errMsg string) error
	WasProcessed(ctx context.Context, sourceFile string) (bool, error)
}

type runRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRunRepository(db *sql.DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func (r *runRepo) StartRun(ctx context.Context, inputDir, outputPath string) (*Run, error) {
	run := &Run{
		ID:         uuid.New(),
		InputDir:   inputDir,
		OutputPath: outputPath,
		StartedAt:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run (id, input_dir, output_path, started_at) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.InputDir, run.OutputPath, run.StartedAt)
	if err != nil {
		r.log.Error("run start failed", "input_dir", inputDir, "err", err)
		return nil, err
	}
	r.log.Info("run started", "run_id", run.ID, "input_dir", inputDir)
	return run, nil
}

func (r *runRepo) FinishRun(ctx context.Context, runID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE run SET finished_at = ? WHERE id = ?`,
		time.Now().UTC(), runID.String())
	if err != nil {
		r.log.Error("run finish failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Info("run finished", "run_id", runID)
	return nil
}

func (r *runRepo) StartDocument(ctx context.Context, runID uuid.UUID, sourceFile string) (*DocumentRun, error) {
	doc := &DocumentRun{
		ID:         uuid.New(),
		RunID:      runID,
		SourceFile: sourceFile,
		Status:     constants.DocStatusRunning,
		UpdatedAt:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_run (id, run_id, source_file, status, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID.String(), runID.String(), doc.SourceFile, string(doc.Status), doc.UpdatedAt)
	if err != nil {
		r.log.Error("document start failed", "source_file", sourceFile, "err", err)
		return nil, err
	}
	return doc, nil
}

func (r *runRepo) FinishDocument(ctx context.Context, docID uuid.UUID, status constants.DocStatus, vendor, invoiceNo, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE document_run SET status = ?, vendor = ?, invoice_no = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), vendor, invoiceNo, errMsg, time.Now().UTC(), docID.String())
	if err != nil {
		r.log.Error("document finish failed", "doc_id", docID, "err", err)
		return err
	}
	if status == constants.DocStatusFailed {
		r.log.Warn("document finished", "doc_id", docID, "status", status, "error", errMsg)
	} else {
		r.log.Info("document finished", "doc_id", docID, "status", status)
	}
	return nil
}

// WasProcessed reports whether sourceFile already parsed successfully
// in any previous run.
func (r *runRepo) WasProcessed(ctx context.Context, sourceFile string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM document_run WHERE source_file = ? AND status = ?`,
		sourceFile, string(constants.DocStatusParsed)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
