// Package pipeline coordinates the per-document flow (acquire text,
// parse, export) and the reconciliation pass over an exported
// workbook. Documents are processed sequentially; one bad document
// never aborts a batch.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/export"
	"github.com/dpp-tools/invoice-audit/internal/extract"
	"github.com/dpp-tools/invoice-audit/internal/invoice"
	"github.com/dpp-tools/invoice-audit/internal/parse"
	"github.com/dpp-tools/invoice-audit/internal/repository"
)

// Processor runs text acquisition then parsing for one document, and
// drives the batch loop over a directory.
type Processor struct {
	Extractor extract.TextExtractor
	Parser    *parse.Parser
	Writer    *export.Writer
	Runs      repository.RunRepository
	Logger    *slog.Logger

	// ShouldContinue is checked between documents; an in-flight
	// document always completes. Nil means always continue.
	ShouldContinue func() bool
}

func NewProcessor(extractor extract.TextExtractor, parser *parse.Parser, writer *export.Writer, runs repository.RunRepository, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Extractor: extractor,
		Parser:    parser,
		Writer:    writer,
		Runs:      runs,
		Logger:    logger,
	}
}

func (p *Processor) keepGoing() bool {
	return p.ShouldContinue == nil || p.ShouldContinue()
}

// ProcessFile acquires text for one document and parses it into an
// invoice record.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*invoice.Record, error) {
	res, err := p.Extractor.Extract(ctx, path)
	if err != nil {
		p.Logger.Error("processor.extract.failed", "path", path, "err", err)
		return nil, err
	}
	p.Logger.Info("processor.extract.ok",
		"path", path, "method", res.Method, "pages", res.Pages, "chars", len(res.Text))

	rec := p.Parser.Parse(res.Text, path)
	p.Logger.Info("processor.parse.ok",
		"path", path,
		"vendor", rec.Vendor,
		"invoice_number", rec.InvoiceNumber,
		"line_items", len(rec.LineItems),
	)
	return rec, nil
}

// BatchSummary reports what a directory run did.
type BatchSummary struct {
	Processed int
	Skipped   int
	Failed    int
	Stopped   bool
}

// ProcessDirectory parses every supported file in dir, appends each
// invoice to the output workbook, and records per-document outcomes.
func (p *Processor) ProcessDirectory(ctx context.Context, dir, outputPath string) (*BatchSummary, error) {
	files, err := listDocuments(dir)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("processor.batch.start", "dir", dir, "files", len(files))

	var run *repository.Run
	if p.Runs != nil {
		if run, err = p.Runs.StartRun(ctx, dir, outputPath); err != nil {
			return nil, err
		}
		defer func() {
			if err := p.Runs.FinishRun(ctx, run.ID); err != nil {
				p.Logger.Warn("processor.batch.finish_run_failed", "err", err)
			}
		}()
	}

	summary := &BatchSummary{}
	for _, path := range files {
		if !p.keepGoing() {
			summary.Stopped = true
			p.Logger.Info("processor.batch.stopped", "remaining", len(files)-summary.Processed-summary.Skipped-summary.Failed)
			break
		}
		switch p.processOne(ctx, run, path) {
		case constants.DocStatusParsed:
			summary.Processed++
		case constants.DocStatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	p.Logger.Info("processor.batch.done",
		"processed", summary.Processed, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// processOne handles one document end to end. Errors are recorded and
// swallowed so the batch continues.
func (p *Processor) processOne(ctx context.Context, run *repository.Run, path string) constants.DocStatus {
	if p.Runs != nil {
		done, err := p.Runs.WasProcessed(ctx, path)
		if err != nil {
			p.Logger.Warn("processor.doc.lookup_failed", "path", path, "err", err)
		} else if done {
			p.Logger.Info("processor.doc.skipped", "path", path)
			return constants.DocStatusSkipped
		}
	}

	var doc *repository.DocumentRun
	if p.Runs != nil && run != nil {
		var err error
		if doc, err = p.Runs.StartDocument(ctx, run.ID, path); err != nil {
			p.Logger.Warn("processor.doc.record_failed", "path", path, "err", err)
		}
	}
	finish := func(status constants.DocStatus, vendor, invoiceNo, errMsg string) {
		if doc == nil {
			return
		}
		if err := p.Runs.FinishDocument(ctx, doc.ID, status, vendor, invoiceNo, errMsg); err != nil {
			p.Logger.Warn("processor.doc.record_failed", "path", path, "err", err)
		}
	}

	rec, err := p.ProcessFile(ctx, path)
	if err != nil {
		finish(constants.DocStatusFailed, "", "", err.Error())
		return constants.DocStatusFailed
	}

	if p.Writer != nil {
		if _, err := p.Writer.AppendInvoice(rec); err != nil {
			p.Logger.Error("processor.export.failed", "path", path, "err", err)
			finish(constants.DocStatusFailed, rec.Vendor, rec.InvoiceNumber, err.Error())
			return constants.DocStatusFailed
		}
	}
	finish(constants.DocStatusParsed, rec.Vendor, rec.InvoiceNumber, "")
	return constants.DocStatusParsed
}

func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := constants.NormalizeExt(filepath.Ext(e.Name()))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
