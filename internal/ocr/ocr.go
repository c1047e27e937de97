// Package ocr acquires a plain-text transcript from an invoice document.
// PDFs are read from their digital text layer first; when that layer is too
// sparse to be usable, pages are rasterized and run through optical character
// recognition instead. Raster images always take the OCR path.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/common"
	"github.com/dpp-tools/invoice-audit/internal/extract"
)

// MinUsableTextLen is the sparse-text threshold: a digital layer shorter than
// this is treated as absent and the OCR fallback is attempted.
const MinUsableTextLen = 50

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// NewExtractorWithRunner is used by tests to stub the external binaries.
func NewExtractorWithRunner(cfg Config, r Runner, logger *slog.Logger) *Extractor {
	e := NewExtractor(cfg, logger)
	e.runner = r
	return e
}

// Extract returns a transcript for the document at path. Failure is terminal
// for the document: no usable text means the caller records an error and
// moves on, it does not retry.
func (e *Extractor) Extract(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting text extraction", "path", path, "ext", ext)

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Error("unsupported extension", "extension", ext)
		return extract.TextExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

// extractPDF tries the digital text layer, then falls back to rasterize+OCR
// when the layer is sparse. If OCR is unavailable the sparse-layer case is a
// hard failure rather than a silent empty transcript.
func (e *Extractor) extractPDF(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	res := extract.TextExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	text, pages, warns, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err == nil && len(strings.TrimSpace(text)) >= MinUsableTextLen {
		res.Text = strings.TrimSpace(text)
		res.Pages = pages
		res.Method = "pdf-text"
		return res, nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("pdftotext: %v", err))
	} else {
		res.Warnings = append(res.Warnings, "digital text layer too sparse")
	}

	text, pages, warns, err = e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		if IsBinaryMissing(err) {
			return res, common.NewAppError("OCR_UNAVAILABLE", "optical recognition unavailable", common.ErrNoText)
		}
		return res, common.WrapError(err, "pdf ocr")
	}
	if len(strings.TrimSpace(text)) < MinUsableTextLen {
		return res, common.NewAppError("TEXT_TOO_SPARSE", fmt.Sprintf("no usable text in %s", filepath.Base(path)), common.ErrNoText)
	}
	res.Text = strings.TrimSpace(text)
	res.Pages = pages
	res.Method = "pdf-ocr"
	return res, nil
}
