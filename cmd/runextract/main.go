// runextract parses one invoice file and prints the resulting record
// as JSON. Useful for checking what the cascade resolves on a new
// vendor layout before running a full batch.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dpp-tools/invoice-audit/internal/common"
	"github.com/dpp-tools/invoice-audit/internal/ocr"
	"github.com/dpp-tools/invoice-audit/internal/parse"
	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <invoice-file>")
		os.Exit(2)
	}
	path := os.Args[1]

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load .env", "error", err)
	}
	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	table, err := vendors.Load(cfg.Vendors.TablePath, logger)
	if err != nil {
		logger.Error("load vendor table", "path", cfg.Vendors.TablePath, "error", err)
		os.Exit(1)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	start := time.Now()
	res, err := extractor.Extract(ctx, path)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	rec := parse.NewParser(table, logger).Parse(res.Text, path)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		logger.Error("encode record", "error", err)
		os.Exit(1)
	}
}
