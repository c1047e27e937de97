package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/dpp-tools/invoice-audit/internal/common"
	"github.com/dpp-tools/invoice-audit/internal/export"
	"github.com/dpp-tools/invoice-audit/internal/ocr"
	"github.com/dpp-tools/invoice-audit/internal/parse"
	"github.com/dpp-tools/invoice-audit/internal/pipeline"
	"github.com/dpp-tools/invoice-audit/internal/recon"
	repo "github.com/dpp-tools/invoice-audit/internal/repository"
	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

func main() {
	inputDir := flag.String("in", ".", "directory of invoice PDFs/images to process")
	outputPath := flag.String("out", "bills.xlsx", "output workbook path")
	validate := flag.Bool("validate", false, "reconcile the workbook against the external system after export")
	validateOnly := flag.Bool("validate-only", false, "skip extraction and only reconcile an existing workbook")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load .env", "error", err)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	table, err := vendors.Load(cfg.Vendors.TablePath, logger)
	if err != nil {
		logger.Error("load vendor table", "path", cfg.Vendors.TablePath, "error", err)
		os.Exit(1)
	}

	if !*validateOnly {
		db, err := repo.Open(ctx, cfg.DB.Path, logger)
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
		defer repo.Close(db, logger)

		extractor := ocr.NewExtractor(ocr.Config{
			Pdftotext:     cfg.OCR.Pdftotext,
			Pdftoppm:      cfg.OCR.Pdftoppm,
			Tesseract:     cfg.OCR.Tesseract,
			TesseractLang: cfg.OCR.TesseractLang,
			DPI:           cfg.OCR.DPI,
			MaxPages:      cfg.OCR.MaxPages,
		}, logger)

		p := pipeline.NewProcessor(
			extractor,
			parse.NewParser(table, logger),
			export.NewWriter(*outputPath, logger),
			repo.NewRunRepository(db, logger),
			logger,
		)
		p.ShouldContinue = func() bool { return ctx.Err() == nil }

		start := time.Now()
		summary, err := p.ProcessDirectory(ctx, *inputDir, *outputPath)
		if err != nil {
			logger.Error("batch failed", "error", err)
			os.Exit(1)
		}
		logger.Info("batch complete",
			"processed", summary.Processed,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"stopped", summary.Stopped,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if *validate || *validateOnly {
		if cfg.Recon.BaseURL == "" {
			logger.Error("RECON_BASE_URL required for validation")
			os.Exit(2)
		}
		client, err := recon.NewClient(cfg.Recon, logger)
		if err != nil {
			logger.Error("create reconciliation client", "error", err)
			os.Exit(1)
		}
		if err := client.Login(ctx); err != nil {
			logger.Error("reconciliation login failed", "error", err)
			os.Exit(1)
		}

		v := pipeline.NewValidator(
			recon.NewMatcher(client, table, logger),
			recon.NewComparator(table),
			logger,
		)
		v.ShouldContinue = func() bool { return ctx.Err() == nil }

		summary, err := v.Run(ctx, *outputPath)
		if err != nil {
			logger.Error("validation failed", "error", err)
			os.Exit(1)
		}
		logger.Info("validation complete",
			"pos", summary.POs,
			"valid", summary.Valid,
			"invalid", summary.Invalid,
			"not_applicable", summary.NA,
			"stopped", summary.Stopped,
		)
	}
}
