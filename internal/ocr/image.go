package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/common"
	"github.com/dpp-tools/invoice-audit/internal/extract"
)

var reBoxNoise = regexp.MustCompile(`(?m)^[|_\\/]{2,}\s*$`)

func (e *Extractor) extractImage(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	res := extract.TextExtractionResult{SourceType: constants.IMAGE, Language: e.cfg.TesseractLang}

	txt, warn, err := e.tesseractOCR(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err != nil {
		if IsBinaryMissing(err) {
			return res, common.NewAppError("OCR_UNAVAILABLE", "optical recognition unavailable", common.ErrNoText)
		}
		return res, err
	}
	txt = strings.TrimSpace(txt)
	if len(txt) < MinUsableTextLen {
		return res, common.NewAppError("TEXT_TOO_SPARSE", "image ocr produced no usable text", common.ErrNoText)
	}

	res.Text = txt
	res.Pages = 1
	res.Method = "image-ocr"
	return res, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}
