// Package ocr escalates text acquisition for scanned or corrupted
// pages through a chain of external tools: ocrmypdf first, then
// pdftoppm+tesseract, then nothing. Every subprocess failure is
// recoverable; the caller proceeds with the best text available.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"log/slog"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/common"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/pdftext"
)

// minNativeChars is the threshold below which a document's native text
// layer is considered absent (scanned document).
const minNativeChars = 30

type Extractor struct {
	cfg    common.OCRConfig
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg common.OCRConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OCRmyPDF == "" {
		cfg.OCRmyPDF = "ocrmypdf"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "por+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// NewExtractorWithRunner is NewExtractor with a custom subprocess
// runner. Tests use it to stub the external tools.
func NewExtractorWithRunner(cfg common.OCRConfig, r Runner, logger *slog.Logger) *Extractor {
	e := NewExtractor(cfg, logger)
	if r != nil {
		e.runner = r
	}
	return e
}

// AcquirePageTexts returns the best-available text per page. Native
// extraction first; if the whole document yields fewer than
// minNativeChars characters it is treated as scanned and OCR'd once,
// keeping whichever version is longer.
func (e *Extractor) AcquirePageTexts(ctx context.Context, path string) ([]pdftext.PageText, error) {
	native, err := pdftext.PageTexts(path)
	if err != nil {
		return nil, err
	}
	if pdftext.TotalLen(native) >= minNativeChars {
		return native, nil
	}

	e.logger.Warn("native text layer too short, running document OCR",
		"path", filepath.Base(path), "chars", pdftext.TotalLen(native))

	ocrPages, err := e.ocrDocument(ctx, path)
	if err != nil {
		e.logger.Warn("document OCR failed, keeping native text",
			"path", filepath.Base(path), "error", err)
		return native, nil
	}
	if pdftext.TotalLen(ocrPages) > pdftext.TotalLen(native) {
		return ocrPages, nil
	}
	return native, nil
}

// OCRPage re-recognizes a single page (1-based). Strategies are tried
// in order; the first non-empty result wins. ok is false when no OCR
// backend produced text.
func (e *Extractor) OCRPage(ctx context.Context, path string, page int) (string, bool) {
	for _, strat := range []func(context.Context, string, int) (string, error){
		e.ocrmypdfPage,
		e.tesseractPage,
	} {
		txt, err := strat(ctx, path, page)
		if err != nil {
			e.logger.Debug("page OCR strategy failed",
				"path", filepath.Base(path), "page", page, "error", err)
			continue
		}
		if txt = strings.TrimSpace(txt); txt != "" {
			return txt, true
		}
	}
	return "", false
}

// ocrmypdfPage runs ocrmypdf on one page and re-reads the text layer it
// injects.
func (e *Extractor) ocrmypdfPage(ctx context.Context, path string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "ingestor-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	out := filepath.Join(tmpDir, "ocr_one.pdf")
	args := []string{
		"-l", e.cfg.Lang, "--force-ocr", "--skip-text", "--output-type", "pdf",
		"--pages", fmt.Sprintf("%d", page), path, out,
	}
	if _, errb, err := e.runner.Run(ctx, e.cfg.OCRmyPDF, args...); err != nil {
		return "", fmt.Errorf("ocrmypdf: %w (%s)", err, truncate(string(errb), 512))
	}
	pages, err := pdftext.PageTexts(out)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("ocrmypdf produced an empty document")
	}
	return pages[0].Text, nil
}

// tesseractPage rasterizes one page with pdftoppm and recognizes it
// with tesseract.
func (e *Extractor) tesseractPage(ctx context.Context, path string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "ingestor-pp-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{
		"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png",
		"-f", fmt.Sprintf("%d", page), "-l", fmt.Sprintf("%d", page),
		path, prefix,
	}
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no images")
	}
	sort.Strings(matches)
	return e.tesseractImage(ctx, matches[0])
}

func (e *Extractor) tesseractImage(ctx context.Context, img string) (string, error) {
	args := []string{img, "stdout", "-l", e.cfg.Lang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// ocrDocument recognizes every page of a scanned document. ocrmypdf is
// preferred (it keeps the page structure); the raster fallback renders
// all pages and recognizes them one by one.
func (e *Extractor) ocrDocument(ctx context.Context, path string) ([]pdftext.PageText, error) {
	if pages, err := e.ocrmypdfDocument(ctx, path); err == nil {
		return pages, nil
	} else {
		e.logger.Debug("ocrmypdf document pass failed",
			"path", filepath.Base(path), "error", err)
	}
	return e.tesseractDocument(ctx, path)
}

func (e *Extractor) ocrmypdfDocument(ctx context.Context, path string) ([]pdftext.PageText, error) {
	tmpDir, err := os.MkdirTemp("", "ingestor-ocr-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	out := filepath.Join(tmpDir, "ocr.pdf")
	args := []string{
		"-l", e.cfg.Lang, "--force-ocr", "--skip-text", "--output-type", "pdf",
		path, out,
	}
	if _, errb, err := e.runner.Run(ctx, e.cfg.OCRmyPDF, args...); err != nil {
		return nil, fmt.Errorf("ocrmypdf: %w (%s)", err, truncate(string(errb), 512))
	}
	pages, err := pdftext.PageTexts(out)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i].FromOCR = true
	}
	return pages, nil
}

func (e *Extractor) tesseractDocument(ctx context.Context, path string) ([]pdftext.PageText, error) {
	tmpDir, err := os.MkdirTemp("", "ingestor-pp-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix}
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	pages := make([]pdftext.PageText, 0, len(matches))
	for i, img := range matches {
		txt, err := e.tesseractImage(ctx, img)
		if err != nil {
			e.logger.Debug("tesseract page failed", "image", filepath.Base(img), "error", err)
			txt = ""
		}
		pages = append(pages, pdftext.PageText{
			Number:  i + 1,
			Text:    strings.TrimSpace(txt),
			FromOCR: true,
		})
	}
	return pages, nil
}
