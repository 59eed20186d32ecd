package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"OCRMYPDF_BIN", "PDFTOPPM_BIN", "TESSERACT_BIN", "OCR_LANG", "OCR_DPI", "OCR_MAX_PAGES"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	assert.Equal(t, "ocrmypdf", cfg.OCR.OCRmyPDF)
	assert.Equal(t, "por+eng", cfg.OCR.Lang)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 0, cfg.OCR.MaxPages)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OCR_LANG", "por")
	t.Setenv("OCR_DPI", "150")
	t.Setenv("OCR_MAX_PAGES", "bogus")

	cfg := LoadConfig()
	assert.Equal(t, "por", cfg.OCR.Lang)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, 0, cfg.OCR.MaxPages, "unparseable value keeps the default")
}
