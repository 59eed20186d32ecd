package common

import (
	"os"
	"strconv"
)

// Config holds runtime configuration read from the environment.
// The domain mapping (fields, labels, patterns) lives in mapping.yaml
// and is loaded separately by fieldcfg.
type Config struct {
	OCR OCRConfig
}

// OCRConfig holds the external OCR tool chain settings.
type OCRConfig struct {
	OCRmyPDF  string // binary name or absolute path; if empty -> "ocrmypdf"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang     string // tesseract/ocrmypdf language spec, default "por+eng"
	DPI      int    // rasterization DPI for scanned pages, default 300
	MaxPages int    // 0 = no limit on full-document OCR

	TessdataDir string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			OCRmyPDF:    getEnv("OCRMYPDF_BIN", "ocrmypdf"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("OCR_LANG", "por+eng"),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
