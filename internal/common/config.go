package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	OCR     OCRConfig
	Recon   ReconConfig
	Vendors VendorsConfig
	DB      DBConfig
}

// OCRConfig holds text-acquisition configuration
type OCRConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	DPI           int
	MaxPages      int
}

// ReconConfig holds reconciliation-service configuration
type ReconConfig struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
	PageSize int
}

// VendorsConfig holds vendor alias table configuration
type VendorsConfig struct {
	TablePath string
}

// DBConfig holds bookkeeping database configuration
type DBConfig struct {
	Path string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Recon: ReconConfig{
			BaseURL:  getEnv("RECON_BASE_URL", ""),
			Email:    getEnv("RECON_EMAIL", ""),
			Password: getEnv("RECON_PASSWORD", ""),
			Timeout:  getEnvAsDuration("RECON_TIMEOUT", 60*time.Second),
			PageSize: getEnvAsInt("RECON_PAGE_SIZE", 10),
		},
		Vendors: VendorsConfig{
			TablePath: getEnv("VENDORS_PATH", "vendors.csv"),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", "invoice-audit.db"),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. A missing vendor table is
// tolerated (empty table); a reconciliation URL is only required when
// validation is requested, so it is checked by the caller.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return NewAppError("CONFIG_ERROR", "DB_PATH is required", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	return nil
}
