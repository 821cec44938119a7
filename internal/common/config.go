package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	LLM       LLMConfig
	Reconcile ReconcileConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr        string
	HTTPAddr        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	PSM           int
	OEM           int
	TSVConfidence bool
	// Enhance enables the contrast-enhanced second pass for short recognitions.
	Enhance bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string // openai | gemini
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// ReconcileConfig holds reconciliation tuning.
type ReconcileConfig struct {
	// SnapTolerance bounds how far a derived rate may sit from its slab; 0 always snaps.
	SnapTolerance float64
}

// PipelineConfig holds per-stage deadlines and batch fan-out.
type PipelineConfig struct {
	OCRTimeout       time.Duration
	LLMTimeout       time.Duration
	BatchConcurrency int
}

// Supported LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory, when present, is applied first without overriding the process
// environment.
func LoadConfig() *Config {
	loadDotEnv()

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))
	llm := LLMConfig{
		Provider:    provider,
		Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		APIKey:      getEnv("OPENAI_API_KEY", ""),
		BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
		Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
	}
	if provider == ProviderGemini {
		llm.Model = getEnv("GEMINI_MODEL", "gemini-1.5-flash")
		llm.APIKey = getEnv("GEMINI_API_KEY", "")
		llm.BaseURL = ""
		llm.Temperature = getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0)
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:        getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:        getEnv("HTTP_ADDR", ":8081"),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			PSM:           getEnvAsInt("TESSERACT_PSM", 6),
			OEM:           getEnvAsInt("TESSERACT_OEM", 1),
			TSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", true),
			Enhance:       getEnvAsBool("OCR_ENHANCE", true),
		},
		LLM: llm,
		Reconcile: ReconcileConfig{
			SnapTolerance: getEnvAsFloat64("GST_SNAP_TOLERANCE", 0),
		},
		Pipeline: PipelineConfig{
			OCRTimeout:       getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
			LLMTimeout:       getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			BatchConcurrency: getEnvAsInt("BATCH_CONCURRENCY", 4),
		},
	}
}

// loadDotEnv applies ./.env when it exists. A missing or malformed file is not
// fatal; the process environment still applies.
func loadDotEnv() {
	_ = godotenv.Load()
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "postgresql":
		if c.Database.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
		}
	case "sqlite":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "LLM_PROVIDER must be openai or gemini", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Reconcile.SnapTolerance < 0 {
		return NewAppError(CodeConfig, "GST_SNAP_TOLERANCE must not be negative", ErrInvalidInput)
	}
	if c.Pipeline.BatchConcurrency < 1 {
		return NewAppError(CodeConfig, "BATCH_CONCURRENCY must be at least 1", ErrInvalidInput)
	}
	return nil
}
