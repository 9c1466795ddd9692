// Package config loads every environment knob named in section 6 of the
// spec, with .env support so local development doesn't need exported
// shell variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the fully-resolved process configuration.
type Config struct {
	Environment string // "prod" | "dev" | "test", defaults to "dev"

	OpenAIAPIKey            string
	OpenAIEmbeddingModel    string
	OpenAIEmbeddingBatchSize int
	OpenAIGenerationModel   string
	OpenAITemperature       float64

	AnthropicAPIKey string
	AnthropicModel  string

	GoogleAPIKey string
	GoogleModel  string

	GenerationProvider string // "openai" | "anthropic" | "google"

	DatabaseURL string

	VectorStoreBackend string // "memory" | "postgres" | "qdrant"
	QdrantURL           string
	QdrantCollection    string

	RedisURL string

	ClickHouseDSN   string
	ClickHouseTable string

	DebugRAG            bool
	DebugRetentionHours int
	DebugMaxSizeBytes   int
	DebugArtifactsToken string

	QueryTimeoutSeconds float64

	RateLimitPerMinute int

	KafkaBrokers string // comma-separated; empty disables async out-of-process ingestion
	KafkaTopic   string
	KafkaGroupID string

	PDFTier1Enabled      bool
	PDFTier2Enabled      bool
	PDFTier3Enabled      bool
	PDFTier4Enabled      bool
	PDFAutoFallback      bool
	PDFExtractabilityMin float64
	PDFTier4DPI          int
	PDFTier4Lang         string
	LlamaCloudAPIKey     string
	TesseractCmd         string

	HTTPAddr string
}

const standardEmbeddingModel = "text-embedding-3-small"

// Load reads configuration from the process environment, applying .env
// first (via godotenv.Overload, mirroring the teacher's precedence: local
// .env wins over a pre-existing shell export during development).
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Environment:              firstNonEmpty(os.Getenv("ENVIRONMENT"), "dev"),
		OpenAIAPIKey:             os.Getenv("OPENAI_API_KEY"),
		OpenAIEmbeddingModel:     firstNonEmpty(os.Getenv("OPENAI_EMBEDDING_MODEL"), standardEmbeddingModel),
		OpenAIEmbeddingBatchSize: intFromEnv("OPENAI_EMBEDDING_BATCH_SIZE", 10),
		OpenAIGenerationModel:    firstNonEmpty(os.Getenv("OPENAI_GENERATION_MODEL"), "gpt-4o-mini"),
		OpenAITemperature:        floatFromEnv("OPENAI_TEMPERATURE", 0.2),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  firstNonEmpty(os.Getenv("ANTHROPIC_MODEL"), "claude-3-5-haiku-latest"),

		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		GoogleModel:  firstNonEmpty(os.Getenv("GOOGLE_MODEL"), "gemini-1.5-flash"),

		GenerationProvider: firstNonEmpty(strings.ToLower(os.Getenv("GENERATION_PROVIDER")), "openai"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		VectorStoreBackend: firstNonEmpty(strings.ToLower(os.Getenv("VECTOR_STORE_BACKEND")), "memory"),
		QdrantURL:          os.Getenv("QDRANT_URL"),
		QdrantCollection:   firstNonEmpty(os.Getenv("QDRANT_COLLECTION"), "ragserve_chunks"),

		RedisURL: os.Getenv("REDIS_URL"),

		ClickHouseDSN:   os.Getenv("CLICKHOUSE_DSN"),
		ClickHouseTable: firstNonEmpty(os.Getenv("CLICKHOUSE_TABLE"), "ragserve_query_metrics"),

		DebugRAG:            boolFromEnv("DEBUG_RAG", false),
		DebugRetentionHours: intFromEnv("DEBUG_RETENTION_HOURS", 24),
		DebugMaxSizeBytes:   intFromEnv("DEBUG_MAX_SIZE", 64*1024),
		DebugArtifactsToken: os.Getenv("DEBUG_ARTIFACTS_TOKEN"),

		QueryTimeoutSeconds: floatFromEnv("QUERY_TIMEOUT_SECONDS", 30),

		RateLimitPerMinute: intFromEnv("RATE_LIMIT_PER_MINUTE", 60),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   firstNonEmpty(os.Getenv("KAFKA_INGESTION_TOPIC"), "ragserve.ingestion.jobs"),
		KafkaGroupID: firstNonEmpty(os.Getenv("KAFKA_INGESTION_GROUP"), "ragserve-ingestion-workers"),

		PDFTier1Enabled:      boolFromEnv("PDF_TIER1_ENABLED", true),
		PDFTier2Enabled:      boolFromEnv("PDF_TIER2_ENABLED", true),
		PDFTier3Enabled:      boolFromEnv("PDF_TIER3_ENABLED", false),
		PDFTier4Enabled:      boolFromEnv("PDF_TIER4_ENABLED", false),
		PDFAutoFallback:      boolFromEnv("PDF_AUTO_FALLBACK", true),
		PDFExtractabilityMin: floatFromEnv("PDF_EXTRACTABILITY_THRESHOLD", 0.3),
		PDFTier4DPI:          intFromEnv("PDF_TIER4_DPI", 300),
		PDFTier4Lang:         firstNonEmpty(os.Getenv("PDF_TIER4_LANG"), "eng"),
		LlamaCloudAPIKey:     os.Getenv("LLAMA_CLOUD_API_KEY"),
		TesseractCmd:         firstNonEmpty(os.Getenv("TESSERACT_CMD"), "tesseract"),

		HTTPAddr: firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8080"),
	}

	if cfg.OpenAIEmbeddingBatchSize < 1 || cfg.OpenAIEmbeddingBatchSize > 2048 {
		return Config{}, fmt.Errorf("OPENAI_EMBEDDING_BATCH_SIZE must be in [1, 2048], got %d", cfg.OpenAIEmbeddingBatchSize)
	}
	if cfg.OpenAIEmbeddingModel != standardEmbeddingModel {
		return Config{}, fmt.Errorf("OPENAI_EMBEDDING_MODEL must be %q, got %q", standardEmbeddingModel, cfg.OpenAIEmbeddingModel)
	}
	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be in [0, 2], got %v", cfg.OpenAITemperature)
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
