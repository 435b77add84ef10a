package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Generator backends selectable via GENERATOR_BACKEND.
const (
	BackendLlamaCLI = "llamacli"
	BackendOllama   = "ollama"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	OllamaURL         string
	EmbeddingModel    string
	ChatModel         string
	ChatTemperature   float64
	GeneratorBackend  string
	LlamaBinary       string
	LlamaModelPath    string
	LlamaGPULayers    int
	GenerateTimeoutMS int

	// Pipeline knobs; zero values defer to the pipeline defaults.
	CtxSize         int
	ReserveTokens   int
	CharsPerToken   float64
	MaxContextChars int
	MinScore        *float64
	Dedupe          bool
	ShortCircuit    bool
	EnsureCitations bool
	RRFK            float64

	AnswerCacheSize   int
	AnswerCacheTTLSec int

	RateLimitPerSec float64

	WorkerPollSec int

	EnableOTelLogs bool
}

// Load reads configuration from the environment, after merging a local .env
// file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "rag-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "rag_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "rag_password"),
		DBName:     getEnv("DB_NAME", "rag_db"),

		OllamaURL:         getEnvWithAlt("OLLAMA_URL", "OLLAMA_BASE_URL", "http://ollama:11434"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		ChatModel:         getEnv("CHAT_MODEL", "gemma3:4b"),
		ChatTemperature:   getEnvFloat("CHAT_TEMPERATURE", 0.2),
		GeneratorBackend:  getEnv("GENERATOR_BACKEND", BackendLlamaCLI),
		LlamaBinary:       getEnv("LLAMA_BINARY", ""),
		LlamaModelPath:    getEnv("LLAMA_MODEL_PATH", ""),
		LlamaGPULayers:    getEnvInt("LLAMA_GPU_LAYERS", 0),
		GenerateTimeoutMS: getEnvInt("GENERATE_TIMEOUT_MS", 120_000),

		CtxSize:         getEnvInt("PIPELINE_CTX_SIZE", 4096),
		ReserveTokens:   getEnvInt("PIPELINE_RESERVE_TOKENS", 64),
		CharsPerToken:   getEnvFloat("PIPELINE_CHARS_PER_TOKEN", 4.0),
		MaxContextChars: getEnvInt("PIPELINE_MAX_CONTEXT_CHARS", 16_000),
		MinScore:        getEnvFloatPtr("PIPELINE_MIN_SCORE"),
		Dedupe:          getEnvBool("PIPELINE_DEDUPE", true),
		ShortCircuit:    getEnvBool("PIPELINE_SHORT_CIRCUIT", true),
		EnsureCitations: getEnvBool("PIPELINE_ENSURE_CITATIONS", false),
		RRFK:            getEnvFloat("PIPELINE_RRF_K", 60.0),

		AnswerCacheSize:   getEnvInt("ANSWER_CACHE_SIZE", 256),
		AnswerCacheTTLSec: getEnvInt("ANSWER_CACHE_TTL_SEC", 300),

		RateLimitPerSec: getEnvFloat("RATE_LIMIT_PER_SEC", 20),

		WorkerPollSec: getEnvInt("WORKER_POLL_SEC", 1),

		EnableOTelLogs: getEnvBool("ENABLE_OTEL_LOGS", false),
	}
}

// DSN renders the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads the value directly, then from the file named by fileEnvKey.
// Container secrets are usually mounted as files.
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloatPtr(key string) *float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
