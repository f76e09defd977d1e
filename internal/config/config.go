package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// SimilarityScope controls which slice of the historical corpus findSimilar
// searches against.
type SimilarityScope string

const (
	ScopeGlobal SimilarityScope = "global"
	ScopeRole   SimilarityScope = "role"
	ScopeRun    SimilarityScope = "run"
)

// Config holds application configuration. It is loaded once at process start
// and passed explicitly; nothing reads the environment after Load returns.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	VectorDBPath    string
	OpenAIAPIKey    string
	LLMModel        string
	EmbeddingModel  string
	Temperature     float32
	MaxTokens       int
	RetentionDays   int
	Workers         int
	Scope           SimilarityScope
	CORSAllowOrigin []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		DatabaseURL:     dbURL,
		VectorDBPath:    getEnv("VECTOR_DB_PATH", "./data/vectors.db"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		Temperature:     getEnvFloat("TEMPERATURE", 0.3),
		MaxTokens:       getEnvInt("MAX_TOKENS_PER_REQUEST", 4000),
		RetentionDays:   getEnvInt("RETENTION_DAYS", 3),
		Workers:         getEnvInt("ANALYSIS_WORKERS", 4),
		Scope:           normalizeScope(getEnv("SIMILARITY_SCOPE", "global")),
		CORSAllowOrigin: splitList(getEnv("CORS_ALLOW_ORIGIN", "http://localhost:5173")),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float32) float32 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 32)
	if err != nil || parsed < 0 {
		return def
	}
	return float32(parsed)
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeScope(raw string) SimilarityScope {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "role":
		return ScopeRole
	case "run":
		return ScopeRun
	default:
		return ScopeGlobal
	}
}
