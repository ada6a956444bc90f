package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string

	LLMProvider   string
	LLMModel      string
	OpenAIAPIKey  string
	GeminiAPIKey  string
	LLMTimeout    time.Duration
	PromptVersion string

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	BreakerFailures    uint32

	PendingSaveTTL time.Duration
	UsageLimit     int

	RateLimitAnalyzeRPM   float64
	RateLimitAnalyzeBurst int
	RateLimitDefaultRPM   float64
	RateLimitDefaultBurst int

	TracesExporter string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	JWTSecret          string

	QueueURL string

	// Async analysis workers: cmd/worker, or in-process when QueueURL is empty.
	WorkerConcurrency     int
	WorkerVisibility      time.Duration
	WorkerShutdownTimeout time.Duration
	WorkerMaxReceives     int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		if env == "production" {
			log.Printf("JWT_SECRET is required in production")
		}
		jwtSecret = "dev-secret"
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		Env:             env,

		LLMProvider:   normalizeProvider(getEnv("LLM_PROVIDER", "heuristic")),
		LLMModel:      getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		LLMTimeout:    time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		PromptVersion: getEnv("PROMPT_VERSION", "ats-v1"),

		BreakerMaxRequests: uint32(getEnvInt("BREAKER_MAX_REQUESTS", 1)),
		BreakerInterval:    getEnvDuration("BREAKER_INTERVAL", time.Minute),
		BreakerTimeout:     getEnvDuration("BREAKER_TIMEOUT", 30*time.Second),
		BreakerFailures:    uint32(getEnvInt("BREAKER_FAILURES", 5)),

		PendingSaveTTL: getEnvDuration("PENDING_SAVE_TTL", 15*time.Minute),
		UsageLimit:     getEnvInt("USAGE_LIMIT", 10),

		RateLimitAnalyzeRPM:   getEnvFloat("RATE_LIMIT_ANALYZE_RPM", 6),
		RateLimitAnalyzeBurst: getEnvInt("RATE_LIMIT_ANALYZE_BURST", 3),
		RateLimitDefaultRPM:   getEnvFloat("RATE_LIMIT_DEFAULT_RPM", 120),
		RateLimitDefaultBurst: getEnvInt("RATE_LIMIT_DEFAULT_BURST", 30),

		TracesExporter: strings.ToLower(getEnv("OTEL_TRACES_EXPORTER", "none")),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
		JWTSecret:          jwtSecret,

		QueueURL: strings.TrimSpace(getEnv("RA_SQS_QUEUE_URL", "")),

		WorkerConcurrency:     max(1, getEnvInt("RA_WORKER_CONCURRENCY", 4)),
		WorkerVisibility:      getEnvDuration("RA_SQS_VISIBILITY_TIMEOUT_SECONDS", 5*time.Minute),
		WorkerShutdownTimeout: getEnvDuration("RA_SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		WorkerMaxReceives:     getEnvInt("RA_WORKER_MAX_RECEIVES", 5),
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
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		log.Printf("invalid %s=%q, using %v", key, raw, def)
		return def
	}
	return val
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid %s=%q, using %s", key, raw, def)
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "heuristic"
	}
}
