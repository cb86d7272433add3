package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
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
	S3Endpoint      string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string

	ProcessingQueueURL string
	GapQueueURL        string
	CallbackToken      string

	CSVHostRewrites string
	CSVMaxBytes     int64
	CSVFetchTimeout time.Duration
	CSVMaxRowErrors int
	TaxonomyFile    string

	ProcessingTokenURL     string
	ProcessingClientID     string
	ProcessingClientSecret string
	ProcessingScopes       []string

	RateLimitSubmitPerMin  int
	RateLimitPollingPerMin int
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
	callbackToken := os.Getenv("CALLBACK_TOKEN")
	if env == "production" && callbackToken == "" {
		log.Printf("CALLBACK_TOKEN is empty; status callbacks are unauthenticated")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		Env:             env,

		ProcessingQueueURL: getEnv("PROCESSING_QUEUE_URL", ""),
		GapQueueURL:        getEnv("GAP_QUEUE_URL", ""),
		CallbackToken:      callbackToken,

		CSVHostRewrites: getEnv("CSV_HOST_REWRITES", ""),
		CSVMaxBytes:     getEnvInt64("CSV_MAX_BYTES", 50<<20),
		CSVFetchTimeout: getEnvDuration("CSV_FETCH_TIMEOUT", 30*time.Second),
		CSVMaxRowErrors: int(getEnvInt64("CSV_MAX_ROW_ERRORS", 50)),
		TaxonomyFile:    getEnv("ESG_TAXONOMY_FILE", ""),

		ProcessingTokenURL:     getEnv("PROCESSING_TOKEN_URL", ""),
		ProcessingClientID:     getEnv("PROCESSING_CLIENT_ID", ""),
		ProcessingClientSecret: getEnv("PROCESSING_CLIENT_SECRET", ""),
		ProcessingScopes:       splitAndTrim(getEnv("PROCESSING_SCOPES", "")),

		RateLimitSubmitPerMin:  int(getEnvInt64("RATE_LIMIT_SUBMIT_PER_MIN", 10)),
		RateLimitPollingPerMin: int(getEnvInt64("RATE_LIMIT_POLLING_PER_MIN", 120)),
	}
}

// loadEnvFiles loads the first files that exist. Variables already set in the
// process environment are never overridden.
func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("config: failed to load %s: %v", p, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("config: invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
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
	log.Printf("config: invalid %s=%q, using %s", key, raw, def)
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
	case "s3", "minio":
		return "s3"
	default:
		return "local"
	}
}
