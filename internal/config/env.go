package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CallbackSecretHeader carries the shared secret on diarization callbacks.
const CallbackSecretHeader = "X-Callback-Secret"

type Config struct {
	Port           string
	AllowedOrigins []string

	RedisURL    string
	DatabaseURL string

	// Cloudflare R2 (S3-compatible) object storage for uploaded audio.
	R2Endpoint    string
	R2AccessKeyID string
	R2SecretKey   string
	R2Bucket      string
	AudioURLTTL   time.Duration

	// Synchronous speech-to-text (Groq-hosted Whisper).
	GroqAPIKey string
	GroqModel  string

	// Asynchronous diarizing speech-to-text (AssemblyAI, webhook-driven).
	AssemblyAIAPIKey  string
	AssemblyAIBaseURL string
	CallbackSecret    string
	PublicBaseURL     string

	// Gemini models for embeddings, summaries and grounded QA.
	GeminiAPIKey string
	EmbedModel   string
	GenModel     string

	ChunkSize      int
	ChunkOverlap   int
	TopKResults    int
	EmbedBatchSize int

	StreamPollInterval time.Duration
	WorkerConcurrency  int
	JWTSecret          string
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		R2Endpoint:    getEnv("R2_ENDPOINT_URL", ""),
		R2AccessKeyID: getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:      getEnv("R2_BUCKET_NAME", ""),
		AudioURLTTL:   getEnvDuration("AUDIO_URL_TTL", time.Hour),

		GroqAPIKey: getEnv("GROQ_API_KEY", ""),
		GroqModel:  getEnv("GROQ_WHISPER_MODEL", "whisper-large-v3"),

		AssemblyAIAPIKey:  getEnv("ASSEMBLYAI_API_KEY", ""),
		AssemblyAIBaseURL: getEnv("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
		CallbackSecret:    getEnv("CALLBACK_SECRET", ""),
		PublicBaseURL:     strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		GeminiAPIKey: getEnv("GOOGLE_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		GenModel:     getEnv("GEN_MODEL", "gemini-2.5-flash"),

		ChunkSize:      getEnvInt("RAG_CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt("RAG_CHUNK_OVERLAP", 200),
		TopKResults:    getEnvInt("RAG_TOP_K_RESULTS", 5),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 16),

		StreamPollInterval: getEnvDuration("STREAM_POLL_INTERVAL", 2*time.Second),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 4),
		JWTSecret:          getEnv("JWT_SECRET", ""),
	}

	return cfg
}

// ObjectStoreConfigured reports whether the R2 client can be built at all.
func (c *Config) ObjectStoreConfigured() bool {
	return c.R2Endpoint != "" && c.R2AccessKeyID != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// SyncSTTConfigured reports whether the synchronous transcription path is usable.
func (c *Config) SyncSTTConfigured() bool {
	return c.GroqAPIKey != ""
}

// CallbackConfigured reports whether the diarization (webhook) path is usable:
// provider credentials, a shared callback secret, and a publicly reachable
// base URL for the webhook must all be present.
func (c *Config) CallbackConfigured() bool {
	return c.AssemblyAIAPIKey != "" && c.CallbackSecret != "" && c.PublicBaseURL != ""
}

// AIConfigured reports whether embeddings and text generation are available.
func (c *Config) AIConfigured() bool {
	return c.GeminiAPIKey != ""
}

// CallbackURL builds the webhook URL the external provider will POST to.
func (c *Config) CallbackURL(jobID string) string {
	return c.PublicBaseURL + "/api/transcribe/callback/" + jobID
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
