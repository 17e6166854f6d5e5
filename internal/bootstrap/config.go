package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/streamsight/internal/inference"
)

type Config struct {
	ServerAddr     string
	LogLevel       string
	AllowedOrigins []string

	GenerationModel     string
	EmbeddingModel      string
	EmbeddingDimensions int

	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TopK            float64
	MaxRetries      int
	BackoffUnit     time.Duration
	SystemPrompt    string

	MaxWorkers        int
	CacheSizeLimit    int
	SessionMediaCache bool
	ContextTimeout    time.Duration

	MaxFrames   int
	TargetFPS   float64
	MaxUploadMB int
	FFmpegPath  string
	FFprobePath string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantCollection string

	PersistQueueSize int
	PersistTimeout   time.Duration

	MetricsNamespace  string
	MetricsBufferSize int
	MetricsTimeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":9000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,https://streamsightai.onrender.com")),

		GenerationModel:     getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 768),

		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 500),
		Temperature:     getEnvFloat("TEMPERATURE", 0.7),
		TopP:            getEnvFloat("TOP_P", 0.8),
		TopK:            getEnvFloat("TOP_K", 40),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		BackoffUnit:     getEnvDuration("BACKOFF_UNIT", time.Second),
		SystemPrompt:    getEnvAllowEmpty("SYSTEM_PROMPT", inference.DefaultSystemPrompt),

		MaxWorkers:        getEnvInt("MAX_WORKERS", 4),
		CacheSizeLimit:    getEnvInt("CACHE_SIZE_LIMIT", 100),
		SessionMediaCache: getEnvBool("SESSION_MEDIA_CACHE", true),
		ContextTimeout:    getEnvDuration("CONTEXT_TIMEOUT", inference.DefaultContextTimeout),

		MaxFrames:   getEnvInt("MAX_FRAMES", 5),
		TargetFPS:   getEnvFloat("TARGET_FPS", 1),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 100),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "chat_history"),

		PersistQueueSize: getEnvInt("PERSIST_QUEUE_SIZE", 256),
		PersistTimeout:   getEnvDuration("PERSIST_TIMEOUT", 15*time.Second),

		MetricsNamespace:  getEnv("METRICS_NAMESPACE", "streamsight"),
		MetricsBufferSize: getEnvInt("METRICS_BUFFER_SIZE", 1024),
		MetricsTimeout:    getEnvDuration("METRICS_TIMEOUT", 2*time.Second),
	}
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty treats an explicitly empty variable as a value.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseList(envValue string) []string {
	var items []string
	for _, item := range strings.Split(envValue, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
