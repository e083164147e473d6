// Package config provides configuration for the coach server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// ModeMock selects the mock engine clients.
const ModeMock = "MOCK"

// Config holds the coach server configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Artifact storage
	StorageType     string
	OutputDir       string
	OutputBaseURL   string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string
	AWSAccessKeyID  string
	AWSSecretKey    string

	// Model catalogs
	LLMConfigPath string
	TTSConfigPath string

	// Engines
	Mode              string
	OllamaURL         string
	WhisperURL        string
	WhisperModel      string
	TTSURL            string
	STTBackend        string
	TTSBackend        string
	DeepgramAPIKey    string
	DeepgramTTSModel  string
	EngineHTTPTimeout time.Duration
	WorkerPoolSize    int

	// Sessions
	AllowImplicitSessions bool

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:              getEnvInt("HTTP_PORT", 8000),
		DatabaseURL:           getEnv("DATABASE_URL", "file:coach.db?cache=shared&mode=rwc&_busy_timeout=5000"),
		StorageType:           strings.ToLower(getEnv("STORAGE_TYPE", StorageLocal)),
		OutputDir:             getEnv("OUTPUT_DIR", "output"),
		OutputBaseURL:         getEnv("OUTPUT_BASE_URL", "/output"),
		S3Bucket:              getEnv("S3_BUCKET_NAME", ""),
		S3Region:              getEnv("S3_REGION", ""),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3PublicBaseURL:       getEnv("S3_PUBLIC_BASE_URL", ""),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
		LLMConfigPath:         getEnv("LLM_CONFIG_PATH", "llm_models_config.json"),
		TTSConfigPath:         getEnv("TTS_CONFIG_PATH", "tts_model_info.json"),
		Mode:                  strings.ToUpper(getEnv("COACH_MODE", "")),
		OllamaURL:             getEnv("OLLAMA_URL", "http://localhost:11434"),
		WhisperURL:            getEnv("WHISPER_URL", "http://localhost:9000"),
		WhisperModel:          getEnv("WHISPER_MODEL", "tiny"),
		TTSURL:                getEnv("TTS_URL", "http://localhost:5002"),
		STTBackend:            strings.ToLower(getEnv("STT_BACKEND", "whisper")),
		TTSBackend:            strings.ToLower(getEnv("TTS_BACKEND", "coqui")),
		DeepgramAPIKey:        getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramTTSModel:      getEnv("DEEPGRAM_TTS_MODEL", "aura-asteria-en"),
		EngineHTTPTimeout:     time.Duration(getEnvInt("ENGINE_HTTP_TIMEOUT_MS", 300000)) * time.Millisecond,
		WorkerPoolSize:        getEnvInt("WORKER_POOL_SIZE", 4),
		AllowImplicitSessions: getEnvBool("ALLOW_IMPLICIT_SESSIONS", true),
		PingInterval:          time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:          time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:           time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 120000)) * time.Millisecond,
		MaxMessageSize:        int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 10<<20)),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
