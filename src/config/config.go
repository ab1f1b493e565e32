package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	MaxUploadSizeBytes int64
	AllowedOrigin      string

	// Gemini API endpoints; the sandbox URL is used when a request flags
	// is_sandbox.
	GeminiBaseURL    string
	GeminiSandboxURL string

	// 32-byte key for encrypting stored exchange API secrets at rest.
	APIKeyEncryptionKey []byte

	ReportCacheExpiration time.Duration
	ReportCacheCleanup    time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", err)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	encryptionKey := getEnv("API_KEY_ENCRYPTION_KEY", "a-very-secure-32-byte-long-key-!")
	if encryptionKey == "a-very-secure-32-byte-long-key-!" {
		log.Println("WARNING: Using default insecure API_KEY_ENCRYPTION_KEY. Set API_KEY_ENCRYPTION_KEY environment variable for production.")
	}
	if len(encryptionKey) != 32 {
		log.Fatalf("FATAL: API_KEY_ENCRYPTION_KEY must be exactly 32 bytes long. Current length: %d", len(encryptionKey))
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./tax_calculator.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://api.gemini.com"),
		GeminiSandboxURL: getEnv("GEMINI_SANDBOX_URL", "https://api.sandbox.gemini.com"),

		APIKeyEncryptionKey: []byte(encryptionKey),

		ReportCacheExpiration: getEnvAsDuration("REPORT_CACHE_EXPIRATION", 15*time.Minute),
		ReportCacheCleanup:    getEnvAsDuration("REPORT_CACHE_CLEANUP", 30*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
