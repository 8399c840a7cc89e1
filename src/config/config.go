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

	// Remote mirror (Google Apps Script web app). Empty disables sync.
	SheetWebAppURL    string
	SyncDebounce      time.Duration
	SyncPushTimeout   time.Duration
	HTTPClientTimeout time.Duration

	// Exchange-rate gateway.
	ExchangeRatePrimaryURL  string
	ExchangeRateFallbackURL string
	ExchangeRateCacheTTL    time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./cardstock.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		SheetWebAppURL:    getEnv("SHEET_WEBAPP_URL", ""),
		SyncDebounce:      getEnvAsDuration("SYNC_DEBOUNCE", time.Second),
		SyncPushTimeout:   getEnvAsDuration("SYNC_PUSH_TIMEOUT", 30*time.Second),
		HTTPClientTimeout: getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second),

		ExchangeRatePrimaryURL:  getEnv("EXRATE_PRIMARY_URL", "https://api.bluelytics.com.ar"),
		ExchangeRateFallbackURL: getEnv("EXRATE_FALLBACK_URL", "https://dolarapi.com"),
		ExchangeRateCacheTTL:    getEnvAsDuration("EXRATE_CACHE_TTL", 10*time.Minute),
	}

	if Cfg.SheetWebAppURL == "" {
		log.Println("SHEET_WEBAPP_URL not set, remote sheet sync disabled.")
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, SyncEnabled=%t",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.SheetWebAppURL != "")
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
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
