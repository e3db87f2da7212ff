package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port             string
	LogLevel         string
	CatalogRoot      string
	DatabasePath     string
	DefaultCurrency  string
	LoadTimeout      time.Duration
	MaxParallelLoads int
	CacheExpiration  time.Duration
	CacheCleanup     time.Duration
	MaxRequestBytes  int64
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

	maxParallelLoads := getEnvAsInt("MAX_PARALLEL_LOADS", 4)
	if maxParallelLoads < 1 {
		log.Printf("WARNING: MAX_PARALLEL_LOADS must be at least 1, got %d. Using 1.", maxParallelLoads)
		maxParallelLoads = 1
	}

	maxRequestBytesStr := getEnv("MAX_REQUEST_BYTES", "1048576")
	maxRequestBytes, err := strconv.ParseInt(maxRequestBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_REQUEST_BYTES format '%s'. Using default 1MB. Error: %v", maxRequestBytesStr, err)
		maxRequestBytes = 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CatalogRoot:      getEnv("CATALOG_ROOT", "data/catalogs"),
		DatabasePath:     getEnv("DATABASE_PATH", "./pricefolio.db"),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "EUR"),
		LoadTimeout:      getEnvAsDuration("LOAD_TIMEOUT", 30*time.Second),
		MaxParallelLoads: maxParallelLoads,
		CacheExpiration:  getEnvAsDuration("CACHE_EXPIRATION", 15*time.Minute),
		CacheCleanup:     getEnvAsDuration("CACHE_CLEANUP_INTERVAL", 30*time.Minute),
		MaxRequestBytes:  maxRequestBytes,
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, CatalogRoot=%s, DBPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.CatalogRoot, Cfg.DatabasePath)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
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
