package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Database
	DatabasePath string `json:"database_path"`

	// Redis configuration
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	CacheTTL    time.Duration `json:"cache_ttl"`

	// News ingest
	NewsAPIBaseURL string   `json:"news_api_base_url"`
	NewsAPIKey     string   `json:"news_api_key"`
	NewsQueries    []string `json:"news_queries"`
	FetchSchedule  string   `json:"fetch_schedule"`
	FetchBatchSize int      `json:"fetch_batch_size"`

	// Threat intel lookups
	NVDBaseURL    string `json:"nvd_base_url"`
	IPInfoBaseURL string `json:"ipinfo_base_url"`

	// Phishing scan
	TargetDomain     string        `json:"target_domain"`
	TargetBaseURL    string        `json:"target_base_url"`
	PersistThreshold float64       `json:"persist_threshold"`
	ScanRetention    time.Duration `json:"scan_retention"`
	ScanConcurrency  int           `json:"scan_concurrency"`

	// Evidence archive (S3 / R2)
	ArchiveEndpoint  string `json:"archive_endpoint"`
	ArchiveAccessKey string `json:"archive_access_key"`
	ArchiveSecretKey string `json:"archive_secret_key"`
	ArchiveBucket    string `json:"archive_bucket"`
	ArchiveRegion    string `json:"archive_region"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Database
		DatabasePath: getEnv("DATABASE_PATH", "./threatboard.db"),

		// Redis configuration
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "threatboard:"),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", 720*time.Hour), // 30 days

		// News ingest
		NewsAPIBaseURL: getEnv("NEWS_API_BASE_URL", "https://newsapi.org/v2"),
		NewsAPIKey:     getEnv("NEWS_API_KEY", ""),
		NewsQueries: getEnvAsSlice("NEWS_QUERIES", []string{
			"cybersecurity OR data breach OR ransomware",
			"vulnerability OR exploit OR zero-day OR CVE",
		}),
		FetchSchedule:  getEnv("FETCH_SCHEDULE", "@every 1h"),
		FetchBatchSize: getEnvAsInt("FETCH_BATCH_SIZE", 10),

		// Threat intel lookups
		NVDBaseURL:    getEnv("NVD_BASE_URL", "https://services.nvd.nist.gov"),
		IPInfoBaseURL: getEnv("IPINFO_BASE_URL", "https://ipinfo.io"),

		// Phishing scan
		TargetDomain:     getEnv("TARGET_DOMAIN", "www.tamm.abudhabi"),
		TargetBaseURL:    getEnv("TARGET_BASE_URL", "https://www.tamm.abudhabi"),
		PersistThreshold: getEnvAsFloat("PERSIST_THRESHOLD", 50),
		ScanRetention:    getEnvAsDuration("SCAN_RETENTION", 30*time.Minute),
		ScanConcurrency:  getEnvAsInt("SCAN_CONCURRENCY", 5),

		// Evidence archive
		ArchiveEndpoint:  getEnv("ARCHIVE_ENDPOINT", ""),
		ArchiveAccessKey: getEnv("ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		ArchiveBucket:    getEnv("ARCHIVE_BUCKET", "threatboard-evidence"),
		ArchiveRegion:    getEnv("ARCHIVE_REGION", "auto"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TargetDomain == "" {
		return errors.New("TARGET_DOMAIN must not be empty")
	}
	if c.PersistThreshold < 0 || c.PersistThreshold > 100 {
		return errors.New("PERSIST_THRESHOLD must be between 0 and 100")
	}
	if c.FetchBatchSize < 1 {
		return errors.New("FETCH_BATCH_SIZE must be positive")
	}
	return nil
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %f", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsSlice(name string, defaultVal []string) []string {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	parts := strings.Split(valueStr, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
