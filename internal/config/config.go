package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBSQLitePath      string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	AutoMigrate       bool

	RateLimit    RateLimitConfig
	Warranty     WarrantyConfig
	SalesMetrics SalesMetricsConfig
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QuoteIssueRate  float64
	QuoteIssueBurst int
	// QuoteIssueLockTTLSeconds bounds how long one job reference is held
	// while a quote for it is being issued.
	QuoteIssueLockTTLSeconds int
}

type WarrantyConfig struct {
	// CatalogFile overrides the warranty.yml search path when set.
	CatalogFile string
	Currency    string
}

// SalesMetricsConfig controls pushing issuance totals to a central
// Prometheus via remote_write or a Pushgateway.
type SalesMetricsConfig struct {
	Enabled         bool
	Exporter        string
	Endpoint        string
	AuthToken       string
	IntervalSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "warranty"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "warranty"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:      getenv("DATABASE_SQLITE_PATH", "warranty.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		AutoMigrate:       getenvBool("DATABASE_AUTO_MIGRATE", true),
		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:       strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379")),
			RedisPassword:   strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:         getenvInt("RATE_LIMIT_REDIS_DB", 0),
			QuoteIssueRate:  getenvFloat("RATE_LIMIT_QUOTE_ISSUE_RATE", 1),
			QuoteIssueBurst: getenvInt("RATE_LIMIT_QUOTE_ISSUE_BURST", 10),

			QuoteIssueLockTTLSeconds: getenvInt("RATE_LIMIT_QUOTE_ISSUE_LOCK_TTL_SECONDS", 5),
		},
		Warranty: WarrantyConfig{
			CatalogFile: strings.TrimSpace(getenv("WARRANTY_CATALOG_FILE", "")),
			Currency:    strings.ToUpper(getenv("WARRANTY_CURRENCY", "USD")),
		},
		SalesMetrics: SalesMetricsConfig{
			Enabled:         getenvBool("SALES_METRICS_ENABLED", false),
			Exporter:        strings.ToLower(strings.TrimSpace(getenv("SALES_METRICS_EXPORTER", "prometheus_remote_write"))),
			Endpoint:        strings.TrimSpace(getenv("SALES_METRICS_ENDPOINT", "")),
			AuthToken:       strings.TrimSpace(getenv("SALES_METRICS_AUTH_TOKEN", "")),
			IntervalSeconds: getenvInt("SALES_METRICS_INTERVAL_SECONDS", 300),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
