package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// AdminEmails designates callers that are classified admin without a
	// directory lookup. Comma-separated in the environment.
	AdminEmails []string

	// RoleLookupTimeoutSeconds bounds directory fetches during role
	// classification. On expiry the caller is classified as a plain
	// employee.
	RoleLookupTimeoutSeconds int

	// PolicyConfigPath optionally points at the travel policy YAML file.
	// Empty means the standard search paths plus compiled-in defaults.
	PolicyConfigPath string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig

	SeedDemoData bool
}

// RateLimitConfig configures the optional redis-backed claim submission
// limiter. Disabled unless Enabled is set and a redis address is provided.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ClaimSubmitRate  float64
	ClaimSubmitBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:                  getenv("APP_SERVICE", "claimflow"),
		AppVersion:               getenv("APP_VERSION", "0.1.0"),
		Environment:              getenv("ENVIRONMENT", "development"),
		HTTPAddr:                 getenv("HTTP_ADDR", ":8080"),
		AdminEmails:              splitList(getenv("ADMIN_EMAILS", "")),
		RoleLookupTimeoutSeconds: getenvInt("ROLE_LOOKUP_TIMEOUT_SECONDS", 3),
		PolicyConfigPath:         strings.TrimSpace(getenv("TRAVEL_POLICY_PATH", "")),
		DBType:                   getenv("DATABASE_TYPE", "postgres"),
		DBHost:                   getenv("DATABASE_HOST", "localhost"),
		DBPort:                   getenv("DATABASE_PORT", "5432"),
		DBName:                   getenv("DATABASE_NAME", "claimflow"),
		DBUser:                   getenv("DATABASE_USER", "postgres"),
		DBPassword:               getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:                getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:            getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:            getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime:        getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime:        getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		RateLimit: RateLimitConfig{
			Enabled:          getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:        getenv("RATE_LIMIT_REDIS_ADDR", ""),
			RedisPassword:    getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:          getenvInt("RATE_LIMIT_REDIS_DB", 0),
			ClaimSubmitRate:  getenvFloat("RATE_LIMIT_CLAIM_SUBMIT_RATE", 1),
			ClaimSubmitBurst: getenvInt("RATE_LIMIT_CLAIM_SUBMIT_BURST", 10),
		},
		SeedDemoData: getenvBool("SEED_DEMO_DATA", false),
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
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

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		values = append(values, part)
	}
	return values
}
