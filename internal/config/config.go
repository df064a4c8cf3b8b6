package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendSQL      = "sql"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

const defaultSecretKey = "your-secret-key-change-in-production"

// Config holds application configuration
type Config struct {
	App   AppConfig
	Log   LogConfig
	Store StoreConfig
	Auth  AuthConfig
	CORS  CORSConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name      string
	Version   string
	Debug     bool
	Port      string
	Host      string
	APIPrefix string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// StoreConfig selects and configures the key/value backend
type StoreConfig struct {
	Backend     string
	DatabaseURL string
	Redis       RedisConfig
	Dynamo      DynamoConfig
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DynamoConfig holds DynamoDB table settings
type DynamoConfig struct {
	Table    string
	Region   string
	Endpoint string // optional, for local DynamoDB
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	SecretKey          string
	TokenExpiryMinutes int
	// PublicAPIKey is the shared anonymous key the marketing site sends with
	// form submissions. Empty disables the check.
	PublicAPIKey string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	debug := getEnvAsBool("DEBUG", false)
	logFormat := "json"
	if debug {
		logFormat = "console"
	}

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "Enquiry Desk API"),
			Version:   getEnv("APP_VERSION", "1.0.0"),
			Debug:     debug,
			Port:      getEnv("PORT", "8000"),
			Host:      getEnv("HOST", "0.0.0.0"),
			APIPrefix: normalizePrefix(getEnv("API_PREFIX", "/api/v1")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", logFormat),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("STORE_BACKEND", BackendSQL)),
			DatabaseURL: getEnv("DATABASE_URL", "sqlite:///./enquirydesk.db"),
			Redis: RedisConfig{
				Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
			Dynamo: DynamoConfig{
				Table:    getEnv("DYNAMODB_TABLE", "kv_store"),
				Region:   getEnv("AWS_REGION", "eu-west-2"),
				Endpoint: getEnv("DYNAMODB_ENDPOINT", ""),
			},
		},
		Auth: AuthConfig{
			SecretKey:          getEnv("SECRET_KEY", defaultSecretKey),
			TokenExpiryMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60),
			PublicAPIKey:       getEnv("PUBLIC_API_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         600,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	switch cfg.Store.Backend {
	case BackendSQL:
		if cfg.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the sql backend")
		}
	case BackendRedis:
		if cfg.Store.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR must be set for the redis backend")
		}
	case BackendDynamoDB:
		if cfg.Store.Dynamo.Table == "" {
			return fmt.Errorf("DYNAMODB_TABLE must be set for the dynamodb backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}
	if cfg.Auth.SecretKey == "" || cfg.Auth.SecretKey == defaultSecretKey {
		return fmt.Errorf("SECRET_KEY must be set and changed from default value")
	}
	if len(cfg.Auth.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters")
	}
	if cfg.Auth.TokenExpiryMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be greater than 0")
	}
	return nil
}

// Addr returns the listen address
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *StoreConfig) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://") ||
		strings.Contains(c.DatabaseURL, "host=")
}

// SQLitePath extracts the SQLite file path from the database URL
func (c *StoreConfig) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite:///")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}
