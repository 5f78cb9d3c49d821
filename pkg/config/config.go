package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/platinummonkey/prodhub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Catalog       CatalogConfig
	Jobs          JobsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	MaxBodyBytes    int64
	TrustedProxies  []string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings. Redis is optional: an empty URL disables
// token revocation and login throttling.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuthConfig holds credential settings
type AuthConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	Issuer           string
	BcryptCost       int
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// CatalogConfig holds module catalog settings
type CatalogConfig struct {
	SeedFile string
	Watch    bool
	CacheTTL time.Duration
}

// JobsConfig holds background job schedules (cron syntax)
type JobsConfig struct {
	StatsSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
	OTelSampleRatio    float64
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Catalog:       loadCatalogConfig(),
		Jobs:          JobsConfig{StatsSchedule: getEnv("PRODHUB_STATS_SCHEDULE", "@every 5m")},
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PRODHUB_HOST", "0.0.0.0"),
		Port:            getEnv("PRODHUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PRODHUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PRODHUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PRODHUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PRODHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		AllowedOrigins:  getEnvList("PRODHUB_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxBodyBytes:    getEnvInt64("PRODHUB_MAX_BODY_BYTES", 1<<20),
		TrustedProxies:  getEnvList("PRODHUB_TRUSTED_PROXIES", nil),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("PRODHUB_DATABASE_URL", ""),
		MaxOpenConns:    getEnvInt("PRODHUB_DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("PRODHUB_DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("PRODHUB_DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("PRODHUB_REDIS_URL", ""),
		Password: getEnv("PRODHUB_REDIS_PASSWORD", ""),
		DB:       getEnvInt("PRODHUB_REDIS_DB", 0),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:        getEnv("PRODHUB_JWT_SECRET", ""),
		TokenTTL:         getEnvDuration("PRODHUB_TOKEN_TTL", 24*time.Hour),
		Issuer:           getEnv("PRODHUB_TOKEN_ISSUER", "prodhub"),
		BcryptCost:       getEnvInt("PRODHUB_BCRYPT_COST", 10),
		LoginMaxAttempts: getEnvInt("PRODHUB_LOGIN_MAX_ATTEMPTS", 10),
		LoginWindow:      getEnvDuration("PRODHUB_LOGIN_WINDOW", time.Minute),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		SeedFile: getEnv("PRODHUB_CATALOG_FILE", ""),
		Watch:    getEnvBool("PRODHUB_CATALOG_WATCH", false),
		CacheTTL: getEnvDuration("PRODHUB_CATALOG_CACHE_TTL", 5*time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("PRODHUB_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("PRODHUB_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PRODHUB_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PRODHUB_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PRODHUB_OTEL_SERVICE_NAME", "prodhub"),
		OTelServiceVersion: getEnv("PRODHUB_OTEL_SERVICE_VERSION", "dev"),
		OTelInsecure:       getEnvBool("PRODHUB_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("PRODHUB_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required (PRODHUB_DATABASE_URL)")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes (PRODHUB_JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if c.Catalog.Watch && c.Catalog.SeedFile == "" {
		return fmt.Errorf("catalog watch requires PRODHUB_CATALOG_FILE")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
			return fmt.Errorf("invalid trusted proxy %q (PRODHUB_TRUSTED_PROXIES)", proxy)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// OTel converts the observability settings into an observability.OTelConfig
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
