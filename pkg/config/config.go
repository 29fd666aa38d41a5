package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/ratelimit"
	"github.com/platinummonkey/handoff/pkg/sso"
	"github.com/platinummonkey/handoff/pkg/tokenstore"
)

// DefaultClientName names the client built from HANDOFF_LOGIN_URL when no clients file is given
const DefaultClientName = "default"

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Token store configuration
	Store tokenstore.Config

	// SweepSchedule is the cron spec for purging expired Postgres rows
	SweepSchedule string

	// SSO clients and HTTP surface
	SSO SSOConfig

	// Observability configuration
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
	MaxBodyBytes    int64

	// RateLimit throttles SSO routes per client IP
	RateLimit ratelimit.Config

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// SSOConfig holds the delegation clients and the shared HTTP settings
type SSOConfig struct {
	Clients     []sso.ClientConfig
	ClientsFile string

	// WatchClientsFile reloads ClientsFile on change without a restart
	WatchClientsFile bool

	BaseURL              string
	SuccessURL           string
	DefaultURL           string
	AllowedRedirectHosts []string
	IssuerSecret         string
}

// HandlersConfig converts the shared settings for sso.NewHandlers
func (c SSOConfig) HandlersConfig() sso.HandlersConfig {
	return sso.HandlersConfig{
		BaseURL:              c.BaseURL,
		SuccessURL:           c.SuccessURL,
		DefaultURL:           c.DefaultURL,
		AllowedRedirectHosts: c.AllowedRedirectHosts,
		IssuerSecret:         c.IssuerSecret,
	}
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  observability.LogLevel
	LogFormat observability.LogFormat

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// OTelConfig converts the OpenTelemetry settings for observability.InitOTel
func (c ObservabilityConfig) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
		SampleRatio:    c.OTelSampleRatio,
	}
}

// LoadConfig loads configuration from environment variables and, when
// HANDOFF_CLIENTS_FILE is set, the clients file it names
func LoadConfig() (*Config, error) {
	ssoCfg, err := loadSSOConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:        loadServerConfig(),
		Store:         LoadStoreConfig(),
		SweepSchedule: getEnv("HANDOFF_SWEEP_SCHEDULE", tokenstore.DefaultSweepSchedule),
		SSO:           ssoCfg,
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HANDOFF_HOST", "0.0.0.0"),
		Port:            getEnv("HANDOFF_PORT", "8080"),
		ReadTimeout:     getEnvDuration("HANDOFF_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HANDOFF_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("HANDOFF_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("HANDOFF_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("HANDOFF_MAX_BODY_BYTES", 64<<10),
		RateLimit: ratelimit.Config{
			RequestsPerWindow: getEnvInt("HANDOFF_RATE_LIMIT_REQUESTS", ratelimit.DefaultConfig().RequestsPerWindow),
			Window:            getEnvDuration("HANDOFF_RATE_LIMIT_WINDOW", ratelimit.DefaultConfig().Window),
			Burst:             getEnvInt("HANDOFF_RATE_LIMIT_BURST", ratelimit.DefaultConfig().Burst),
			TrustedProxies:    getEnvList("HANDOFF_TRUSTED_PROXIES"),
		},
		HealthPort:      getEnv("HANDOFF_HEALTH_PORT", "9090"),
	}
}

// LoadStoreConfig loads token store configuration from environment
func LoadStoreConfig() tokenstore.Config {
	cfg := tokenstore.Config{
		Type:         strings.ToLower(getEnv("HANDOFF_STORE_TYPE", tokenstore.BackendMemory)),
		MemorySize:   getEnvInt("HANDOFF_MEMORY_SIZE", tokenstore.DefaultMemorySize),
		MemoryMaxTTL: getEnvDuration("HANDOFF_MEMORY_MAX_TTL", tokenstore.DefaultMemoryMaxTTL),
		AutoMigrate:  getEnvBool("HANDOFF_POSTGRES_AUTO_MIGRATE", true),
	}

	// Redis config
	cfg.Redis = tokenstore.RedisConfig{
		URL:        getEnv("HANDOFF_REDIS_URL", ""),
		Password:   getEnv("HANDOFF_REDIS_PASSWORD", ""),
		DB:         getEnvInt("HANDOFF_REDIS_DB", 0),
		PoolSize:   getEnvInt("HANDOFF_REDIS_POOL_SIZE", 10),
		MaxRetries: getEnvInt("HANDOFF_REDIS_MAX_RETRIES", 3),
	}

	// PostgreSQL config
	cfg.SQL = tokenstore.SQLConfig{
		URL:         getEnv("HANDOFF_POSTGRES_URL", ""),
		MaxConns:    getEnvInt("HANDOFF_POSTGRES_MAX_CONNS", 10),
		MinConns:    getEnvInt("HANDOFF_POSTGRES_MIN_CONNS", 2),
		MaxLifetime: getEnvDuration("HANDOFF_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		Timeout:     getEnvDuration("HANDOFF_POSTGRES_TIMEOUT", 5*time.Second),
	}

	return cfg
}

// loadSSOConfig loads the clients and the shared SSO HTTP settings
func loadSSOConfig() (SSOConfig, error) {
	cfg := SSOConfig{
		ClientsFile:          getEnv("HANDOFF_CLIENTS_FILE", ""),
		WatchClientsFile:     getEnvBool("HANDOFF_CLIENTS_WATCH", true),
		BaseURL:              getEnv("HANDOFF_BASE_URL", ""),
		SuccessURL:           getEnv("HANDOFF_SUCCESS_URL", sso.DefaultSuccessURL),
		DefaultURL:           getEnv("HANDOFF_DEFAULT_URL", sso.DefaultLandingURL),
		AllowedRedirectHosts: getEnvList("HANDOFF_ALLOWED_REDIRECT_HOSTS"),
		IssuerSecret:         getEnv("HANDOFF_ISSUER_SECRET", ""),
	}

	if cfg.ClientsFile != "" {
		clients, err := LoadClientsFile(cfg.ClientsFile)
		if err != nil {
			return cfg, err
		}
		cfg.Clients = clients
		return cfg, nil
	}

	if loginURL := getEnv("HANDOFF_LOGIN_URL", ""); loginURL != "" {
		cfg.Clients = []sso.ClientConfig{{
			Name:              getEnv("HANDOFF_CLIENT_NAME", DefaultClientName),
			LoginURL:          loginURL,
			TokenParameter:    getEnv("HANDOFF_TOKEN_PARAMETER", ""),
			RedirectParameter: getEnv("HANDOFF_REDIRECT_PARAMETER", ""),
			ErrorParameter:    getEnv("HANDOFF_ERROR_PARAMETER", ""),
			CookieName:        getEnv("HANDOFF_COOKIE_NAME", ""),
			KeyPrefix:         getEnv("HANDOFF_KEY_PREFIX", ""),
			LookupTimeout:     getEnvDuration("HANDOFF_LOOKUP_TIMEOUT", 0),
			TokenTTL:          getEnvDuration("HANDOFF_TOKEN_TTL", 0),
			SingleUse:         getEnvBool("HANDOFF_SINGLE_USE", false),
		}}
	}

	return cfg, nil
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("HANDOFF_LOG_LEVEL", "info")),
		LogFormat:          observability.LogFormat(strings.ToLower(getEnv("HANDOFF_LOG_FORMAT", string(observability.JSONFormat)))),
		MetricsEnabled:     getEnvBool("HANDOFF_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("HANDOFF_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("HANDOFF_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("HANDOFF_OTEL_SERVICE_NAME", "handoff"),
		OTelServiceVersion: getEnv("HANDOFF_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("HANDOFF_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("HANDOFF_OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if rl := c.Server.RateLimit; rl.RequestsPerWindow < 0 || rl.Burst < 0 {
		return fmt.Errorf("rate limit requests and burst must not be negative")
	} else if rl.RequestsPerWindow > 0 && rl.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive when limiting is enabled")
	}
	if _, err := ratelimit.ParseTrustedProxies(c.Server.RateLimit.TrustedProxies); err != nil {
		return err
	}

	// Validate store config based on type
	switch c.Store.Type {
	case tokenstore.BackendMemory:
	case tokenstore.BackendRedis:
		if c.Store.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for redis token store")
		}
	case tokenstore.BackendPostgres:
		if c.Store.SQL.URL == "" {
			return fmt.Errorf("postgres URL is required for postgres token store")
		}
		if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", c.SweepSchedule, err)
		}
	default:
		return fmt.Errorf("invalid token store type: %s (must be one of %s)",
			c.Store.Type, strings.Join(tokenstore.Backends(), ", "))
	}

	if err := c.SSO.validate(); err != nil {
		return err
	}

	switch c.Observability.LogFormat {
	case observability.JSONFormat, observability.TextFormat:
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}

	// Validate OpenTelemetry config
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

func (c SSOConfig) validate() error {
	if len(c.Clients) == 0 {
		return fmt.Errorf("at least one SSO client is required (set HANDOFF_LOGIN_URL or HANDOFF_CLIENTS_FILE)")
	}
	if err := ValidateClients(c.Clients); err != nil {
		return err
	}

	if c.SuccessURL == "" {
		return fmt.Errorf("success URL is required")
	}
	return nil
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

// getEnvFloat returns a float64 environment variable or a default
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

// getEnvList splits a comma separated environment variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
