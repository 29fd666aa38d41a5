// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. SSO clients come either from a YAML file or,
// for a single client, from environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	HANDOFF_HOST="0.0.0.0"
//	HANDOFF_PORT="8080"
//	HANDOFF_HEALTH_PORT="9090"
//	HANDOFF_READ_TIMEOUT="15s"
//	HANDOFF_SHUTDOWN_TIMEOUT="30s"
//	HANDOFF_RATE_LIMIT_REQUESTS="60"  # per client IP and window, 0 disables
//	HANDOFF_RATE_LIMIT_WINDOW="1m"
//	HANDOFF_TRUSTED_PROXIES="10.0.0.0/8"  # peers whose X-Forwarded-For is believed
//
// Token store settings:
//
//	HANDOFF_STORE_TYPE="redis"  # memory, redis, postgres
//	HANDOFF_REDIS_URL="redis://localhost:6379/0"
//	HANDOFF_POSTGRES_URL="postgres://localhost/handoff?sslmode=disable"
//	HANDOFF_POSTGRES_AUTO_MIGRATE="true"
//	HANDOFF_SWEEP_SCHEDULE="@every 1m"
//
// SSO settings:
//
//	HANDOFF_CLIENTS_FILE="/etc/handoff/clients.yaml"
//	HANDOFF_CLIENTS_WATCH="true"  # reload the file on change
//	HANDOFF_LOGIN_URL="https://idp.example.com/login"  # single client without a file
//	HANDOFF_CLIENT_NAME="default"
//	HANDOFF_BASE_URL="https://app.example.com"
//	HANDOFF_ALLOWED_REDIRECT_HOSTS="app.example.com,admin.example.com"
//	HANDOFF_ISSUER_SECRET="..."  # enables POST /sso/{client}/tokens
//
// Observability settings:
//
//	HANDOFF_LOG_LEVEL="info"  # debug, info, warn, error
//	HANDOFF_LOG_FORMAT="json"  # json, text
//	HANDOFF_METRICS_ENABLED="true"
//	HANDOFF_OTEL_ENABLED="true"
//	HANDOFF_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Token store: %s\n", cfg.Store.Type)
//	fmt.Printf("Clients: %d\n", len(cfg.SSO.Clients))
//
// # Related Packages
//
//   - pkg/tokenstore: Uses token store configuration
//   - pkg/sso: Uses client and handler configuration
//   - pkg/observability: Uses observability configuration
package config
