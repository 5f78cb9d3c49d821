// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from PRODHUB_* environment variables
// with sensible defaults. A .env file may be loaded first with LoadDotEnv; variables
// already present in the environment win.
//
// # Configuration Structure
//
// Server settings:
//
//	PRODHUB_HOST="0.0.0.0"
//	PRODHUB_PORT="8080"
//	PRODHUB_ALLOWED_ORIGINS="http://localhost:3000,https://app.example.com"
//	PRODHUB_MAX_BODY_BYTES="1048576"
//
// Storage settings:
//
//	PRODHUB_DATABASE_URL="postgres://localhost/prodhub?sslmode=disable"  # required
//	PRODHUB_DATABASE_MAX_OPEN_CONNS="25"
//	PRODHUB_REDIS_URL="redis://localhost:6379/0"  # optional
//
// Credential settings:
//
//	PRODHUB_JWT_SECRET="..."        # required, at least 32 bytes
//	PRODHUB_TOKEN_TTL="24h"
//	PRODHUB_BCRYPT_COST="10"
//	PRODHUB_LOGIN_MAX_ATTEMPTS="10"
//	PRODHUB_LOGIN_WINDOW="1m"
//
// Module catalog:
//
//	PRODHUB_CATALOG_FILE="configs/modules.yaml"
//	PRODHUB_CATALOG_WATCH="true"
//	PRODHUB_CATALOG_CACHE_TTL="5m"
//
// Observability:
//
//	PRODHUB_LOG_LEVEL="info"  # debug, info, warn, error
//	PRODHUB_METRICS_ENABLED="true"
//	PRODHUB_STATS_SCHEDULE="@every 5m"
//	PRODHUB_OTEL_ENABLED="false"
//	PRODHUB_OTEL_ENDPOINT="localhost:4317"
//
// # Usage
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
