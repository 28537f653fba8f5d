// Package config loads the full service configuration from the environment
// once, in cmd/server. Nothing below the composition root reads env vars;
// components receive the relevant section explicitly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration object.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Feed     FeedConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds connection pool settings for the document store.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NATSConfig holds the optional event bus settings.
type NATSConfig struct {
	Enabled bool
	URL     string
}

// FeedConfig holds the document feed engine settings.
type FeedConfig struct {
	DefaultTimeRange        string // named range applied when the request carries none
	DefaultLimit            int
	MaxLimit                int
	QueryTimeout            time.Duration
	TimeLocation            string // IANA zone used to resolve explicit dates
	SnapshotEnabled         bool
	SnapshotTimeRange       string // named range the snapshot materializes
	SnapshotRefreshInterval time.Duration
}

// Load reads configuration from the environment. A .env file is applied
// first when present (local development only).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:        getString("SERVICE_NAME", "be-prs-dashboard"),
			Version:     getString("SERVICE_VERSION", "dev"),
			Environment: getString("ENVIRONMENT", "development"),
		},
		Server: ServerConfig{
			Port:            getInt("SERVER_PORT", 8097),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getString("DB_HOST", "localhost"),
			Port:            getInt("DB_PORT", 5432),
			User:            getString("DB_USER", "postgres"),
			Password:        getString("DB_PASSWORD", ""),
			Database:        getString("DB_NAME", "procurement"),
			SSLMode:         getString("DB_SSLMODE", "disable"),
			MaxConns:        int32(getInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime: getDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		NATS: NATSConfig{
			Enabled: getBool("NATS_ENABLED", false),
			URL:     getString("NATS_URL", "nats://localhost:4222"),
		},
		Feed: FeedConfig{
			DefaultTimeRange:        getString("FEED_DEFAULT_TIME_RANGE", "6_months"),
			DefaultLimit:            getInt("FEED_DEFAULT_LIMIT", 10),
			MaxLimit:                getInt("FEED_MAX_LIMIT", 100),
			QueryTimeout:            getDuration("FEED_QUERY_TIMEOUT", 20*time.Second),
			TimeLocation:            getString("FEED_TIME_LOCATION", "Asia/Manila"),
			SnapshotEnabled:         getBool("FEED_SNAPSHOT_ENABLED", false),
			SnapshotTimeRange:       getString("FEED_SNAPSHOT_TIME_RANGE", "6_months"),
			SnapshotRefreshInterval: getDuration("FEED_SNAPSHOT_REFRESH_INTERVAL", time.Minute),
		},
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT %d", cfg.Server.Port)
	}
	if cfg.Feed.DefaultLimit < 1 || cfg.Feed.MaxLimit < cfg.Feed.DefaultLimit {
		return nil, fmt.Errorf("invalid feed limits: default=%d max=%d", cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit)
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
