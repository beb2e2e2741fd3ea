// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Storage backends for uploaded files.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"RHUB_DB_PATH" envDefault:"./data/resourcehub.db"`
	SessionSecret string `env:"RHUB_SESSION_SECRET,required"`
	ServerHost    string `env:"RHUB_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"RHUB_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"RHUB_ENV" envDefault:"development"`
	LogLevel      string `env:"RHUB_LOG_LEVEL" envDefault:"info"`

	// Upload storage. Storage is "local" or "s3"; an empty OrphanSweep
	// disables the orphaned upload sweeper.
	Storage          string        `env:"RHUB_STORAGE" envDefault:"local"`
	UploadsDir       string        `env:"RHUB_UPLOADS_DIR" envDefault:"./uploads"`
	UploadsURLPrefix string        `env:"RHUB_UPLOADS_URL_PREFIX" envDefault:"/uploads"`
	OrphanSweep      string        `env:"RHUB_ORPHAN_SWEEP" envDefault:"@hourly"`
	OrphanMaxAge     time.Duration `env:"RHUB_ORPHAN_MAX_AGE" envDefault:"1h"`

	// S3 backend. S3Endpoint is set for MinIO and other compatible stores;
	// S3PublicURL is the base of the locators written to resources.
	S3Bucket    string `env:"RHUB_S3_BUCKET"`
	S3Region    string `env:"RHUB_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"RHUB_S3_ENDPOINT"`
	S3AccessKey string `env:"RHUB_S3_ACCESS_KEY"`
	S3SecretKey string `env:"RHUB_S3_SECRET_KEY"`
	S3PublicURL string `env:"RHUB_S3_PUBLIC_URL"`

	// Cache configuration
	RedisURL     string `env:"RHUB_REDIS_URL"`                        // Optional Redis URL for distributed caching
	CachePrefix  string `env:"RHUB_CACHE_PREFIX" envDefault:"rhub:"`  // Redis key prefix
	CacheTTL     int    `env:"RHUB_CACHE_TTL" envDefault:"0"`         // Listing cache TTL in seconds, 0 disables
	CacheMaxSize int    `env:"RHUB_CACHE_MAX_SIZE" envDefault:"1000"` // Max memory cache entries

	// API bearer tokens
	TokenTTL time.Duration `env:"RHUB_TOKEN_TTL" envDefault:"24h"`

	MetricsEnabled bool `env:"RHUB_METRICS_ENABLED" envDefault:"true"`

	// Event log retention. An empty EventCleanup disables pruning.
	EventCleanup   string        `env:"RHUB_EVENT_CLEANUP" envDefault:"@daily"`
	EventRetention time.Duration `env:"RHUB_EVENT_RETENTION" envDefault:"720h"`

	// Seeding configuration
	DoSeed        bool   `env:"RHUB_DO_SEED" envDefault:"false"`
	AdminEmail    string `env:"RHUB_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"RHUB_ADMIN_PASSWORD" envDefault:"password123"`
	AdminName     string `env:"RHUB_ADMIN_NAME" envDefault:"Admin User"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseS3 returns true if uploads go to an S3 bucket.
func (c Config) UseS3() bool {
	return c.Storage == StorageS3
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("RHUB_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("RHUB_SESSION_SECRET is a known default value and must not be used; "+
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	switch cfg.Storage {
	case StorageLocal:
	case StorageS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("RHUB_S3_BUCKET is required when RHUB_STORAGE=s3")
		}
	default:
		return nil, fmt.Errorf("RHUB_STORAGE must be %q or %q, got %q", StorageLocal, StorageS3, cfg.Storage)
	}

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("RHUB_TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("RHUB_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
