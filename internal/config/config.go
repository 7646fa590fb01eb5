/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Asset backend selection.
type AssetBackend string

const (
	AssetFilesystem AssetBackend = "filesystem"
	AssetS3         AssetBackend = "s3"
)

// Sink backend selection.
type SinkBackend string

const (
	SinkSpeaker SinkBackend = "speaker"
	SinkNull    SinkBackend = "null"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Playback configuration
	PollInterval  time.Duration // schedule arbiter poll interval
	DefaultVolume float64
	SinkBackend   SinkBackend
	DefaultTenant string // tenant to initialize at startup (optional)

	// Asset resolution
	AssetBackend AssetBackend
	MediaRoot    string // filesystem backend root
	MediaBaseURL string // public URL prefix for the filesystem backend

	// S3 object storage configuration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // for S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // required for MinIO
	S3PresignTTL      time.Duration

	// Redis cache configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS event bridge (optional)
	NATSURL string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("AMBIENT_ENV", "development"),
		HTTPBind:      getEnv("AMBIENT_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("AMBIENT_HTTP_PORT", 8080),
		DBBackend:     DatabaseBackend(getEnv("AMBIENT_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("AMBIENT_DB_DSN", ""),
		JWTSigningKey: getEnv("AMBIENT_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("AMBIENT_METRICS_BIND", "127.0.0.1:9000"),

		PollInterval:  time.Duration(getEnvInt("AMBIENT_POLL_INTERVAL_SECONDS", 10)) * time.Second,
		DefaultVolume: getEnvFloat("AMBIENT_DEFAULT_VOLUME", 0.5),
		SinkBackend:   SinkBackend(getEnv("AMBIENT_SINK_BACKEND", string(SinkSpeaker))),
		DefaultTenant: getEnv("AMBIENT_DEFAULT_TENANT", ""),

		AssetBackend: AssetBackend(getEnv("AMBIENT_ASSET_BACKEND", string(AssetFilesystem))),
		MediaRoot:    getEnv("AMBIENT_MEDIA_ROOT", "./media"),
		MediaBaseURL: getEnv("AMBIENT_MEDIA_BASE_URL", ""),

		S3AccessKeyID:     getEnvAny([]string{"AMBIENT_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"AMBIENT_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"AMBIENT_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"AMBIENT_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"AMBIENT_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBool("AMBIENT_S3_USE_PATH_STYLE", false),
		S3PresignTTL:      time.Duration(getEnvInt("AMBIENT_S3_PRESIGN_TTL_MINUTES", 60)) * time.Minute,

		RedisAddr:     getEnv("AMBIENT_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("AMBIENT_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("AMBIENT_REDIS_DB", 0),

		NATSURL: getEnv("AMBIENT_NATS_URL", ""),

		TracingEnabled:    getEnvBool("AMBIENT_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("AMBIENT_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("AMBIENT_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("AMBIENT_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("AMBIENT_JWT_SIGNING_KEY must be provided")
	}

	if cfg.AssetBackend != AssetFilesystem && cfg.AssetBackend != AssetS3 {
		return nil, fmt.Errorf("unsupported asset backend %q", cfg.AssetBackend)
	}

	if cfg.AssetBackend == AssetS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("AMBIENT_S3_BUCKET must be provided for the s3 asset backend")
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}

	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 1 {
		return nil, fmt.Errorf("AMBIENT_DEFAULT_VOLUME must be within [0,1]")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 16 {
		return nil, fmt.Errorf("AMBIENT_JWT_SIGNING_KEY must be at least 16 characters in production")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
