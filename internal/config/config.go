// Package config defines the configuration structures of the scholar ingest
// pipeline. No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Batch failure policies.
const (
	OnBatchFailureAbort = "abort"
	OnBatchFailureSkip  = "skip"
)

// author_count policies for paper_metrics.
const (
	AuthorCountResolved = "resolved"
	AuthorCountListed   = "listed"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// SourceConfig locates the input table. Path is a local file path or an
// object location of the form s3://bucket/key.
type SourceConfig struct {
	Path      string `mapstructure:"path"`
	Delimiter string `mapstructure:"delimiter"`
}

// IsObjectStore reports whether Path refers to object storage.
func (s SourceConfig) IsObjectStore() bool {
	return strings.HasPrefix(s.Path, "s3://")
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int           `mapstructure:"max_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
}

// PipelineConfig holds the tunables of a single ingest run.
type PipelineConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	EntityChunkSize int           `mapstructure:"entity_chunk_size"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	RetryMultiplier float64       `mapstructure:"retry_multiplier"`
	MaxRetryDelay   time.Duration `mapstructure:"max_retry_delay"`
	OnBatchFailure  string        `mapstructure:"on_batch_failure"` // "abort" | "skip"
	AuthorCount     string        `mapstructure:"author_count"`     // "resolved" | "listed"
	CurrentYear     int           `mapstructure:"current_year"`     // 0 = wall clock
	Pipelined       bool          `mapstructure:"pipelined"`
}

// LockConfig controls the distributed run lock.
type LockConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Name    string        `mapstructure:"name"`
	TTL     time.Duration `mapstructure:"ttl"`
	Wait    time.Duration `mapstructure:"wait"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Lock        LockConfig    `mapstructure:"lock"`
}

// KafkaConfig holds lifecycle event producer parameters. Events are disabled
// when Brokers is empty.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// Enabled reports whether lifecycle events should be published.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// MinIOConfig holds object storage connection parameters.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
}

// MetricsConfig controls the Prometheus registry and the optional Pushgateway
// push at the end of a run.
type MetricsConfig struct {
	Namespace      string `mapstructure:"namespace"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LogConfig holds logger parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Database DatabaseConfig `mapstructure:"database"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	// Source
	if c.Source.Path == "" {
		return fmt.Errorf("config: source.path is required")
	}
	if len([]rune(c.Source.Delimiter)) != 1 {
		return fmt.Errorf("config: source.delimiter must be a single character, got %q", c.Source.Delimiter)
	}
	if c.Source.IsObjectStore() && c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required for source %q", c.Source.Path)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Pipeline
	p := c.Pipeline
	if p.BatchSize < 1 {
		return fmt.Errorf("config: pipeline.batch_size must be >= 1, got %d", p.BatchSize)
	}
	if p.EntityChunkSize < 1 {
		return fmt.Errorf("config: pipeline.entity_chunk_size must be >= 1, got %d", p.EntityChunkSize)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("config: pipeline.max_attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.RetryDelay < 0 {
		return fmt.Errorf("config: pipeline.retry_delay must not be negative")
	}
	if p.RetryMultiplier < 1 {
		return fmt.Errorf("config: pipeline.retry_multiplier must be >= 1, got %g", p.RetryMultiplier)
	}
	switch p.OnBatchFailure {
	case OnBatchFailureAbort, OnBatchFailureSkip:
	default:
		return fmt.Errorf("config: pipeline.on_batch_failure %q is invalid; expected abort|skip", p.OnBatchFailure)
	}
	switch p.AuthorCount {
	case AuthorCountResolved, AuthorCountListed:
	default:
		return fmt.Errorf("config: pipeline.author_count %q is invalid; expected resolved|listed", p.AuthorCount)
	}
	if p.CurrentYear < 0 {
		return fmt.Errorf("config: pipeline.current_year must not be negative")
	}

	// Redis
	if c.Redis.Lock.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when redis.lock.enabled is set")
		}
		if c.Redis.Lock.TTL <= 0 {
			return fmt.Errorf("config: redis.lock.ttl must be positive")
		}
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Kafka
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("config: kafka.topic is required when kafka.brokers is set")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
