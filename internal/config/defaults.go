package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultSourceDelimiter = ","

	DefaultDBHost             = "localhost"
	DefaultDBPort             = 5432
	DefaultDBUser             = "postgres"
	DefaultDBName             = "scholar"
	DefaultDBSSLMode          = "disable"
	DefaultDBMaxConns         = 4
	DefaultDBMaxIdleConns     = 2
	DefaultDBConnMaxLifetime  = 30 * time.Minute
	DefaultDBConnMaxIdleTime  = 5 * time.Minute
	DefaultDBStatementTimeout = 5 * time.Minute
	DefaultDBLockTimeout      = 10 * time.Second

	DefaultBatchSize       = 500
	DefaultEntityChunkSize = 500
	DefaultMaxAttempts     = 3
	DefaultRetryDelay      = time.Second
	DefaultRetryMultiplier = 1.0
	DefaultMaxRetryDelay   = 30 * time.Second
	DefaultOnBatchFailure  = OnBatchFailureAbort
	DefaultAuthorCount     = AuthorCountResolved

	DefaultRedisDialTimeout = 5 * time.Second
	DefaultLockName         = "scholar-ingest"
	DefaultLockTTL          = 30 * time.Second

	DefaultKafkaTopic        = "scholar.ingest.events"
	DefaultKafkaBatchTimeout = 10 * time.Millisecond
	DefaultKafkaWriteTimeout = 10 * time.Second
	DefaultKafkaRequiredAcks = 1

	DefaultMetricsNamespace = "scholar_etl"
	DefaultMetricsJob       = "scholar_ingest"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default. Values
// already set are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Source ────────────────────────────────────────────────────────────────
	if cfg.Source.Delimiter == "" {
		cfg.Source.Delimiter = DefaultSourceDelimiter
	}

	// ── Database ──────────────────────────────────────────────────────────────
	d := &cfg.Database
	if d.Host == "" {
		d.Host = DefaultDBHost
	}
	if d.Port == 0 {
		d.Port = DefaultDBPort
	}
	if d.User == "" {
		d.User = DefaultDBUser
	}
	if d.DBName == "" {
		d.DBName = DefaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = DefaultDBSSLMode
	}
	if d.MaxConns == 0 {
		d.MaxConns = DefaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = DefaultDBConnMaxLifetime
	}
	if d.ConnMaxIdleTime == 0 {
		d.ConnMaxIdleTime = DefaultDBConnMaxIdleTime
	}
	if d.StatementTimeout == 0 {
		d.StatementTimeout = DefaultDBStatementTimeout
	}
	if d.LockTimeout == 0 {
		d.LockTimeout = DefaultDBLockTimeout
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	p := &cfg.Pipeline
	if p.BatchSize == 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.EntityChunkSize == 0 {
		p.EntityChunkSize = DefaultEntityChunkSize
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.RetryDelay == 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.RetryMultiplier == 0 {
		p.RetryMultiplier = DefaultRetryMultiplier
	}
	if p.MaxRetryDelay == 0 {
		p.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if p.OnBatchFailure == "" {
		p.OnBatchFailure = DefaultOnBatchFailure
	}
	if p.AuthorCount == "" {
		p.AuthorCount = DefaultAuthorCount
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.Lock.Name == "" {
		cfg.Redis.Lock.Name = DefaultLockName
	}
	if cfg.Redis.Lock.TTL == 0 {
		cfg.Redis.Lock.TTL = DefaultLockTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}
	if cfg.Kafka.RequiredAcks == 0 {
		cfg.Kafka.RequiredAcks = DefaultKafkaRequiredAcks
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = DefaultMetricsJob
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
