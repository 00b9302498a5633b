package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "SCHOLARETL"

// Loader failure classes.
var (
	ErrConfigFileNotFound = errors.New("config: file not found")
	ErrConfigParseError   = errors.New("config: parse error")
	ErrConfigValidation   = errors.New("config: validation failed")
)

// envKeys lists every key that may be supplied through the environment alone.
// viper only consults AutomaticEnv for keys it already knows about during
// Unmarshal, so each one is bound explicitly.
var envKeys = []string{
	"source.path", "source.delimiter",
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns", "database.max_idle_conns",
	"database.conn_max_lifetime", "database.conn_max_idle_time",
	"database.statement_timeout", "database.lock_timeout",
	"pipeline.batch_size", "pipeline.entity_chunk_size", "pipeline.max_attempts",
	"pipeline.retry_delay", "pipeline.retry_multiplier", "pipeline.max_retry_delay",
	"pipeline.on_batch_failure", "pipeline.author_count", "pipeline.current_year",
	"pipeline.pipelined",
	"redis.addr", "redis.password", "redis.db", "redis.dial_timeout",
	"redis.lock.enabled", "redis.lock.name", "redis.lock.ttl", "redis.lock.wait",
	"kafka.brokers", "kafka.topic", "kafka.batch_timeout", "kafka.write_timeout", "kafka.required_acks",
	"minio.endpoint", "minio.access_key_id", "minio.secret_access_key", "minio.use_ssl", "minio.region",
	"metrics.namespace", "metrics.pushgateway_url", "metrics.job",
	"log.level", "log.format", "log.output_paths",
}

// newViper builds a Viper instance with YAML file type, the SCHOLARETL_ env
// prefix and a "." → "_" key replacer, so "database.host" resolves to
// SCHOLARETL_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges SCHOLARETL_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrConfigFileNotFound)
	}
	return LoadWith(configPath)
}

// LoadFromEnv builds a Config entirely from SCHOLARETL_* environment
// variables and defaults.
//
//	SCHOLARETL_<SECTION>_<FIELD>   e.g.  SCHOLARETL_SOURCE_PATH, SCHOLARETL_PIPELINE_BATCH_SIZE
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOptional loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOptional(configPath string) (*Config, error) {
	return LoadWith(configPath)
}

// Override mutates a Config after file and environment values are merged and
// before defaults and validation run. Command-line flags use it.
type Override func(*Config)

// LoadWith is LoadOptional with overrides applied on top of the file and
// environment, giving the precedence flags > env > file > defaults.
func LoadWith(configPath string, overrides ...Override) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %q: %v", ErrConfigFileNotFound, configPath, err)
			}
			return nil, fmt.Errorf("%w: %q: %v", ErrConfigParseError, configPath, err)
		}
	}
	return unmarshalAndFinalize(v, overrides...)
}

func unmarshalAndFinalize(v *viper.Viper, overrides ...Override) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}

	for _, o := range overrides {
		o(cfg)
	}
	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}

	return cfg, nil
}

// MustLoad is Load that panics on error. Intended for main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
