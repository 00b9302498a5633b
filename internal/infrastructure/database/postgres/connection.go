// Package postgres implements the relational store of the ingest pipeline on
// PostgreSQL through database/sql and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// driverName is the database/sql name registered by pgx/v5/stdlib.
const driverName = "pgx"

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 5 * time.Second

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// Connection manages the PostgreSQL connection pool.
type Connection struct {
	db     *sql.DB
	cfg    config.DatabaseConfig
	logger logging.Logger
	once   sync.Once
}

// NewConnection opens the pool and verifies connectivity. Any failure is
// reported as ErrCodeStoreConnection.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig, log logging.Logger) (*Connection, error) {
	db, err := sqlOpen(driverName, buildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreConnection, "failed to open database connection")
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreConnection, "database connection failed")
	}

	log.Info("Connected to PostgreSQL database",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName),
	)

	return &Connection{db: db, cfg: cfg, logger: log}, nil
}

// NewConnectionWithDB wraps an existing *sql.DB.
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	return &Connection{db: db, logger: log}
}

// DB returns the underlying *sql.DB.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// HealthCheck verifies the database is reachable.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreConnection, "database health check failed")
	}
	return nil
}

// Stats returns pool statistics.
func (c *Connection) Stats() sql.DBStats {
	return c.db.Stats()
}

// Close closes the pool once; later calls return nil.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
		if err == nil {
			c.logger.Info("Closed PostgreSQL database connection")
		} else {
			c.logger.Error("Failed to close PostgreSQL database connection", logging.Err(err))
		}
	})
	return err
}

// buildDSN constructs the connection URL. statement_timeout and lock_timeout
// are passed to the server as runtime parameters.
func buildDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.DBName,
	}

	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	if cfg.StatementTimeout > 0 {
		q.Set("statement_timeout", strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10))
	}
	if cfg.LockTimeout > 0 {
		q.Set("lock_timeout", strconv.FormatInt(cfg.LockTimeout.Milliseconds(), 10))
	}
	q.Set("application_name", "scholar-etl")

	u.RawQuery = q.Encode()
	return u.String()
}

//Personal.AI order the ending
