package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeRunLockUnavailable, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeRunLockUnavailable, "lock not held by this owner")
)

type DistributedLock interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Owner() string
}

type LockFactory interface {
	NewMutex(name string, opts ...LockOption) DistributedLock
}

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

type redisLockFactory struct {
	client *Client
	log    logging.Logger
}

func NewLockFactory(client *Client, log logging.Logger) LockFactory {
	return &redisLockFactory{
		client: client,
		log:    log,
	}
}

func (f *redisLockFactory) NewMutex(name string, opts ...LockOption) DistributedLock {
	cfg := lockConfig{
		ttl:        config.DefaultLockTTL,
		retryDelay: 100 * time.Millisecond,
		retryCount: 1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.watchdogEnabled {
		cfg.watchdogInterval = cfg.ttl / 3
	}

	return &redisMutex{
		client: f.client,
		name:   name,
		value:  generateLockValue(),
		config: cfg,
		logger: f.log,
	}
}

// Mutex Implementation

type redisMutex struct {
	client         *Client
	name           string
	value          string
	config         lockConfig
	logger         logging.Logger
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

var mutexUnlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var mutexExtendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock tries up to retryCount times, waiting retryDelay between tries.
func (m *redisMutex) Lock(ctx context.Context) error {
	for i := 0; i < m.config.retryCount; i++ {
		ok, err := m.tryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == m.config.retryCount-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.config.retryDelay):
		}
	}
	return ErrLockNotAcquired.WithDetail(m.name)
}

func (m *redisMutex) tryLock(ctx context.Context) (bool, error) {
	success, err := m.client.SetNX(ctx, m.key(), m.value, m.config.ttl).Result()
	if err != nil && err != redis.Nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	if success && m.config.watchdogEnabled {
		m.startWatchdog()
	}
	return success, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	res, err := mutexUnlockScript.Run(ctx, m.client.GetUnderlyingClient(), []string{m.key()}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if res == 0 {
		return ErrLockNotHeld.WithDetail(m.name)
	}
	return nil
}

func (m *redisMutex) extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := mutexExtendScript.Run(ctx, m.client.GetUnderlyingClient(), []string{m.key()}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (m *redisMutex) Owner() string { return m.value }

func (m *redisMutex) key() string { return buildLockKey("mutex", m.name) }

func (m *redisMutex) startWatchdog() {
	ctx, cancel := context.WithCancel(context.Background())
	m.watchdogCancel = cancel
	m.watchdogDone = make(chan struct{})

	go runWatchdog(ctx, m.extend, m.config.watchdogInterval, m.config.ttl, m.logger, m.watchdogDone)
}

func (m *redisMutex) stopWatchdog() {
	if m.watchdogCancel != nil {
		m.watchdogCancel()
		<-m.watchdogDone
		m.watchdogCancel = nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Run lock
// ─────────────────────────────────────────────────────────────────────────────

// RunLock serializes ingest runs against one store through a Redis mutex.
// The mutex is kept alive by a watchdog for as long as the run holds it.
type RunLock struct {
	factory LockFactory
	cfg     config.LockConfig
	log     logging.Logger
}

// NewRunLock returns a RunLock using cfg.Name, cfg.TTL and cfg.Wait.
func NewRunLock(client *Client, cfg config.LockConfig, log logging.Logger) *RunLock {
	return &RunLock{factory: NewLockFactory(client, log), cfg: cfg, log: log}
}

// Acquire takes the lock, waiting up to cfg.Wait for a concurrent run to
// release it.
func (l *RunLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	const retryDelay = 500 * time.Millisecond
	attempts := 1
	if l.cfg.Wait > 0 {
		attempts += int(l.cfg.Wait / retryDelay)
	}

	ttl := l.cfg.TTL
	if ttl <= 0 {
		ttl = config.DefaultLockTTL
	}

	mutex := l.factory.NewMutex(l.cfg.Name,
		WithLockTTL(ttl),
		WithRetryCount(attempts),
		WithRetryDelay(retryDelay),
		WithWatchdog(true),
	)
	if err := mutex.Lock(ctx); err != nil {
		return nil, err
	}

	l.log.Info("run lock acquired",
		logging.String("lock", l.cfg.Name),
		logging.String("owner", mutex.Owner()),
	)
	return func(ctx context.Context) error {
		if err := mutex.Unlock(ctx); err != nil {
			return err
		}
		l.log.Info("run lock released", logging.String("lock", l.cfg.Name))
		return nil
	}, nil
}

// Helpers

func generateLockValue() string {
	return uuid.New().String()
}

func buildLockKey(lockType, name string) string {
	return "scholar:lock:" + lockType + ":" + name
}

func runWatchdog(ctx context.Context, extendFn func(context.Context, time.Duration) (bool, error), interval time.Duration, ttl time.Duration, log logging.Logger, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extendFn(ctx, ttl)
			if err != nil {
				log.Error("Watchdog failed to extend lock", logging.Err(err))
				return
			}
			if !ok {
				log.Warn("Watchdog lost lock")
				return
			}
		}
	}
}

//Personal.AI order the ending
