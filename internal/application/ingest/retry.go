package ingest

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// BatchState is the commit state of one batch.
type BatchState int

const (
	BatchPending BatchState = iota
	BatchCommitting
	BatchRetrying
	BatchCommitted
	BatchFailed
)

func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchCommitting:
		return "committing"
	case BatchRetrying:
		return "retrying"
	case BatchCommitted:
		return "committed"
	case BatchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can leave s.
func (s BatchState) Terminal() bool {
	return s == BatchCommitted || s == BatchFailed
}

// RetryPolicy bounds the attempts made for one operation.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// RetryPolicyFromConfig reads the retry settings of cfg.
func RetryPolicyFromConfig(cfg config.PipelineConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.RetryDelay,
		Multiplier:  cfg.RetryMultiplier,
		MaxDelay:    cfg.MaxRetryDelay,
	}
}

// newBackOff builds a fresh schedule. A multiplier of 1 gives a fixed delay.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Delay
	exp.RandomizationFactor = 0
	exp.Multiplier = p.Multiplier
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.MaxInterval = p.MaxDelay
	if exp.MaxInterval < p.Delay {
		exp.MaxInterval = p.Delay
	}
	exp.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Attempt describes one failed try handed to a RetryObserver.
type Attempt struct {
	Number int
	Err    error
	Wait   time.Duration
}

// RetryObserver is told about every attempt that will be retried.
type RetryObserver func(Attempt)

// Retrier runs operations under a RetryPolicy. Only errors classified as
// transient are retried; anything else returns at once. A Retrier keeps no
// state between calls.
type Retrier struct {
	policy RetryPolicy
	log    logging.Logger
}

// NewRetrier returns a Retrier for policy.
func NewRetrier(policy RetryPolicy, log logging.Logger) *Retrier {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Retrier{policy: policy, log: log.Named("retry")}
}

// Policy returns the policy in use.
func (r *Retrier) Policy() RetryPolicy { return r.policy }

// Do calls fn until it succeeds, returns a non-transient error, the attempts
// are exhausted, or ctx is done. It returns the number of attempts made and
// the last error.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) error, observe RetryObserver) (int, error) {
	attempts := 0
	operation := func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warn("transient failure, retrying",
			logging.String("operation", op),
			logging.Int(logging.FieldAttempt, attempts),
			logging.Int("max_attempts", r.policy.MaxAttempts),
			logging.Duration("wait", wait),
			logging.Err(err),
		)
		if observe != nil {
			observe(Attempt{Number: attempts, Err: err, Wait: wait})
		}
	}

	err := backoff.RetryNotify(operation, r.policy.newBackOff(ctx), notify)
	return attempts, err
}

//Personal.AI order the ending
