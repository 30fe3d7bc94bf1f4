// Package resilience provides the retry and circuit-breaker primitives that
// wrap every provider call the engine makes.
//
// [Retry] re-runs an operation on transient provider failures with
// exponential backoff. [CircuitBreaker] is a classic three-state breaker
// (closed → open → half-open) that protects callers from hammering a
// provider that is consistently failing.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
)

// RetryPolicy controls [Retry].
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// InitialInterval is the delay before the first retry. Default: 250ms.
	InitialInterval time.Duration

	// Multiplier scales the delay after each attempt. Default: 2.
	Multiplier float64
}

// DefaultRetryPolicy is the policy applied to provider calls unless
// configured otherwise: 3 attempts, 250 ms initial delay, doubling.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 250 * time.Millisecond,
	Multiplier:      2,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if p.Multiplier <= 1 {
		p.Multiplier = DefaultRetryPolicy.Multiplier
	}
	return p
}

// Retry runs op, retrying on transient provider failures according to the
// policy. Permanent and malformed provider failures, validation errors, and
// context cancellation stop the retry loop immediately; the last error is
// returned when attempts are exhausted.
func Retry(ctx context.Context, policy RetryPolicy, op func() error) error {
	policy = policy.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.Multiplier = policy.Multiplier
	bo.RandomizationFactor = 0

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !memory.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	limited := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(policy.MaxAttempts-1))
	return backoff.Retry(wrapped, limited)
}
