// Package retry provides the exponential-backoff retry engine shared by
// the dispatcher and the workflow manager.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/agendo/engine/types"
)

// Policy configures retry behavior for a failing operation.
//
// MaxAttempts is the total attempt budget (first try included). Each
// failed attempt waits InitialDelay * Multiplier^(failures-1) before the
// next, capped at MaxDelay. Jitter spreads delays by ±25% to avoid
// synchronized retries across concurrent callers; it is off by default
// to keep the original backoff timing.
type Policy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	RetryableCodes []types.ErrorCode
}

// DefaultPolicy returns the policy applied to plan steps without a
// function-specific allowance: three attempts, 1s base delay, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// PolicyWithAttempts returns the default policy with a custom attempt
// budget.
func PolicyWithAttempts(attempts int) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.MaxAttempts = attempts
	}
	return p
}

// Retryer executes operations under a Policy.
type Retryer struct {
	policy Policy
	logger *zap.Logger
}

// New creates a Retryer, normalizing degenerate policy values.
func New(policy Policy, logger *zap.Logger) *Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = 2.0
	}
	return &Retryer{policy: policy, logger: logger}
}

// Do runs fn until it succeeds or the attempt budget is spent. It returns
// the number of failed attempts consumed: attempts-1 on eventual success,
// MaxAttempts when every attempt failed.
func (r *Retryer) Do(ctx context.Context, fn func() error) (int, error) {
	failures := 0
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if failures > 0 {
				r.logger.Debug("retry succeeded", zap.Int("failures", failures))
			}
			return failures, nil
		}
		failures++

		if !r.retryable(lastErr) {
			return failures, lastErr
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.delay(failures)
		r.logger.Debug("retrying after failure",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return failures, ctx.Err()
		case <-time.After(delay):
		}
	}

	return failures, types.Errorf(types.ErrRetryExhausted,
		"failed after %d attempts", r.policy.MaxAttempts).WithCause(lastErr)
}

// delay computes the wait before the next attempt: pure exponential
// backoff, 2^(failures-1) * initial delay, optionally jittered.
func (r *Retryer) delay(failures int) time.Duration {
	d := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(failures-1))
	if d > float64(r.policy.MaxDelay) {
		d = float64(r.policy.MaxDelay)
	}
	if r.policy.Jitter {
		d += (rand.Float64()*2 - 1) * d * 0.25
	}
	return time.Duration(d)
}

// retryable reports whether err qualifies for another attempt. An empty
// code list retries everything.
func (r *Retryer) retryable(err error) bool {
	if len(r.policy.RetryableCodes) == 0 {
		return true
	}
	code := types.GetErrorCode(err)
	for _, candidate := range r.policy.RetryableCodes {
		if code == candidate {
			return true
		}
	}
	return false
}
