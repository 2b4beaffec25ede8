// Package fault decides how remote failures are handled: which errors are
// worth retrying, how long to wait between attempts, and how fast requests
// may be issued in the first place.
package fault

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tarowe/go-ews/config"
	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/logger"
)

// Policy governs retry and pacing for a single account's remote calls.
//
// Only service accounts retry: an interactive account surfaces transient
// faults immediately so the caller can decide, while a service account is
// expected to ride out server busy periods on its own.
type Policy struct {
	ServiceAccount bool
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	limiter *rate.Limiter
	log     *zap.SugaredLogger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
	// jitter returns a random fraction in [0, 1)
	jitter func() float64
}

// Option configures a Policy.
type Option func(*Policy)

// WithLimiter paces all attempts, including retries, through the given
// limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Policy) { p.limiter = l }
}

// WithLogger attaches a logger for retry visibility.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Policy) { p.log = log }
}

// NewPolicy builds a policy from configuration.
func NewPolicy(cfg *config.RetryConfig, opts ...Option) *Policy {
	p := &Policy{
		ServiceAccount: cfg.ServiceAccount,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
		log:            zap.NewNop().Sugar(),
		sleep:          sleepCtx,
		jitter:         rand.Float64,
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDefaultPolicy returns the policy for an unconfigured client:
// interactive semantics, so no retries and no pacing.
func NewDefaultPolicy() *Policy {
	cfg := config.Default()
	return NewPolicy(&cfg.Retry)
}

// ShouldRetry reports whether a failed attempt should be tried again.
// attempt is 1-based: the first call that failed was attempt 1.
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if !p.ServiceAccount {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}
	return errors.IsRetryable(err)
}

// BackoffFor returns the pause before the given retry attempt: exponential
// from InitialBackoff, capped at MaxBackoff, with up to 25% random jitter so
// concurrent clients do not re-converge on the server in lockstep.
func (p *Policy) BackoffFor(attempt int) time.Duration {
	backoff := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= p.MaxBackoff {
			backoff = p.MaxBackoff
			break
		}
	}
	jittered := backoff + time.Duration(p.jitter()*0.25*float64(backoff))
	if jittered > p.MaxBackoff {
		jittered = p.MaxBackoff
	}
	return jittered
}

// Do runs op under the policy: waits on the rate limiter before every
// attempt and retries retryable failures with backoff. The last error is
// returned once attempts are exhausted.
func (p *Policy) Do(ctx context.Context, requestID string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return errors.Wrap(err, "rate limit wait")
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.ShouldRetry(lastErr, attempt) {
			return lastErr
		}

		backoff := p.BackoffFor(attempt)
		p.log.Warnw("Transient fault, backing off",
			logger.FieldRequestID, requestID,
			logger.FieldAttempt, attempt,
			logger.FieldBackoff, backoff.String(),
			logger.FieldError, lastErr)
		if err := p.sleep(ctx, backoff); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
