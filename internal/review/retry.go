package review

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// retryStatus is the classification table for HTTP failures. Only these
// statuses are worth another attempt; every other status is terminal.
var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Retryable reports whether err is a transient condition worth another
// attempt: a retryable HTTP status, a network-level failure, or an
// attempt-level timeout. Cancellation of the run context is handled by the
// Caller, not here.
func Retryable(err error) bool {
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrRequestRejected) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryStatus[apiErr.Status]
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// RetryPolicy bounds the retry loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the bundled configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Backoff returns the delay after the given failed attempt (1-indexed):
// exponential from the base, capped at the maximum, plus jitter of up to
// half the pre-jitter value.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt-1)
	if d <= 0 || d > p.MaxDelay {
		d = p.MaxDelay
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

// Caller wraps an LLM with the bounded retry loop. Retry state is per call,
// so a Caller is safe for concurrent use.
type Caller struct {
	llm    LLM
	policy RetryPolicy
	log    *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewCaller builds a Caller around the given provider client.
func NewCaller(llm LLM, policy RetryPolicy, log *zap.Logger) *Caller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Caller{llm: llm, policy: policy, log: log, sleep: sleepWithCtx}
}

// Evaluate sends one prompt, retrying transient failures with exponential
// backoff. A server-provided delay hint overrides the computed backoff but
// is still capped at the policy maximum. Non-transient failures propagate
// immediately; exhausted attempts surface as ErrTransient wrapping the last
// cause. Cancellation is never retried.
func (c *Caller) Evaluate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		text, err := c.llm.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", err
		}
		if !Retryable(err) {
			return "", err
		}
		if attempt == c.policy.MaxAttempts {
			break
		}

		delay := c.policy.Backoff(attempt)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			delay = apiErr.RetryAfter
			if delay > c.policy.MaxDelay {
				delay = c.policy.MaxDelay
			}
		}
		c.log.Warn("transient model failure, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %d attempts exhausted: %w", ErrTransient, c.policy.MaxAttempts, lastErr)
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
