package connmgr

import (
	"context"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Retry defaults, externally tunable via Config.Retry.
const (
	DefaultMaxAttempts   = 3
	DefaultInitialDelay  = 100 * time.Millisecond
	DefaultMaxDelay      = 1 * time.Second
	DefaultBackoffFactor = 2.0
)

var (
	retryAttemptsTotal  = metrics.NewCounter("ordercap_retry_attempts_total")
	retryExhaustedTotal = metrics.NewCounter("ordercap_retry_exhausted_total")
)

// RetryConfig tunes the backoff executor.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// withDefaults fills zero values with the documented defaults.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	return c
}

// delay returns the sleep before attempt n+1 (n is 1-based):
// min(InitialDelay * BackoffFactor^(n-1), MaxDelay).
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffFactor
		if d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	if d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// ExecuteWithRetry runs op up to MaxAttempts times with exponential backoff.
//
// Before each attempt the manager's connection handles are (re)acquired, so
// an attempt that failed because the connection was down gets a freshly
// initialized connection on the next try. Each failed attempt is logged
// with its number and the caller-supplied label.
//
// The inter-attempt sleep is a timer, not a busy-wait, and is abandoned as
// soon as ctx is cancelled. Validation and configuration errors abort the
// loop immediately - only transient infrastructure errors are retried.
//
// When all attempts fail the last error is returned wrapped in *RetryError
// carrying the attempt count and label.
func (m *Manager) ExecuteWithRetry(ctx context.Context, label string, op func(ctx context.Context, h *Handles) error) error {
	cfg := m.cfg.Retry

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		retryAttemptsTotal.Inc()

		h, err := m.Get(ctx)
		if err == nil {
			err = op(ctx, h)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		m.logger.Warn("operation attempt failed",
			"label", label,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"error", err,
		)

		if attempt == cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, cfg.delay(attempt)); err != nil {
			return err
		}
	}

	retryExhaustedTotal.Inc()
	return &RetryError{Label: label, Attempts: cfg.MaxAttempts, Err: lastErr}
}

// sleep blocks for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
