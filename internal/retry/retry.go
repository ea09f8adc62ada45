// Package retry re-runs storage operations that failed for transient reasons.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Options controls the backoff. Attempts counts the first call.
type Options struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultOptions() Options {
	return Options{
		Attempts:     2,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Attempts <= 0 {
		o.Attempts = d.Attempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = d.InitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	if o.Multiplier <= 0 {
		o.Multiplier = d.Multiplier
	}
	return o
}

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

// Do runs op until it succeeds, fails with an error the classifier rejects,
// or runs out of attempts. The last error is returned wrapped.
func Do(ctx context.Context, opts Options, retryable Classifier, op func(context.Context) error) error {
	opts = opts.withDefaults()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = opts.InitialDelay
	eb.MaxInterval = opts.MaxDelay
	eb.Multiplier = opts.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(opts.Attempts-1)), ctx)

	var (
		attempt   int
		lastErr   error
		permanent bool
	)
	operation := func() error {
		attempt++
		lastErr = op(ctx)
		if lastErr != nil && !retryable(lastErr) {
			permanent = true
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}
	notify := func(err error, delay time.Duration) {
		slog.WarnContext(ctx, "Store operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.Attempts,
			"delay", delay,
			"error", err)
	}

	err := backoff.RetryNotify(operation, b, notify)
	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()) && lastErr != nil && !errors.Is(lastErr, ctx.Err()):
		return fmt.Errorf("%w (last error: %v)", err, lastErr)
	default:
		return fmt.Errorf("after %d attempts: %w", attempt, err)
	}
}

// IsTransient reports connectivity failures where the operation may succeed
// if simply repeated: dropped or refused connections, timeouts and SQLite
// lock contention.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsNotExecuted(err) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection reset")
}

// IsNotExecuted reports failures that guarantee the statement never ran, so
// even a non-idempotent insert can be repeated safely.
func IsNotExecuted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}
