package mail

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig tunes the Retrying decorator.
type RetryConfig struct {
	// Attempts is the number of retries after the first try.
	Attempts uint64
	// Base is the first backoff interval; it doubles per retry.
	Base time.Duration
	// Cap bounds a single backoff interval.
	Cap time.Duration
}

// Retrying retries failed sends of the wrapped Mail with capped exponential
// backoff. Message validation errors are returned at once. The caller context
// bounds the total time spent.
type Retrying struct {
	next Mail
	cfg  RetryConfig
}

// NewRetrying wraps next. Zero fields in cfg fall back to 2 retries starting at 200ms, capped at 2s.
func NewRetrying(next Mail, cfg RetryConfig) *Retrying {
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if cfg.Base <= 0 {
		cfg.Base = 200 * time.Millisecond
	}
	if cfg.Cap <= 0 {
		cfg.Cap = 2 * time.Second
	}
	return &Retrying{next: next, cfg: cfg}
}

// Send dispatches msg through the wrapped driver.
func (r *Retrying) Send(ctx context.Context, msg Message) error {
	backoff := retry.NewExponential(r.cfg.Base)
	backoff = retry.WithCappedDuration(r.cfg.Cap, backoff)
	backoff = retry.WithMaxRetries(r.cfg.Attempts, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := r.next.Send(ctx, msg)
		if err == nil || permanent(err) {
			return err
		}

		slog.WarnContext(ctx, "mail send failed, retrying", "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

// Close closes the wrapped driver.
func (r *Retrying) Close() error {
	return r.next.Close()
}

func permanent(err error) bool {
	return errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrNoSender) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
