package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned when MaxAttempts checks were made without the condition holding.
var ErrExhausted = errors.New("condition not met within the attempt limit")

// ErrInvalidInterval is returned when the configured interval is not positive.
var ErrInvalidInterval = errors.New("poll interval must be positive")

var errNotReady = errors.New("not ready")

// Condition reports whether the awaited state has been reached.
// A non-nil error aborts polling and is returned as is.
type Condition func(ctx context.Context) (bool, error)

// Until checks cond every cfg.Interval until it holds, the attempt limit is
// reached, the timeout elapses or ctx is cancelled. onWait, if set, is called
// after every negative check that will be retried.
func Until(ctx context.Context, cfg Config, cond Condition, onWait func()) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.Interval)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(cfg.Interval)
	if cfg.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, cfg.MaxAttempts-1)
	}

	err := backoff.RetryNotify(
		func() error {
			ok, err := cond(ctx)
			if err != nil {
				return backoff.Permanent(err)
			}
			if !ok {
				return errNotReady
			}
			return nil
		},
		backoff.WithContext(b, ctx),
		func(error, time.Duration) {
			if onWait != nil {
				onWait()
			}
		},
	)
	if errors.Is(err, errNotReady) {
		return fmt.Errorf("%w (%d attempts)", ErrExhausted, cfg.MaxAttempts)
	}
	return err
}
