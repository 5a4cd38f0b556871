package poller

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/hallmail/hallmail/internal/errors"
)

// ErrPollTimeout is returned when the condition did not hold before the
// attempt budget ran out
var ErrPollTimeout = errors.New("poll timed out")

// Config bounds a poll. Attempts are Timeout/Interval, plus the first one.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// CheckFunc reports whether the awaited condition holds. Returning an error
// stops the poll immediately.
type CheckFunc func(ctx context.Context) (bool, error)

// Poller runs bounded fixed-interval polls
type Poller struct {
	timer backoff.Timer
}

// New returns a poller on the real clock
func New() *Poller {
	return &Poller{}
}

// NewWithTimer returns a poller driven by the given timer
func NewWithTimer(timer backoff.Timer) *Poller {
	return &Poller{timer: timer}
}

// MaxAttempts returns the number of checks a config allows
func (c Config) MaxAttempts() uint64 {
	if c.Interval <= 0 || c.Timeout <= 0 {
		return 1
	}
	return uint64(c.Timeout/c.Interval) + 1
}

// Poll calls check until it reports done, fails, the attempts run out or
// ctx is cancelled
func (p *Poller) Poll(ctx context.Context, cfg Config, check CheckFunc) error {
	errNotYet := errors.New("condition not met")

	op := func() error {
		done, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errNotYet
		}
		return nil
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(cfg.Interval)
	b = backoff.WithMaxRetries(b, cfg.MaxAttempts()-1)
	b = backoff.WithContext(b, ctx)

	err := backoff.RetryNotifyWithTimer(op, b, nil, p.timer)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotYet):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ierr.WithError(ErrPollTimeout).
			WithHint("The change is taking longer than expected to appear, refresh in a moment").
			WithReportableDetails(map[string]any{
				"interval": cfg.Interval.String(),
				"timeout":  cfg.Timeout.String(),
			}).
			Mark(ierr.ErrSystem)
	default:
		return err
	}
}
