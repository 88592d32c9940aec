// Package retry re-runs journal writes that failed with a retryable error code.
package retry

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	goretry "github.com/sethvargo/go-retry"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 25 * time.Millisecond
)

// Policy bounds how often and how quickly an operation is retried.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

func (p Policy) normalize() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// is exhausted. Attempts counts total calls, so Attempts=1 never retries.
// Only errors whose code metadata is retryable (concurrency conflicts,
// dependency failures) are retried; the last error is returned unchanged.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	policy = policy.normalize()

	backoff := goretry.NewExponential(policy.BaseDelay)
	backoff = goretry.WithJitterPercent(20, backoff)
	backoff = goretry.WithMaxRetries(uint64(policy.Attempts-1), backoff)

	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if pkgerrors.IsRetryable(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// Backoff returns the delay schedule for a polling loop whose iterations keep
// failing: exponential from base, capped at max, plus or minus jitter.
// Callers build a fresh Backoff once an iteration succeeds.
func Backoff(base, max, jitter time.Duration) goretry.Backoff {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	b := goretry.NewExponential(base)
	b = goretry.WithCappedDuration(max, b)
	if jitter > 0 {
		b = goretry.WithJitter(jitter, b)
	}
	return b
}
