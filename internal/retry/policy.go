// Package retry implements the backoff policy used for transient fetch and
// conversion-service failures.
package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/config"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // attempts after the first failure
}

// DefaultPolicy returns linear backoff, 1s initial, 10s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 10 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw values; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromFetchConfig derives the download retry policy from the fetch section.
func FromFetchConfig(fc config.FetchConfig) Policy {
	initial, _ := time.ParseDuration(fc.RetryInitial)
	maxDelay, _ := time.ParseDuration(fc.RetryMax)
	return NewPolicy(fc.RetryBackoff, initial, maxDelay, fc.MaxRetries)
}

// Delay returns the backoff delay for the given retry number (first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures the policy can be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do runs op until it succeeds, returns a non-retryable error, or the policy
// is exhausted. retryable decides whether a failure warrants another attempt;
// a nil retryable retries every error. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, retryable func(error) bool) error {
	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = op(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || (retryable != nil && !retryable(err)) {
			return err
		}
	}
}
