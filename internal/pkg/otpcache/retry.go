package otpcache

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how hard a shared store tries to establish its first
// connection. Zero fields take the defaults below.
type RetryPolicy struct {
	// MaxAttempts caps the number of connection attempts, including the first.
	MaxAttempts uint64
	// BaseDelay is the first backoff step; later steps grow exponentially.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff step.
	MaxDelay time.Duration
	// MaxElapsed caps the total time spent retrying.
	MaxElapsed time.Duration
}

const (
	defaultMaxAttempts = 10
	defaultBaseDelay   = 50 * time.Millisecond
	defaultMaxDelay    = 3 * time.Second
	defaultMaxElapsed  = time.Hour
)

// DefaultRetryPolicy returns 10 attempts, backoff capped at 3s, 1h overall.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		MaxElapsed:  defaultMaxElapsed,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = defaultMaxElapsed
	}
	return p
}

// Backoff builds the go-retry schedule for the policy.
func (p RetryPolicy) Backoff() retry.Backoff {
	p = p.withDefaults()

	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	b = retry.WithMaxRetries(p.MaxAttempts-1, b)
	b = retry.WithMaxDuration(p.MaxElapsed, b)

	return b
}
