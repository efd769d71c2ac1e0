package bundle

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds the submission retry loop. One policy object is
// shared by every bundle in a run.
type RetryConfig struct {
	MaxTries       uint
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

// DefaultRetryConfig matches relay rate-limit windows: quick first
// retry, capped total wait.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:       5,
		InitialBackoff: 200 * time.Millisecond,
		MaxElapsed:     15 * time.Second,
	}
}

// options expands the config into backoff retry options.
func (c RetryConfig) options() []backoff.RetryOption {
	bo := backoff.NewExponentialBackOff()
	if c.InitialBackoff > 0 {
		bo.InitialInterval = c.InitialBackoff
	}
	opts := []backoff.RetryOption{backoff.WithBackOff(bo)}
	if c.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(c.MaxTries))
	}
	if c.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(c.MaxElapsed))
	}
	return opts
}
