package infra

import "time"

const (
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second

	// DefaultMaxRetries bounds reconnection attempts. After the ceiling the
	// feed degrades to synthetic data instead of retrying forever.
	DefaultMaxRetries = 10
)

// Backoff returns the exponential backoff duration for a retry count:
// baseDelay * 2^retry, capped at maxDelay. Negative counts get baseDelay.
func Backoff(retry int) time.Duration {
	if retry < 0 {
		return baseDelay
	}
	// 2^30 seconds is already far beyond maxDelay; cap early to avoid
	// shifting into overflow.
	if retry > 30 {
		return maxDelay
	}

	d := baseDelay * time.Duration(1<<retry)
	if d > maxDelay {
		return maxDelay
	}
	return d
}
