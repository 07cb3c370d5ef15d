package resilience

import "time"

// FromConfig builds a Backoff from configuration values. Zero or negative
// values keep the defaults.
func FromConfig(attempts, initialBackoffMs, maxBackoffMs int) Backoff {
	b := DefaultBackoff()
	if attempts > 0 {
		b.Attempts = attempts
	}
	if initialBackoffMs > 0 {
		b.Initial = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		b.Max = time.Duration(maxBackoffMs) * time.Millisecond
	}
	return b
}
