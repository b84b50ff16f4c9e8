// Package retry holds the delivery retry policy: a fixed backoff table
// indexed by attempt number and the attempt-budget check. Every send failure
// consumes one attempt from the same budget regardless of its cause.
package retry

import "time"

// delays is indexed by 0-based attempt number. An attempt number outside the
// table means no further retry is scheduled.
var delays = []time.Duration{
	0,
	time.Second,
	5 * time.Second,
	30 * time.Second,
}

// NextRetryDelay returns the backoff delay for the given attempt count.
// The second return value is false when the table is exhausted.
func NextRetryDelay(attemptCount int) (time.Duration, bool) {
	if attemptCount < 0 || attemptCount >= len(delays) {
		return 0, false
	}
	return delays[attemptCount], true
}

// NextRetryAt returns the wall-clock time of the next retry, or nil when no
// further retry is scheduled.
func NextRetryAt(attemptCount int, now time.Time) *time.Time {
	delay, ok := NextRetryDelay(attemptCount)
	if !ok {
		return nil
	}
	at := now.Add(delay)
	return &at
}

// ShouldRetry reports whether the attempt budget allows another try.
func ShouldRetry(attemptCount, maxAttempts int) bool {
	return attemptCount < maxAttempts
}
