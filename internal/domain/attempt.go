package domain

import "time"

// AttemptStatus is the outcome of a single delivery attempt.
type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

func (s AttemptStatus) String() string { return string(s) }

// DeliveryAttempt records a single send attempt for a notification.
// Rows are append-only and never mutated.
type DeliveryAttempt struct {
	ID             string
	NotificationID string
	AttemptNumber  int
	Status         AttemptStatus
	ErrorMessage   *string
	DurationMS     int
	CreatedAt      time.Time
}
