package queue

import (
	"fmt"
	"time"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

// NotificationMessage is the payload routed through the notification
// exchange. It carries enough to deliver without reloading the row, but the
// consumer still re-reads the row to honor cancellation.
type NotificationMessage struct {
	NotificationID string         `json:"notification_id"`
	APIKeyID       string         `json:"api_key_id"`
	Channel        string         `json:"channel"`
	Priority       string         `json:"priority"`
	Recipient      string         `json:"recipient"`
	Subject        *string        `json:"subject,omitempty"`
	Body           string         `json:"body"`
	AttemptCount   int            `json:"attempt_count"`
	MaxAttempts    int            `json:"max_attempts"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (m NotificationMessage) Validate() error {
	if m.NotificationID == "" {
		return fmt.Errorf("notification message: missing notification_id")
	}
	if _, err := domain.ParseChannelFromString(m.Channel); err != nil {
		return fmt.Errorf("notification message %s: %w", m.NotificationID, err)
	}
	if _, err := domain.ParsePriorityFromString(m.Priority); err != nil {
		return fmt.Errorf("notification message %s: %w", m.NotificationID, err)
	}
	if m.Recipient == "" {
		return fmt.Errorf("notification message %s: missing recipient", m.NotificationID)
	}
	return nil
}

// WebhookMessage is the payload routed to the webhook delivery queue when a
// notification reaches a terminal sent or failed state.
type WebhookMessage struct {
	NotificationID string     `json:"notification_id"`
	APIKeyID       string     `json:"api_key_id"`
	Status         string     `json:"status"`
	Channel        string     `json:"channel"`
	Recipient      string     `json:"recipient"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	WebhookURL     string     `json:"webhook_url"`
	WebhookSecret  string     `json:"webhook_secret"`
}

func (m WebhookMessage) Validate() error {
	if m.NotificationID == "" {
		return fmt.Errorf("webhook message: missing notification_id")
	}
	if m.WebhookURL == "" {
		return fmt.Errorf("webhook message %s: missing webhook_url", m.NotificationID)
	}
	return nil
}
