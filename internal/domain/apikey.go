package domain

import "time"

// APIKey is the owning subscriber of notifications and templates. Besides
// authenticating requests it carries the per-key rate limit and the optional
// webhook callback configuration.
type APIKey struct {
	ID            string
	Key           string
	Name          string
	RateLimit     int
	RateWindowMS  int
	WebhookURL    *string
	WebhookSecret *string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasWebhook reports whether terminal outcomes should emit a webhook event.
func (k *APIKey) HasWebhook() bool {
	return k != nil && k.WebhookURL != nil && *k.WebhookURL != ""
}
