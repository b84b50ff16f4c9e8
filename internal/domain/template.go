package domain

import (
	"fmt"
	"strings"
	"time"
)

// Template is a stored message template owned by an API key. Code is unique
// per key and is how creation requests reference it.
type Template struct {
	ID        string
	APIKeyID  string
	Code      string
	Name      string
	Channel   Channel
	Subject   *string
	Body      string
	Variables []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Template) Validate() error {
	if strings.TrimSpace(t.APIKeyID) == "" {
		return fmt.Errorf("%w: api key id is required", ErrValidation)
	}
	if strings.TrimSpace(t.Code) == "" {
		return fmt.Errorf("%w: template code is required", ErrValidation)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if !t.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, t.Channel)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("%w: template body is required", ErrValidation)
	}
	if t.Channel == ChannelEmail && (t.Subject == nil || strings.TrimSpace(*t.Subject) == "") {
		return fmt.Errorf("%w: subject is required for email templates", ErrValidation)
	}
	return nil
}
