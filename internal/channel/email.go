package channel

import (
	"context"
	"regexp"
	"strings"

	"gopkg.in/mail.v2"

	"github.com/Ryan-Karimov/notification-service/internal/config"
	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	htmlTags     = regexp.MustCompile(`<[^>]*>`)
)

// dialSender lets tests stub SMTP delivery.
type dialSender func(msg *mail.Message) error

// EmailSender delivers notifications over SMTP.
type EmailSender struct {
	cfg  config.SMTPConfig
	send dialSender
}

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &EmailSender{
		cfg:  cfg,
		send: func(msg *mail.Message) error { return dialer.DialAndSend(msg) },
	}
}

func (s *EmailSender) Name() domain.Channel {
	return domain.ChannelEmail
}

func (s *EmailSender) ValidateRecipient(recipient string) bool {
	return emailPattern.MatchString(recipient)
}

func (s *EmailSender) configured() bool {
	return s.cfg.Host != "" && s.cfg.User != ""
}

func (s *EmailSender) Send(ctx context.Context, msg Message) SendResult {
	if !s.configured() {
		return failure("email channel not configured")
	}
	if !s.ValidateRecipient(msg.Recipient) {
		return failure("invalid email recipient: %s", msg.Recipient)
	}

	subject := "Notification"
	if msg.Subject != nil && *msg.Subject != "" {
		subject = *msg.Subject
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", stripHTML(msg.Body))
	m.AddAlternative("text/html", msg.Body)

	done := make(chan error, 1)
	go func() { done <- s.send(m) }()

	select {
	case <-ctx.Done():
		return failure("email send canceled: %v", ctx.Err())
	case err := <-done:
		if err != nil {
			return failure("smtp send failed: %v", err)
		}
	}

	return SendResult{Success: true}
}

func stripHTML(body string) string {
	return strings.TrimSpace(htmlTags.ReplaceAllString(body, ""))
}
