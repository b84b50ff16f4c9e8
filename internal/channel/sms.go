package channel

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/Ryan-Karimov/notification-service/internal/config"
	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

const twilioAPIBase = "https://api.twilio.com"

const twilioMaxBodyLen = 1600

var (
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

// SMSSender delivers notifications through the Twilio Messages API.
type SMSSender struct {
	client  *resty.Client
	cfg     config.TwilioConfig
	baseURL string
}

func NewSMSSender(cfg config.TwilioConfig) *SMSSender {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(0)

	return &SMSSender{
		client:  client,
		cfg:     cfg,
		baseURL: twilioAPIBase,
	}
}

func (s *SMSSender) Name() domain.Channel {
	return domain.ChannelSMS
}

func (s *SMSSender) ValidateRecipient(recipient string) bool {
	return phonePattern.MatchString(phoneSeparators.Replace(recipient))
}

func (s *SMSSender) configured() bool {
	return s.cfg.AccountSID != "" && s.cfg.AuthToken != "" && s.cfg.FromNumber != ""
}

func (s *SMSSender) Send(ctx context.Context, msg Message) SendResult {
	if !s.configured() {
		return failure("sms channel not configured")
	}

	to := phoneSeparators.Replace(msg.Recipient)
	if !phonePattern.MatchString(to) {
		return failure("invalid phone number: %s", msg.Recipient)
	}

	body := truncateBody(msg.Body, twilioMaxBodyLen)

	var parsed twilioMessageResponse

	response, err := s.client.R().
		SetContext(ctx).
		SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken).
		SetFormData(map[string]string{
			"To":   to,
			"From": s.cfg.FromNumber,
			"Body": body,
		}).
		SetResult(&parsed).
		SetError(&parsed).
		Post(fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.cfg.AccountSID))
	if err != nil {
		return failure("twilio request failed: %v", err)
	}

	if response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		message := strings.TrimSpace(parsed.Message)
		if message == "" {
			message = fmt.Sprintf("status %d", response.StatusCode())
		}
		return failure("twilio api error: %s", message)
	}

	return SendResult{
		Success:   true,
		MessageID: parsed.SID,
	}
}

// truncateBody cuts the body to at most maxLen bytes without splitting a
// multi-byte rune.
func truncateBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
