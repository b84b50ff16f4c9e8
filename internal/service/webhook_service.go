package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/observability"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
)

const (
	webhookTimeout   = 10 * time.Second
	webhookUserAgent = "notification-service/1.0"

	EventNotificationSent   = "notification.sent"
	EventNotificationFailed = "notification.failed"
)

// WebhookPayload is the JSON body posted to subscriber endpoints.
type WebhookPayload struct {
	Event     string             `json:"event"`
	Timestamp time.Time          `json:"timestamp"`
	Data      WebhookPayloadData `json:"data"`
}

type WebhookPayloadData struct {
	NotificationID string     `json:"notificationId"`
	Channel        string     `json:"channel"`
	Recipient      string     `json:"recipient"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
}

// WebhookService consumes the webhook queue and posts signed terminal-state
// events to subscriber endpoints. Delivery is a single best-effort attempt.
type WebhookService struct {
	consumer queue.Consumer
	client   *resty.Client
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewWebhookService(consumer queue.Consumer, logger *zap.Logger) (*WebhookService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New()
	client.SetTimeout(webhookTimeout)
	client.SetRetryCount(0)

	return &WebhookService{
		consumer: consumer,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *WebhookService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the webhook delivery queue until context cancellation.
func (s *WebhookService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.consumer.Consume(ctx, queue.QueueWebhooks, s.processEvent)
}

func (s *WebhookService) processEvent(ctx context.Context, body []byte) error {
	var msg queue.WebhookMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode webhook message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := s.deliver(ctx, msg); err != nil {
		if s.metrics != nil {
			s.metrics.IncWebhookDelivery("failure")
		}
		s.logger.Warn("webhook delivery failed",
			zap.String("notificationId", msg.NotificationID),
			zap.String("url", msg.WebhookURL),
			zap.Error(err),
		)
		return nil
	}

	if s.metrics != nil {
		s.metrics.IncWebhookDelivery("success")
	}
	return nil
}

func (s *WebhookService) deliver(ctx context.Context, msg queue.WebhookMessage) error {
	payload := buildWebhookPayload(msg, s.now().UTC())

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", webhookUserAgent).
		SetBody(body)
	if msg.WebhookSecret != "" {
		req.SetHeader("X-Webhook-Signature", SignPayload(body, msg.WebhookSecret))
	}

	response, err := req.Post(msg.WebhookURL)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	if response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook endpoint returned status %d", response.StatusCode())
	}

	return nil
}

func buildWebhookPayload(msg queue.WebhookMessage, timestamp time.Time) WebhookPayload {
	event := EventNotificationFailed
	if msg.Status == string(domain.StatusSent) {
		event = EventNotificationSent
	}

	return WebhookPayload{
		Event:     event,
		Timestamp: timestamp,
		Data: WebhookPayloadData{
			NotificationID: msg.NotificationID,
			Channel:        msg.Channel,
			Recipient:      msg.Recipient,
			Status:         msg.Status,
			SentAt:         msg.SentAt,
			ErrorMessage:   msg.ErrorMessage,
		},
	}
}

// SignPayload computes the hex HMAC-SHA256 signature subscribers verify.
func SignPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
