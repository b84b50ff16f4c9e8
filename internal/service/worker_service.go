package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ryan-Karimov/notification-service/internal/channel"
	"github.com/Ryan-Karimov/notification-service/internal/domain"
	"github.com/Ryan-Karimov/notification-service/internal/observability"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
	"github.com/Ryan-Karimov/notification-service/internal/retry"
)

// WorkerService consumes the work queues and drives notifications through
// delivery, retry scheduling and terminal-state webhook events.
type WorkerService struct {
	notifications repository.NotificationRepository
	attempts      repository.AttemptRepository
	apiKeys       repository.APIKeyRepository
	consumer      queue.Consumer
	publisher     queue.Publisher
	registry      *channel.Registry
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewWorkerService(
	notifications repository.NotificationRepository,
	attempts repository.AttemptRepository,
	apiKeys repository.APIKeyRepository,
	consumer queue.Consumer,
	publisher queue.Publisher,
	registry *channel.Registry,
	logger *zap.Logger,
) (*WorkerService, error) {
	if registry == nil {
		return nil, fmt.Errorf("channel registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		notifications: notifications,
		attempts:      attempts,
		apiKeys:       apiKeys,
		consumer:      consumer,
		publisher:     publisher,
		registry:      registry,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes every work queue until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()

	g, groupCtx := errgroup.WithContext(ctx)
	for _, queueName := range queueNames {
		queueName := queueName
		g.Go(func() error {
			s.logger.Info("worker started", zap.String("queue", queueName))

			if err := s.consumer.Consume(groupCtx, queueName, s.processDelivery); err != nil {
				s.logger.Error("worker stopped with error",
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped", zap.String("queue", queueName))
			return nil
		})
	}

	return g.Wait()
}

// processDelivery handles one consumed message. Returned errors surface to
// the consumer's redelivery policy; a nil return acks the message.
func (s *WorkerService) processDelivery(ctx context.Context, body []byte) error {
	var msg queue.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode notification message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	notification, err := s.notifications.FindByID(ctx, msg.NotificationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("notification not found, skipping",
				zap.String("notificationId", msg.NotificationID),
			)
			return nil
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}

	// Cancelled while queued, or a duplicate delivery of an already sent
	// message. Ack and move on.
	if notification.Status == domain.StatusCancelled || notification.Status == domain.StatusSent {
		return nil
	}

	updated, err := s.notifications.MarkAsProcessing(ctx, notification.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to mark notification as processing: %w", err)
	}

	channelName := string(updated.Channel)
	if s.metrics != nil {
		s.metrics.IncConsumerInFlight(channelName)
		defer s.metrics.DecConsumerInFlight(channelName)
	}

	sender, err := s.registry.Get(updated.Channel)
	if err != nil {
		return s.handleFailure(ctx, updated, err.Error())
	}

	sendStart := s.now()
	result := sender.Send(ctx, channel.Message{
		Recipient: updated.Recipient,
		Subject:   updated.Subject,
		Body:      updated.Body,
		Metadata:  updated.Metadata,
	})
	duration := s.now().Sub(sendStart)

	if s.metrics != nil {
		s.metrics.ObserveNotificationSendDuration(channelName, duration)
	}

	if err := s.recordAttempt(ctx, updated, result, duration); err != nil {
		s.logger.Error("failed to record delivery attempt",
			zap.String("notificationId", updated.ID),
			zap.Error(err),
		)
	}

	if result.Success {
		return s.handleSuccess(ctx, updated)
	}
	return s.handleFailure(ctx, updated, result.Error)
}

func (s *WorkerService) handleSuccess(ctx context.Context, n *domain.Notification) error {
	sentAt := s.now().UTC()
	if err := s.notifications.MarkAsSent(ctx, n.ID, sentAt); err != nil {
		return fmt.Errorf("failed to mark notification as sent: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncNotificationSent(string(n.Channel))
	}

	s.logger.Info("notification sent",
		zap.String("notificationId", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.Int("attempt", n.AttemptCount),
	)

	s.emitWebhook(ctx, n, domain.StatusSent, &sentAt, nil)
	return nil
}

func (s *WorkerService) handleFailure(ctx context.Context, n *domain.Notification, errorMessage string) error {
	if retry.ShouldRetry(n.AttemptCount, n.MaxAttempts) {
		if nextRetryAt := retry.NextRetryAt(n.AttemptCount, s.now()); nextRetryAt != nil {
			if err := s.notifications.MarkAsFailed(ctx, n.ID, errorMessage, nextRetryAt); err != nil {
				return fmt.Errorf("failed to schedule retry: %w", err)
			}
			if s.metrics != nil {
				s.metrics.IncRetryScheduled(string(n.Channel))
			}

			s.logger.Warn("delivery failed, retry scheduled",
				zap.String("notificationId", n.ID),
				zap.String("channel", string(n.Channel)),
				zap.Int("attempt", n.AttemptCount),
				zap.Time("nextRetryAt", *nextRetryAt),
				zap.String("error", errorMessage),
			)
			return nil
		}
	}

	if err := s.notifications.MarkAsFailed(ctx, n.ID, errorMessage, nil); err != nil {
		return fmt.Errorf("failed to mark notification as failed: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncNotificationFailed(string(n.Channel))
	}

	s.logger.Error("notification failed permanently",
		zap.String("notificationId", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.Int("attempt", n.AttemptCount),
		zap.String("error", errorMessage),
	)

	s.emitWebhook(ctx, n, domain.StatusFailed, nil, &errorMessage)
	return nil
}

// emitWebhook enqueues a terminal-state callback when the owning API key has
// one configured. Failures are logged and swallowed: webhook delivery is
// best-effort and must not affect the notification outcome.
func (s *WorkerService) emitWebhook(ctx context.Context, n *domain.Notification, status domain.Status, sentAt *time.Time, errorMessage *string) {
	key, err := s.apiKeys.FindByID(ctx, n.APIKeyID)
	if err != nil {
		s.logger.Warn("failed to load api key for webhook",
			zap.String("notificationId", n.ID),
			zap.Error(err),
		)
		return
	}
	if !key.HasWebhook() {
		return
	}

	secret := ""
	if key.WebhookSecret != nil {
		secret = *key.WebhookSecret
	}

	msg := queue.WebhookMessage{
		NotificationID: n.ID,
		APIKeyID:       n.APIKeyID,
		Status:         string(status),
		Channel:        string(n.Channel),
		Recipient:      n.Recipient,
		SentAt:         sentAt,
		ErrorMessage:   errorMessage,
		WebhookURL:     *key.WebhookURL,
		WebhookSecret:  secret,
	}

	if err := s.publisher.PublishWebhook(ctx, msg); err != nil {
		s.logger.Warn("failed to enqueue webhook event",
			zap.String("notificationId", n.ID),
			zap.Error(err),
		)
	}
}

func (s *WorkerService) recordAttempt(ctx context.Context, n *domain.Notification, result channel.SendResult, duration time.Duration) error {
	status := domain.AttemptSuccess
	var errorMessage *string
	if !result.Success {
		status = domain.AttemptFailed
		value := result.Error
		errorMessage = &value
	}

	attempt := &domain.DeliveryAttempt{
		ID:             uuid.NewString(),
		NotificationID: n.ID,
		AttemptNumber:  n.AttemptCount,
		Status:         status,
		ErrorMessage:   errorMessage,
		DurationMS:     int(duration.Milliseconds()),
		CreatedAt:      s.now().UTC(),
	}

	return s.attempts.Create(ctx, attempt)
}
