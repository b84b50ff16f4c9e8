package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/observability"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
)

const (
	defaultSchedulerInterval = 5 * time.Second
	defaultSchedulerLimit    = 100
)

// Scheduler promotes due scheduled notifications to their work queues and
// republishes notifications whose retry delay has elapsed.
type Scheduler struct {
	notifications repository.NotificationRepository
	publisher     queue.Publisher
	metrics       *observability.Metrics
	logger        *zap.Logger
	interval      time.Duration
	limit         int
	now           func() time.Time
}

func NewScheduler(
	notifications repository.NotificationRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*Scheduler, error) {
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	if limit <= 0 {
		limit = defaultSchedulerLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		interval:      interval,
		limit:         limit,
		now:           time.Now,
	}, nil
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scheduler) scan(ctx context.Context) {
	if err := s.scanScheduled(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduled scan failed", zap.Error(err))
	}
	if err := s.scanRetryable(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retry scan failed", zap.Error(err))
	}
}

// scanScheduled claims each due row before publishing so a concurrent scan
// cannot publish the same notification twice.
func (s *Scheduler) scanScheduled(ctx context.Context) error {
	due, err := s.notifications.FindScheduled(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due scheduled notifications: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveSchedulerBatch("scheduled", len(due))
	}

	for i := range due {
		notification := due[i]

		claimed, err := s.notifications.MarkQueuedIfScheduled(ctx, notification.ID)
		if err != nil {
			s.logger.Error("failed to claim scheduled notification",
				zap.String("notificationId", notification.ID),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}

		if err := s.publisher.PublishNotification(ctx, notificationMessage(&notification)); err != nil {
			s.logger.Error("failed to enqueue scheduled notification",
				zap.String("notificationId", notification.ID),
				zap.Error(err),
			)
			// Release the claim so the next scan retries; otherwise the
			// row sits in queued with no message on the broker.
			if _, revertErr := s.notifications.MarkScheduledIfQueued(ctx, notification.ID); revertErr != nil {
				s.logger.Error("failed to release claim on scheduled notification",
					zap.String("notificationId", notification.ID),
					zap.Error(revertErr),
				)
			}
			continue
		}
	}

	return nil
}

// scanRetryable republishes rows whose retry is due, then clears the retry
// marker so the next scan does not pick the same row up again. The status
// stays processing until the delivery attempt settles it.
func (s *Scheduler) scanRetryable(ctx context.Context) error {
	due, err := s.notifications.FindRetryable(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch retryable notifications: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveSchedulerBatch("retry", len(due))
	}

	for i := range due {
		notification := due[i]

		if err := s.publisher.PublishNotification(ctx, notificationMessage(&notification)); err != nil {
			s.logger.Error("failed to republish notification for retry",
				zap.String("notificationId", notification.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.notifications.ClearNextRetryAt(ctx, notification.ID); err != nil {
			s.logger.Error("failed to clear retry marker",
				zap.String("notificationId", notification.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}
