package queue

import (
	"context"
	"fmt"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

// Exchange and queue topology. Work queues are one per channel x priority
// lane so each lane is consumed independently; the scheduled queue parks
// future-dated messages until the scheduler promotes them; the dead queue
// receives messages rejected after an unsuccessful redelivery.
const (
	ExchangeNotifications = "notifications.main"
	ExchangeWebhooks      = "webhooks.exchange"
	ExchangeDLX           = "notifications.dlx"

	QueueScheduled = "notifications.scheduled"
	QueueWebhooks  = "webhooks.delivery"
	QueueDead      = "notifications.dead"

	RoutingKeyScheduled = "scheduled"
	RoutingKeyWebhook   = "webhook"
	RoutingKeyDead      = "dead"
)

// Publisher publishes messages to the broker.
type Publisher interface {
	PublishNotification(ctx context.Context, msg NotificationMessage) error
	PublishScheduled(ctx context.Context, msg NotificationMessage) error
	PublishWebhook(ctx context.Context, msg WebhookMessage) error
	Close() error
}

// Handler processes one consumed message body. A returned error triggers the
// transport redelivery policy (requeue once, then dead-letter).
type Handler func(ctx context.Context, body []byte) error

// Consumer consumes messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler Handler) error
	Close() error
}

// WorkQueue returns the durable work queue for one channel/priority lane,
// e.g. notifications.email.critical.
func WorkQueue(channel domain.Channel, priority domain.Priority) string {
	return fmt.Sprintf("notifications.%s.%s", channel, priority)
}

// RoutingKey returns the routing key bound to a lane's work queue,
// e.g. email.critical.
func RoutingKey(channel domain.Channel, priority domain.Priority) string {
	return fmt.Sprintf("%s.%s", channel, priority)
}

// WorkQueueNames returns every channel x priority work queue (12 total).
func WorkQueueNames() []string {
	channels := domain.Channels()
	priorities := domain.Priorities()

	queues := make([]string, 0, len(channels)*len(priorities))
	for _, channel := range channels {
		for _, priority := range priorities {
			queues = append(queues, WorkQueue(channel, priority))
		}
	}
	return queues
}
