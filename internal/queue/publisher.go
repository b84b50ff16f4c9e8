package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

// PublishNotification routes a message to its channel/priority work queue.
func (p *RabbitMQPublisher) PublishNotification(ctx context.Context, msg NotificationMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid notification message: %w", err)
	}

	routingKey := fmt.Sprintf("%s.%s", msg.Channel, msg.Priority)
	return p.publish(ctx, ExchangeNotifications, routingKey, msg.NotificationID, msg)
}

// PublishScheduled parks a message on the scheduled queue until the scheduler
// promotes it to a work queue.
func (p *RabbitMQPublisher) PublishScheduled(ctx context.Context, msg NotificationMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid notification message: %w", err)
	}

	return p.publish(ctx, ExchangeNotifications, RoutingKeyScheduled, msg.NotificationID, msg)
}

// PublishWebhook enqueues a terminal-state event for webhook delivery.
func (p *RabbitMQPublisher) PublishWebhook(ctx context.Context, msg WebhookMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid webhook message: %w", err)
	}

	return p.publish(ctx, ExchangeWebhooks, RoutingKeyWebhook, msg.NotificationID, msg)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, exchange, routingKey, messageID string, msg any) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    messageID,
		Body:         payload,
	}

	if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message to %s/%s: %w", exchange, routingKey, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
