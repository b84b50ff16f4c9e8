package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

const (
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
)

// RabbitMQ manages RabbitMQ connectivity and topology declaration.
type RabbitMQ struct {
	url string

	mu          sync.RWMutex
	reconnectMu sync.Mutex
	conn        *amqp.Connection
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	r := &RabbitMQ{url: url}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := r.ensureConnected(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	return conn.Close()
}

// Healthy reports whether the broker connection is currently open.
func (r *RabbitMQ) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed()
}

func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	if err := r.ensureConnected(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		if err := r.ensureConnected(ctx); err != nil {
			return nil, err
		}
		r.mu.RLock()
		conn = r.conn
		r.mu.RUnlock()
	}

	ch, err := conn.Channel()
	if err != nil {
		if errReconnect := r.reconnectWithBackoff(ctx); errReconnect != nil {
			return nil, errReconnect
		}

		r.mu.RLock()
		conn = r.conn
		r.mu.RUnlock()

		ch, err = conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to create rabbitmq channel after reconnect: %w", err)
		}
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return ch, nil
}

func (r *RabbitMQ) ensureConnected(ctx context.Context) error {
	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()

	if conn != nil && !conn.IsClosed() {
		return nil
	}

	return r.reconnectWithBackoff(ctx)
}

func (r *RabbitMQ) reconnectWithBackoff(ctx context.Context) error {
	r.reconnectMu.Lock()
	defer r.reconnectMu.Unlock()

	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()
	if conn != nil && !conn.IsClosed() {
		return nil
	}

	wait := reconnectBackoff
	for {
		newConn, err := amqp.Dial(r.url)
		if err == nil {
			r.mu.Lock()
			oldConn := r.conn
			r.conn = newConn
			r.mu.Unlock()

			if oldConn != nil && !oldConn.IsClosed() {
				_ = oldConn.Close()
			}

			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rabbitmq reconnect canceled: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
}

// DeclareTopology declares all exchanges, queues and bindings on a fresh
// channel. Declarations are idempotent; the worker calls this at startup and
// every channel recreated after a reconnect repeats them.
func (r *RabbitMQ) DeclareTopology(ctx context.Context) error {
	ch, err := r.channel(ctx)
	if err != nil {
		return err
	}
	return ch.Close()
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeNotifications, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", ExchangeNotifications, err)
	}
	if err := ch.ExchangeDeclare(ExchangeWebhooks, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", ExchangeWebhooks, err)
	}
	if err := ch.ExchangeDeclare(ExchangeDLX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", ExchangeDLX, err)
	}

	if _, err := ch.QueueDeclare(QueueDead, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", QueueDead, err)
	}
	if err := ch.QueueBind(QueueDead, RoutingKeyDead, ExchangeDLX, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", QueueDead, err)
	}

	workArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLX,
		"x-dead-letter-routing-key": RoutingKeyDead,
	}

	for _, channel := range domain.Channels() {
		for _, priority := range domain.Priorities() {
			name := WorkQueue(channel, priority)

			if _, err := ch.QueueDeclare(name, true, false, false, false, workArgs); err != nil {
				return fmt.Errorf("failed to declare queue %q: %w", name, err)
			}
			if err := ch.QueueBind(name, RoutingKey(channel, priority), ExchangeNotifications, false, nil); err != nil {
				return fmt.Errorf("failed to bind queue %q: %w", name, err)
			}
		}
	}

	if _, err := ch.QueueDeclare(QueueScheduled, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", QueueScheduled, err)
	}
	if err := ch.QueueBind(QueueScheduled, RoutingKeyScheduled, ExchangeNotifications, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", QueueScheduled, err)
	}

	if _, err := ch.QueueDeclare(QueueWebhooks, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", QueueWebhooks, err)
	}
	if err := ch.QueueBind(QueueWebhooks, RoutingKeyWebhook, ExchangeWebhooks, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", QueueWebhooks, err)
	}

	return nil
}
