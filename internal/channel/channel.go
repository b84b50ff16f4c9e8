package channel

import (
	"context"
	"fmt"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

// Message is one outbound delivery handed to a channel sender.
type Message struct {
	Recipient string
	Subject   *string
	Body      string
	Metadata  map[string]any
}

// SendResult reports the outcome of a single delivery attempt. A failed
// attempt is a result, not a Go error, so it consumes one attempt from the
// notification's retry budget.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Sender is the outbound delivery port for one channel.
type Sender interface {
	Name() domain.Channel
	Send(ctx context.Context, msg Message) SendResult
	ValidateRecipient(recipient string) bool
}

// Registry resolves senders by channel.
type Registry struct {
	senders map[domain.Channel]Sender
}

func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[domain.Channel]Sender, len(senders))}
	for _, s := range senders {
		r.senders[s.Name()] = s
	}
	return r
}

func (r *Registry) Get(channel domain.Channel) (Sender, error) {
	s, ok := r.senders[channel]
	if !ok {
		return nil, fmt.Errorf("no sender registered for channel %q", channel)
	}
	return s, nil
}

func failure(format string, args ...any) SendResult {
	return SendResult{Error: fmt.Sprintf(format, args...)}
}
