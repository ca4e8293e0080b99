package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type Handler func(ctx context.Context, event Event) error

type subscription struct {
	name    string
	handler Handler
}

// Bus delivers events synchronously, in subscription order.
// A failing subscriber is logged and never stops the others.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

var _ Publisher = (*Bus)(nil)

func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, handler: handler})
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("subscriber", sub.name).
				Str("event_type", event.Type).
				Str("event_id", event.ID).
				Msg("event subscriber failed")
		}
	}
}

// Forward returns a Handler that broadcasts every event to SSE clients.
func Forward(sender EventSender) Handler {
	return func(ctx context.Context, event Event) error {
		sender.Broadcast(event)
		return nil
	}
}
