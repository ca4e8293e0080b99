package event

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type SSEServer struct {
	clients map[string]map[chan Event]bool
	events  chan Event
	mu      sync.Mutex
}

func NewSSEServer() EventSender {
	return &SSEServer{
		clients: make(map[string]map[chan Event]bool),
		events:  make(chan Event, 256),
	}
}

// Register subscribes client to topic.
func (s *SSEServer) Register(topic string, client chan Event) {
	s.mu.Lock()
	if _, ok := s.clients[topic]; !ok {
		s.clients[topic] = make(map[chan Event]bool)
	}
	s.clients[topic][client] = true
	total := len(s.clients[topic])
	s.mu.Unlock()
	log.Info().Str("topic", topic).Int("clients", total).Msg("SSE client registered")
}

// Unregister removes client from topic and closes it.
func (s *SSEServer) Unregister(topic string, client chan Event) {
	s.mu.Lock()
	if clients, ok := s.clients[topic]; ok {
		if clients[client] {
			delete(clients, client)
			close(client)
		}
		if len(clients) == 0 {
			delete(s.clients, topic)
		}
	}
	remaining := len(s.clients[topic])
	s.mu.Unlock()
	log.Info().Str("topic", topic).Int("clients", remaining).Msg("SSE client unregistered")
}

// Broadcast queues event for the clients of its topic.
func (s *SSEServer) Broadcast(event Event) {
	select {
	case s.events <- event:
	default:
		log.Warn().Str("topic", event.Topic).Str("event_type", event.Type).Msg("SSE queue full, event dropped")
	}
}

// Run fans queued events out to clients. Slow clients miss events instead of blocking others.
func (s *SSEServer) Run() {
	for event := range s.events {
		s.mu.Lock()
		for client := range s.clients[event.Topic] {
			select {
			case client <- event:
			default:
				log.Warn().Str("topic", event.Topic).Msg("SSE client not ready, event skipped")
			}
		}
		s.mu.Unlock()
	}
}
