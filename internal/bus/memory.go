package bus

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber buffer of the in-process bus
const DefaultBuffer = 64

// Memory is an in-process broadcast bus.
// Publishing never blocks: a subscriber whose buffer is full misses the message.
type Memory struct {
	mu     sync.RWMutex
	subs   map[*memorySub]struct{}
	buffer int
	logger *slog.Logger
}

type memorySub struct {
	name string
	ch   chan Message
}

// NewMemory creates an in-process bus with the given per-subscriber buffer
func NewMemory(buffer int, logger *slog.Logger) *Memory {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Memory{
		subs:   make(map[*memorySub]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (m *Memory) Publish(ctx context.Context, msg Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for sub := range m.subs {
		select {
		case sub.ch <- msg:
		default:
			m.logger.Warn("Dropping queue message for slow subscriber",
				slog.String("subscriber", sub.name),
				slog.String("operation", string(msg.Operation)),
				slog.String("email", msg.Email),
			)
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, name string) (*Subscription, error) {
	sub := &memorySub{
		name: name,
		ch:   make(chan Message, m.buffer),
	}

	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("Subscribed to in-process queue bus",
		slog.String("subscriber", name),
	)

	return NewSubscription(name, sub.ch, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[sub]; ok {
			delete(m.subs, sub)
			close(sub.ch)
		}
		return nil
	}), nil
}
