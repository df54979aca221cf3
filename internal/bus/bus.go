package bus

import (
	"context"
	"sync"
)

// Operation names the kind of queue change carried by a message
type Operation string

// Queue change operations
const (
	OperationAddedJob      Operation = "addedJob"
	OperationRemovedJob    Operation = "removedJob"
	OperationChangedStatus Operation = "changedStatus"
)

// Message signals a queue change. Consumers re-query the engine for state.
type Message struct {
	Operation     Operation `json:"operation"`
	Email         string    `json:"email"`
	ScreenerEmail string    `json:"screenerEmail,omitempty"`
}

// Publisher sends change messages to every subscriber
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscriber opens independent subscriptions to change messages
type Subscriber interface {
	Subscribe(ctx context.Context, name string) (*Subscription, error)
}

// Subscription delivers messages until it is closed
type Subscription struct {
	Name      string
	messages  <-chan Message
	closeFunc func() error
	once      sync.Once
	closeErr  error
}

// NewSubscription wraps a message channel and its teardown
func NewSubscription(name string, messages <-chan Message, closeFunc func() error) *Subscription {
	return &Subscription{
		Name:      name,
		messages:  messages,
		closeFunc: closeFunc,
	}
}

// Messages returns the delivery channel; it is closed when the subscription ends
func (s *Subscription) Messages() <-chan Message {
	return s.messages
}

// Close ends the subscription
func (s *Subscription) Close() error {
	s.once.Do(func() {
		if s.closeFunc != nil {
			s.closeErr = s.closeFunc()
		}
	})
	return s.closeErr
}
