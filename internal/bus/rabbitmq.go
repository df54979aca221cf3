package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/screening-queue/shared/rabbitmq"
	"github.com/google/uuid"
)

// RabbitMQ carries queue messages over a fanout exchange so that every
// process subscribed to the exchange sees every change
type RabbitMQ struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewRabbitMQ creates a bus on top of a connected client
func NewRabbitMQ(client *rabbitmq.Client, logger *slog.Logger) *RabbitMQ {
	return &RabbitMQ{
		client: client,
		logger: logger,
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}
	return r.client.Publish(ctx, body, "application/json")
}

func (r *RabbitMQ) Subscribe(ctx context.Context, name string) (*Subscription, error) {
	consumerTag := fmt.Sprintf("%s-%s", name, uuid.NewString())

	deliveries, closeFunc, err := r.client.Subscribe(consumerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", name, err)
	}

	out := make(chan Message)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for delivery := range deliveries {
			var msg Message
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				r.logger.Error("Failed to parse queue message",
					slog.String("subscriber", name),
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				continue
			}
			select {
			case out <- msg:
			case <-done:
				return
			}
		}
		r.logger.Info("RabbitMQ delivery channel closed",
			slog.String("subscriber", name),
		)
	}()

	return NewSubscription(name, out, func() error {
		close(done)
		return closeFunc()
	}), nil
}
