package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/screening-queue/internal/bus"
)

// Handler reacts to queue change messages
type Handler interface {
	Name() string
	Handle(ctx context.Context, msg bus.Message) error
}

// Config holds dispatcher configuration
type Config struct {
	Name           string
	Subscriber     bus.Subscriber
	Handlers       []Handler
	Logger         *slog.Logger
	Buffer         int
	HandlerTimeout time.Duration
}

// Dispatcher reads one bus subscription and fans every message out to its
// handlers. Each handler runs on its own goroutine with its own buffer.
type Dispatcher struct {
	name           string
	subscriber     bus.Subscriber
	handlers       []Handler
	logger         *slog.Logger
	buffer         int
	handlerTimeout time.Duration

	sub      *bus.Subscription
	inboxes  []chan bus.Message
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(cfg *Config) *Dispatcher {
	d := &Dispatcher{
		name:           cfg.Name,
		subscriber:     cfg.Subscriber,
		handlers:       cfg.Handlers,
		logger:         cfg.Logger,
		buffer:         cfg.Buffer,
		handlerTimeout: cfg.HandlerTimeout,
		stopChan:       make(chan struct{}),
	}

	if d.name == "" {
		d.name = "notify"
	}
	if d.buffer <= 0 {
		d.buffer = 64
	}
	if d.handlerTimeout <= 0 {
		d.handlerTimeout = 5 * time.Second
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// Start subscribes to the bus and spawns the handler goroutines
func (d *Dispatcher) Start(ctx context.Context) error {
	sub, err := d.subscriber.Subscribe(ctx, d.name)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", d.name, err)
	}
	d.sub = sub

	d.logger.Info("Starting dispatcher",
		slog.String("subscription", d.name),
		slog.Int("handlers", len(d.handlers)),
	)

	d.inboxes = make([]chan bus.Message, len(d.handlers))
	for i, h := range d.handlers {
		d.inboxes[i] = make(chan bus.Message, d.buffer)
		d.wg.Add(1)
		go d.handlerLoop(ctx, h, d.inboxes[i])
	}

	d.wg.Add(1)
	go d.readLoop(ctx)

	return nil
}

// readLoop fans subscription messages out to the handler inboxes
func (d *Dispatcher) readLoop(ctx context.Context) {
	defer d.wg.Done()
	defer func() {
		for _, inbox := range d.inboxes {
			close(inbox)
		}
	}()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-d.sub.Messages():
			if !ok {
				d.logger.Warn("Subscription closed",
					slog.String("subscription", d.name),
				)
				return
			}

			for i, inbox := range d.inboxes {
				select {
				case inbox <- msg:
				default:
					d.logger.Warn("Handler is behind, dropping message",
						slog.String("handler", d.handlers[i].Name()),
						slog.String("operation", string(msg.Operation)),
						slog.String("email", msg.Email),
					)
				}
			}
		}
	}
}

// handlerLoop runs one handler until its inbox is closed
func (d *Dispatcher) handlerLoop(ctx context.Context, h Handler, inbox <-chan bus.Message) {
	defer d.wg.Done()

	for msg := range inbox {
		hctx, cancel := context.WithTimeout(ctx, d.handlerTimeout)
		err := h.Handle(hctx, msg)
		cancel()

		if err != nil {
			d.logger.Error("Handler failed",
				slog.String("handler", h.Name()),
				slog.String("operation", string(msg.Operation)),
				slog.String("email", msg.Email),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Stop closes the subscription and waits for the handlers to drain
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("Stopping dispatcher", slog.String("subscription", d.name))
		close(d.stopChan)
		if d.sub != nil {
			if err := d.sub.Close(); err != nil {
				d.logger.Error("Failed to close subscription",
					slog.String("subscription", d.name),
					slog.String("error", err.Error()),
				)
			}
		}
		d.wg.Wait()
		d.logger.Info("Dispatcher stopped", slog.String("subscription", d.name))
	})
}
