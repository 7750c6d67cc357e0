package eventbus

import (
	"context"
	"log/slog"
)

// InProcessBus delivers published messages synchronously to registered
// consumers. It stands in for RabbitMQ in local mode and satisfies both
// Publisher and Consumer.
type InProcessBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
}

// NewInProcessBus creates a new in-process bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (b *InProcessBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish decodes the envelope and dispatches it. Malformed envelopes and
// consumer failures are logged, never returned, mirroring broker semantics
// where the publisher does not see consumer outcomes.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := Decode(routingKey, payload)
	if err != nil {
		b.logger.Error("dropping malformed event", "routing_key", routingKey, "error", err)
		return nil
	}
	if err := b.registry.Dispatch(ctx, event); err != nil {
		b.logger.Error("event dispatch failed",
			"routing_key", routingKey,
			"event_id", event.EventID,
			"error", err,
		)
	}
	return nil
}

// Start blocks until ctx is cancelled; delivery happens inside Publish.
func (b *InProcessBus) Start(ctx context.Context) error {
	b.logger.Info("in-process event bus started")
	<-ctx.Done()
	return ctx.Err()
}

// Close is a no-op for the in-process bus.
func (b *InProcessBus) Close() error {
	return nil
}

var (
	_ Publisher = (*InProcessBus)(nil)
	_ Consumer  = (*InProcessBus)(nil)
)
