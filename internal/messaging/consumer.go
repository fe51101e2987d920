package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"student-registry/internal/metrics"
	"student-registry/internal/registry"

	"github.com/nats-io/nats.go"
)

// EventHandler processes one decoded registry event.
type EventHandler func(ctx context.Context, event registry.Event) error

// Consumer subscribes to every registry event under a subject prefix.
type Consumer struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	handler EventHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewConsumer(url string, prefix string, handler EventHandler, logger *slog.Logger, metrics *metrics.Metrics) (*Consumer, error) {
	nc, err := nats.Connect(url, nats.Name("student-registry-consumer"))
	if err != nil {
		return nil, err
	}

	return &Consumer{
		conn:    nc,
		subject: prefix + ".>",
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Start subscribes and blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.conn.Subscribe(c.subject, func(msg *nats.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return err
	}
	if err := c.conn.Flush(); err != nil {
		sub.Unsubscribe()
		return err
	}

	c.sub = sub
	c.logger.Info("NATS consumer started", "subject", c.subject)

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	var event registry.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.ErrorContext(ctx, "failed to unmarshal event", "error", err, "subject", msg.Subject)
		return
	}

	c.metrics.RecordEventReceived(ctx, string(event.Type))

	if err := c.handler(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "failed to handle event",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type,
		)
	}
}

func (c *Consumer) Close() error {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.conn.Close()
	return nil
}

// HealthCheck verifies NATS connection is healthy
func (c *Consumer) HealthCheck() error {
	if c.conn == nil {
		return nats.ErrConnectionClosed
	}
	if !c.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}
