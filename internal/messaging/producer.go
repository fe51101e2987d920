package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"student-registry/internal/registry"

	"github.com/nats-io/nats.go"
)

// Producer publishes registry events to NATS on "<prefix>.<event type>".
type Producer struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

func NewProducer(url string, prefix string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url, nats.Name("student-registry-producer"))
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "prefix", prefix)

	return &Producer{
		conn:   nc,
		prefix: prefix,
		logger: logger,
	}, nil
}

func Subject(prefix string, eventType registry.EventType) string {
	return prefix + "." + string(eventType)
}

func (p *Producer) Publish(ctx context.Context, event registry.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal event", "error", err, "event_type", event.Type)
		return err
	}

	subject := Subject(p.prefix, event.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event to NATS", "error", err, "subject", subject)
		return err
	}

	p.logger.DebugContext(ctx, "event published to NATS", "subject", subject, "event_id", event.ID)
	return nil
}

// Flush waits until the server has processed everything published so far.
func (p *Producer) Flush() error {
	return p.conn.Flush()
}

func (p *Producer) HealthCheck() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	if !p.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}

func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
