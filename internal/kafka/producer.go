package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"student-registry/internal/registry"

	"github.com/IBM/sarama"
)

// Producer writes registry events to a single topic, keyed by student id so
// one student's events stay ordered within a partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, err
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return NewProducerWithClient(producer, topic, logger), nil
}

func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "student-registry"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return config
}

// NewProducerWithClient wraps an existing SyncProducer.
func NewProducerWithClient(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

func MessageKey(event registry.Event) string {
	if event.StudentID != 0 {
		return "student-" + strconv.Itoa(event.StudentID)
	}
	return "course-" + strconv.Itoa(event.CourseID)
}

func (p *Producer) Publish(ctx context.Context, event registry.Event) error {
	valueBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal event", "error", err)
		return err
	}

	key := MessageKey(event)
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send event to kafka", "error", err, "event_type", event.Type)
		return err
	}

	p.logger.DebugContext(ctx, "event sent to kafka",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"key", key,
	)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
