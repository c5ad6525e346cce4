package notifier

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/pablosanchi/consultation-backend/internal/config"
	"github.com/pablosanchi/consultation-backend/internal/domain"
)

// KafkaPublisher writes notification events to a single topic, keyed by
// event type so consumers can partition on it.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		}),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: event.Payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
