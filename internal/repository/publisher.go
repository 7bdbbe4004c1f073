package repository

import (
	"context"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/repository"
	pkgkafka "MarketCast/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Events are keyed by asset so
// one asset's predictions stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev *models.PredictionEvent) error {
	if ev == nil || ev.Outcome == nil {
		return nil
	}
	return p.producer.Publish(ctx, pkgkafka.Message{
		Topic: p.topic,
		Key:   string(ev.Outcome.Class) + ":" + ev.Outcome.Symbol,
		Value: ev,
		Headers: map[string]string{
			"event-type":   ev.Type,
			"content-type": "application/json",
		},
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.PredictionEvent) error { return nil }
func (NopPublisher) Close() error { return nil }
