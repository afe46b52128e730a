package repository

import (
	"context"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
)

// producer is the slice of pkg/kafka.Producer the publisher needs.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher writes SignalEvents as JSON, keyed by pair name so one
// pair's events stay ordered on a partition.
type KafkaSignalPublisher struct {
	producer producer
	topic    string
}

func NewKafkaSignalPublisher(p producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: p, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev *models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Pair), ev)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
