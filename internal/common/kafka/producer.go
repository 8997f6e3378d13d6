// internal/common/kafka/producer.go
package kafka

import (
	"context"

	"agrisure-workers/internal/common/config"
	commonerrors "agrisure-workers/internal/common/errors"

	"github.com/segmentio/kafka-go"
)

// Publisher is the outbound side of the choreography: lifecycle fan-out,
// dead-letter placement and backlog re-queues all go through it. Callers
// serialize their payloads; envelopes go through events.Encode so the wire
// contract stays in one place.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// Producer writes records with full-ISR acks so an acknowledged publish
// survives broker failover.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes the record keyed by the partition key. Records for the same
// key land on the same partition, which is the only ordering guarantee
// consumers may rely on.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return commonerrors.NewTransportFailureError(topic, err)
	}
	return nil
}

func (p *Producer) Close() error { return p.writer.Close() }
