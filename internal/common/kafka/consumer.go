// internal/common/kafka/consumer.go
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"agrisure-workers/internal/common/config"
	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/metrics"

	"github.com/segmentio/kafka-go"
)

// HandleFunc processes one raw record from a topic. The returned error drives
// the retry/dead-letter decision; handlers never suppress an error that needs
// to block acknowledgment.
type HandleFunc func(ctx context.Context, topic string, raw []byte) error

// Consumer runs the fetch/handle/commit loop for a single topic. Records on
// the partitions this consumer owns are processed strictly one at a time, so
// per-partition ordering is preserved; parallelism comes from running one
// Consumer per topic and from the group rebalancing partitions across
// instances.
type Consumer struct {
	reader     *kafka.Reader
	producer   Publisher
	handle     HandleFunc
	logger     logger.Logger
	topic      string
	maxRetries int
	backoff    time.Duration
}

func NewConsumer(
	kafkaCfg config.KafkaConfig,
	consumerCfg config.ConsumerConfig,
	topic string,
	producer Publisher,
	handle HandleFunc,
	log logger.Logger,
) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkaCfg.Brokers,
		GroupID:  kafkaCfg.GroupID,
		Topic:    topic,
		MinBytes: kafkaCfg.MinBytes,
		MaxBytes: kafkaCfg.MaxBytes,
	})
	return &Consumer{
		reader:     reader,
		producer:   producer,
		handle:     handle,
		logger:     log.WithFields(map[string]interface{}{"topic": topic}),
		topic:      topic,
		maxRetries: consumerCfg.MaxRetries,
		backoff:    time.Duration(kafkaCfg.RetryBackoff) * time.Millisecond,
	}
}

// Run consumes until the context is cancelled. A record is committed exactly
// when it will never be processed again: after success, after an ignorable
// failure, or after dead-letter placement.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if !c.process(ctx, m) {
			// Dead-letter placement failed: leave the offset uncommitted so
			// the record replays instead of vanishing.
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			// Uncommitted offsets replay on rebalance; the idempotency
			// guard absorbs the duplicates.
			c.logger.Warn("offset commit failed", map[string]interface{}{
				"partition": m.Partition,
				"offset":    m.Offset,
				"error":     err.Error(),
			})
		}
	}
}

// process applies the retry budget in place, then dead-letters. The budget
// per error code is the smaller of the consumer's and the code's own. The
// return value reports whether the record's offset may be committed.
func (c *Consumer) process(ctx context.Context, m kafka.Message) bool {
	var err error
	delay := c.backoff

	for attempt := 0; ; attempt++ {
		err = c.handle(ctx, c.topic, m.Value)
		if err == nil {
			metrics.EventsConsumed.WithLabelValues(c.topic, "ok").Inc()
			return true
		}

		code := commonerrors.CodeOf(err)
		if code == commonerrors.ErrCodeDuplicateEvent || code == commonerrors.ErrCodeUnknownEventType {
			// Drop: acknowledged, never retried, never dead-lettered.
			c.logger.Info("record dropped", map[string]interface{}{
				"errorCode": string(code),
				"partition": m.Partition,
				"offset":    m.Offset,
			})
			metrics.EventsDropped.WithLabelValues(c.topic, string(code)).Inc()
			return true
		}

		budget := commonerrors.GetRetryCount(code)
		if budget > c.maxRetries {
			budget = c.maxRetries
		}
		if !commonerrors.IsRetryable(err) || attempt >= budget {
			break
		}

		c.logger.Warn("handler failed, retrying", map[string]interface{}{
			"errorCode": string(code),
			"attempt":   attempt + 1,
			"budget":    budget,
			"nextRetry": delay.String(),
		})
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay *= 2
	}

	return c.deadLetter(ctx, m, err)
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, cause error) bool {
	code := commonerrors.CodeOf(cause)
	c.logger.Error("record dead-lettered", map[string]interface{}{
		"errorCode":     string(code),
		"errorCategory": commonerrors.GetErrorCategory(code),
		"partition":     m.Partition,
		"offset":        m.Offset,
		"error":         cause.Error(),
	})

	dead, err := json.Marshal(map[string]interface{}{
		"sourceTopic": c.topic,
		"errorCode":   string(code),
		"error":       cause.Error(),
		"failedAt":    time.Now().UTC(),
		"record":      string(m.Value),
	})
	if err != nil {
		c.logger.Error("dead-letter encode failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	if err := c.producer.Publish(ctx, DLT(c.topic), string(m.Key), dead); err != nil {
		c.logger.Error("dead-letter publish failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	metrics.EventsDeadLettered.WithLabelValues(c.topic, string(code)).Inc()
	return true
}

func (c *Consumer) Close() error { return c.reader.Close() }
