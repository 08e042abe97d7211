package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Handler processes one job message.  A nil return commits the message;
// a retryable error re-runs the handler up to the retry budget; any
// other error, or an exhausted budget, routes the message to the topic's
// dead-letter queue.
type Handler func(ctx context.Context, msg kafka.Message) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one job topic and dispatches messages to its handler.
type Consumer struct {
	reader     ReaderInterface
	topic      string
	handler    Handler
	dlq        WriterInterface
	maxRetries int
	retryDelay time.Duration
	logger     logging.Logger
}

func NewConsumer(cfg config.KafkaConfig, worker config.WorkerConfig, topic string, handler Handler, log logging.Logger) *Consumer {
	readerCfg := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          topic,
		SessionTimeout: cfg.SessionTimeout,
		StartOffset:    kafka.FirstOffset,
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	dlq := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        DLQTopic(topic),
		RequiredAcks: kafka.RequireAll,
	}

	return &Consumer{
		reader:     kafka.NewReader(readerCfg),
		topic:      topic,
		handler:    handler,
		dlq:        dlq,
		maxRetries: worker.MaxRetries,
		retryDelay: worker.RetryDelay,
		logger:     log.Named("kafka_consumer").With(logging.String("topic", topic)),
	}
}

// NewConsumerWithReader is the test constructor.
func NewConsumerWithReader(reader ReaderInterface, topic string, handler Handler, dlq WriterInterface, maxRetries int, retryDelay time.Duration, log logging.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		topic:      topic,
		handler:    handler,
		dlq:        dlq,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     log,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consuming")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeQueueConsumeFailed, "failed to fetch message")
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("committing message", logging.Err(err))
		}
	}
}

// process runs the handler with the bounded retry policy.  Every exit
// path commits the message; a poisonous job must not wedge the
// partition.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying job",
				logging.Int("attempt", attempt),
				logging.Err(lastErr),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
		}

		lastErr = c.handler(ctx, msg)
		if lastErr == nil {
			return
		}
		if !errors.IsRetryable(lastErr) {
			break
		}
	}

	c.logger.Error("job failed, routing to dead letter queue",
		logging.String("key", string(msg.Key)),
		logging.Err(lastErr),
	)
	c.deadLetter(ctx, msg, lastErr)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	dead := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "x-origin-topic", Value: []byte(c.topic)},
			kafka.Header{Key: "x-error", Value: []byte(cause.Error())},
			kafka.Header{Key: "x-failed-at", Value: []byte(strconv.FormatInt(time.Now().Unix(), 10))},
		),
	}
	if err := c.dlq.WriteMessages(ctx, dead); err != nil {
		c.logger.Error("publishing to dead letter queue", logging.Err(err))
	}
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return err
	}
	return c.dlq.Close()
}
