package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes job messages.  Messages are keyed by job ID so
// redeliveries of the same job land on the same partition.
type Producer struct {
	writer WriterInterface
	logger logging.Logger
	closed atomic.Bool
}

func NewProducer(cfg config.KafkaConfig, log logging.Logger) *Producer {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: writeTimeout,
	}
	return &Producer{writer: writer, logger: log.Named("kafka_producer")}
}

// NewProducerWithWriter is the test constructor.
func NewProducerWithWriter(writer WriterInterface, log logging.Logger) *Producer {
	return &Producer{writer: writer, logger: log}
}

// EnqueueReceptorPreparation publishes a preparation job.
func (p *Producer) EnqueueReceptorPreparation(ctx context.Context, job ReceptorPreparationJob) error {
	key := job.MacromoleculeID
	if key == uuid.Nil {
		key = uuid.New()
	}
	return p.publish(ctx, TopicReceptorPrepare, key, job)
}

// EnqueueBatchProcess publishes a batch process job.
func (p *Producer) EnqueueBatchProcess(ctx context.Context, job BatchProcessJob) error {
	return p.publish(ctx, TopicProcessRun, job.ProcessID, job)
}

func (p *Producer) publish(ctx context.Context, topic string, key uuid.UUID, payload interface{}) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeQueuePublishFailed, "producer closed")
	}
	value, err := encodeJob(payload)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key.String()),
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publishing job",
			logging.String("topic", topic),
			logging.String("key", key.String()),
			logging.Err(err),
		)
		return errors.Wrap(err, errors.ErrCodeQueuePublishFailed, "failed to publish job")
	}
	p.logger.Debug("job published",
		logging.String("topic", topic),
		logging.String("key", key.String()),
	)
	return nil
}

func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
