package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader serves a fixed message list, then blocks until the context
// is cancelled.
type fakeReader struct {
	messages  []kafkago.Message
	committed []kafkago.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.messages) == 0 {
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestDecodeBatchProcessJob(t *testing.T) {
	id := uuid.New()
	job, err := DecodeBatchProcessJob([]byte(`{"process_id":"` + id.String() + `"}`))
	require.NoError(t, err)
	assert.Equal(t, id, job.ProcessID)
}

func TestDecodeBatchProcessJobMissingID(t *testing.T) {
	_, err := DecodeBatchProcessJob([]byte(`{}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestDecodeReceptorPreparationJob(t *testing.T) {
	job, err := DecodeReceptorPreparationJob([]byte(`{
		"workdir": "/data/prep/2bl9",
		"receptor_filename": "2bl9.pdb",
		"grid_size": "60,60,60"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "2bl9.pdb", job.ReceptorFilename)
	assert.Equal(t, "60,60,60", job.GridSize)
	assert.Empty(t, job.LigandFilename)
	assert.Equal(t, uuid.Nil, job.MacromoleculeID)
}

func TestDecodeReceptorPreparationJobMissingReceptor(t *testing.T) {
	_, err := DecodeReceptorPreparationJob([]byte(`{"workdir":"/data"}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = DecodeReceptorPreparationJob([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestProducerPublishesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	job := BatchProcessJob{ProcessID: uuid.New()}
	require.NoError(t, p.EnqueueBatchProcess(context.Background(), job))

	require.Len(t, w.messages, 1)
	assert.Equal(t, TopicProcessRun, w.messages[0].Topic)
	assert.Equal(t, job.ProcessID.String(), string(w.messages[0].Key))

	decoded, err := DecodeBatchProcessJob(w.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, job.ProcessID, decoded.ProcessID)
}

func TestProducerWriteFailure(t *testing.T) {
	w := &fakeWriter{err: context.DeadlineExceeded}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	err := p.EnqueueReceptorPreparation(context.Background(), ReceptorPreparationJob{ReceptorFilename: "2bl9.pdb"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueuePublishFailed))
}

func TestProducerClosedRejectsPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.EnqueueBatchProcess(context.Background(), BatchProcessJob{ProcessID: uuid.New()})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueuePublishFailed))
}

func runConsumer(t *testing.T, c *Consumer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))
}

func TestConsumerCommitsHandledMessage(t *testing.T) {
	msg := kafkago.Message{Topic: TopicProcessRun, Value: []byte(`{}`)}
	reader := &fakeReader{messages: []kafkago.Message{msg}}
	dlq := &fakeWriter{}

	var handled int
	c := NewConsumerWithReader(reader, TopicProcessRun, func(context.Context, kafkago.Message) error {
		handled++
		return nil
	}, dlq, 3, time.Millisecond, logging.NewNopLogger())

	runConsumer(t, c)

	assert.Equal(t, 1, handled)
	assert.Len(t, reader.committed, 1)
	assert.Empty(t, dlq.messages)
}

func TestConsumerRetriesRetryableErrors(t *testing.T) {
	reader := &fakeReader{messages: []kafkago.Message{{Topic: TopicProcessRun}}}
	dlq := &fakeWriter{}

	var attempts int
	c := NewConsumerWithReader(reader, TopicProcessRun, func(context.Context, kafkago.Message) error {
		attempts++
		if attempts < 3 {
			return errors.New(errors.ErrCodeDatabaseError, "transient")
		}
		return nil
	}, dlq, 3, time.Millisecond, logging.NewNopLogger())

	runConsumer(t, c)

	assert.Equal(t, 3, attempts)
	assert.Empty(t, dlq.messages)
	assert.Len(t, reader.committed, 1)
}

func TestConsumerDeadLettersAfterExhaustedRetries(t *testing.T) {
	reader := &fakeReader{messages: []kafkago.Message{{Topic: TopicProcessRun, Key: []byte("k")}}}
	dlq := &fakeWriter{}

	var attempts int
	c := NewConsumerWithReader(reader, TopicProcessRun, func(context.Context, kafkago.Message) error {
		attempts++
		return errors.New(errors.ErrCodeToolTimeout, "docking timed out")
	}, dlq, 2, time.Millisecond, logging.NewNopLogger())

	runConsumer(t, c)

	// Initial attempt plus two retries.
	assert.Equal(t, 3, attempts)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, []byte("k"), dlq.messages[0].Key)

	headers := map[string]string{}
	for _, h := range dlq.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, TopicProcessRun, headers["x-origin-topic"])
	assert.Contains(t, headers["x-error"], "docking timed out")

	// The poisonous message still commits.
	assert.Len(t, reader.committed, 1)
}

func TestConsumerDeadLettersNonRetryableImmediately(t *testing.T) {
	reader := &fakeReader{messages: []kafkago.Message{{Topic: TopicReceptorPrepare}}}
	dlq := &fakeWriter{}

	var attempts int
	c := NewConsumerWithReader(reader, TopicReceptorPrepare, func(context.Context, kafkago.Message) error {
		attempts++
		return errors.New(errors.ErrCodeInputNotFound, "receptor file missing")
	}, dlq, 5, time.Millisecond, logging.NewNopLogger())

	runConsumer(t, c)

	assert.Equal(t, 1, attempts)
	assert.Len(t, dlq.messages, 1)
}

func TestDLQTopic(t *testing.T) {
	assert.Equal(t, "docking.process.run.dlq", DLQTopic(TopicProcessRun))
}
