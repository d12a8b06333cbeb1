package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader replays a fixed set of messages, then blocks until cancelled.
type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

// brokenReader fails every fetch.
type brokenReader struct {
	fetches atomic.Int64
}

func (b *brokenReader) FetchMessage(context.Context) (kafka.Message, error) {
	b.fetches.Add(1)
	return kafka.Message{}, errors.New("broker unavailable")
}

func (b *brokenReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }
func (b *brokenReader) Close() error                                           { return nil }

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func mustEvent(t *testing.T, event Event) []byte {
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func deadLettered(w *MockKafkaWriter) []kafka.Message {
	var out []kafka.Message
	for _, call := range w.Calls {
		if call.Method == "WriteMessages" {
			out = append(out, call.Arguments.Get(1).([]kafka.Message)...)
		}
	}
	return out
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestConsumer_Run(t *testing.T) {
	good := mustEvent(t, Event{Type: ApplicationStatusChanged, Key: "a1", Payload: json.RawMessage(`{}`)})
	refused := mustEvent(t, Event{Type: JobPosted, Key: "j1"})

	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Topic: "jobboard.events", Offset: 1, Value: good},
			{Topic: "jobboard.events", Offset: 2, Value: []byte("not json")},
			{Topic: "jobboard.events", Offset: 3, Value: refused},
		},
		cancel: cancel,
	}
	dlq := new(MockKafkaWriter)
	dlq.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	dlq.On("Close").Return(nil)
	core, recorded := observer.New(zap.WarnLevel)
	consumer := newConsumer(reader, dlq, zap.New(core), noWait)

	var handled []EventType
	consumer.RegisterHandler(func(_ context.Context, event Event) error {
		handled = append(handled, event.Type)
		if event.Type == JobPosted {
			return errors.New("refused")
		}
		return nil
	})

	consumer.Run(ctx)

	assert.Equal(t, ApplicationStatusChanged, handled[0])
	assert.Len(t, handled, 1+handlerAttempts, "a refused event is retried before giving up")
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())

	dead := deadLettered(dlq)
	require.Len(t, dead, 2, "unparsable and refused messages are dead-lettered")
	assert.Equal(t, []byte("not json"), dead[0].Value)
	assert.Equal(t, refused, dead[1].Value)
	assert.Equal(t, "refused", header(dead[1], "error"))
	assert.Equal(t, "jobboard.events", header(dead[1], "source_topic"))

	require.Len(t, reader.committed, 3, "messages are committed once handled or dead-lettered")
	for i, msg := range reader.committed {
		assert.EqualValues(t, i+1, msg.Offset)
	}

	consumer.Close()
	assert.True(t, reader.closed)
	dlq.AssertCalled(t, "Close")
}

func TestConsumer_RetriesTransientHandlerFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		msgs:   []kafka.Message{{Value: mustEvent(t, Event{Type: JobPosted, Key: "j1"})}},
		cancel: cancel,
	}
	dlq := new(MockKafkaWriter)
	consumer := newConsumer(reader, dlq, zaptest.NewLogger(t), noWait)

	attempts := 0
	consumer.RegisterHandler(func(context.Context, Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("downstream busy")
		}
		return nil
	})

	consumer.Run(ctx)

	assert.Equal(t, 3, attempts)
	assert.Len(t, reader.committed, 1)
	dlq.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestConsumer_HoldsOffsetWhileDeadLetterIsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("not json")},
			{Offset: 2, Value: mustEvent(t, Event{Type: JobPosted, Key: "j2"})},
		},
		cancel: cancel,
	}
	writes := 0
	dlq := new(MockKafkaWriter)
	dlq.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("dead-letter topic unavailable")).
		Run(func(mock.Arguments) {
			writes++
			if writes == 3 {
				cancel()
			}
		})

	var handled int
	consumer := newConsumer(reader, dlq, zaptest.NewLogger(t), noWait)
	consumer.RegisterHandler(func(context.Context, Event) error {
		handled++
		return nil
	})

	consumer.Run(ctx)

	assert.Empty(t, reader.committed, "nothing past an unhandled message is committed")
	assert.Zero(t, handled, "processing stops at the unhandled message")
	assert.GreaterOrEqual(t, writes, 3)
}

func TestConsumer_FetchErrorsBackOff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	reader := &brokenReader{}
	core, recorded := observer.New(zap.ErrorLevel)
	consumer := newConsumer(reader, new(MockKafkaWriter), zap.New(core), func() backoff.BackOff {
		return backoff.NewConstantBackOff(20 * time.Millisecond)
	})

	consumer.Run(ctx)

	fetches := reader.fetches.Load()
	assert.GreaterOrEqual(t, fetches, int64(2))
	assert.LessOrEqual(t, fetches, int64(10), "a broken broker is not polled in a tight loop")
	// the last fetch may race the deadline and go unlogged
	assert.InDelta(t, fetches, recorded.FilterMessage("Failed to fetch message").Len(), 1)
}

func TestRetryBackOffNeverStops(t *testing.T) {
	b := retryBackOff()
	for i := 0; i < 50; i++ {
		wait := b.NextBackOff()
		require.NotEqual(t, backoff.Stop, wait)
		assert.LessOrEqual(t, wait, 45*time.Second)
	}
}
