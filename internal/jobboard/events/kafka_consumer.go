package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DeadLetterSuffix is appended to the topic name to form the topic that
// receives messages the consumer gave up on.
const DeadLetterSuffix = ".dead"

// handlerAttempts bounds how often one event is offered to the handler
// before it is dead-lettered.
const handlerAttempts = 5

// MessageReader is the subset of kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     MessageReader
	deadLetter KafkaWriter
	logger     *zap.Logger
	handler    func(context.Context, Event) error
	newBackOff func() backoff.BackOff
}

// NewConsumer reads job board events from topic as part of groupID.
// Messages that cannot be handled go to topic+DeadLetterSuffix.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	})
	deadLetter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic + DeadLetterSuffix,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newConsumer(reader, deadLetter, logger, retryBackOff)
}

func newConsumer(reader MessageReader, deadLetter KafkaWriter, logger *zap.Logger, newBackOff func() backoff.BackOff) *Consumer {
	return &Consumer{
		reader:     reader,
		deadLetter: deadLetter,
		logger:     logger.Named("kafka_consumer"),
		newBackOff: newBackOff,
	}
}

// retryBackOff waits 200ms growing to 30s between attempts and never gives
// up on its own.
func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run processes messages in order until ctx is cancelled. Fetch errors are
// retried with backoff. A message is committed only once the handler
// accepted it or it was written to the dead-letter topic, so no later
// commit can skip over an unhandled message.
func (c *Consumer) Run(ctx context.Context) {
	fetchBackOff := c.newBackOff()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := fetchBackOff.NextBackOff()
			c.logger.Error("Failed to fetch message", zap.Error(err), zap.Duration("retry_in", wait))
			if !sleep(ctx, wait) {
				return
			}
			continue
		}
		fetchBackOff.Reset()

		if err := c.process(ctx, msg); err != nil {
			// only cancellation ends processing of a message early
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				zap.Error(err),
				zap.Int64("offset", msg.Offset),
			)
		}
	}
}

// process hands msg to the handler, retrying failures, and dead-letters it
// when it cannot be parsed or the handler keeps refusing it.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to parse event",
			zap.Error(err),
			zap.ByteString("value", msg.Value),
		)
		return c.sendToDeadLetter(ctx, msg, err)
	}
	if c.handler == nil {
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), handlerAttempts-1), ctx)
	err := backoff.RetryNotify(func() error {
		return c.handler(ctx, event)
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("Handler failed, retrying",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.Duration("retry_in", wait),
		)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Error("Failed to handle event",
		zap.Error(err),
		zap.String("event_type", string(event.Type)),
		zap.String("key", event.Key),
	)
	return c.sendToDeadLetter(ctx, msg, err)
}

// sendToDeadLetter writes msg with the failure cause attached, retrying
// until the write succeeds or ctx is cancelled.
func (c *Consumer) sendToDeadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "source_topic", Value: []byte(msg.Topic)},
	)
	dead := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}

	return backoff.RetryNotify(func() error {
		return c.deadLetter.WriteMessages(ctx, dead)
	}, backoff.WithContext(c.newBackOff(), ctx), func(err error, wait time.Duration) {
		c.logger.Error("Failed to dead-letter message",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
			zap.Duration("retry_in", wait),
		)
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d == backoff.Stop {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Start runs the consumer on its own goroutine.
func (c *Consumer) Start(ctx context.Context) {
	go c.Run(ctx)
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Event) error) {
	c.handler = fn
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
	if err := c.deadLetter.Close(); err != nil {
		c.logger.Error("Failed to close dead-letter writer", zap.Error(err))
	}
}
