// Package events publishes job board domain events to Kafka and consumes
// them for downstream notifiers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	UserRegistered           EventType = "user_registered"
	CompanyRegistered        EventType = "company_registered"
	CompanyUpdated           EventType = "company_updated"
	CompanyDeleted           EventType = "company_deleted"
	JobPosted                EventType = "job_posted"
	JobDeleted               EventType = "job_deleted"
	ApplicationSubmitted     EventType = "application_submitted"
	ApplicationStatusChanged EventType = "application_status_changed"
)

// Event is the envelope written to the topic. Key is the id of the entity
// the event is about and doubles as the Kafka message key.
type Event struct {
	Type       EventType       `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	// Create topic if it doesn't exist
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	p := newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, 1000)

	go p.eventLoop()
	return p, nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
}

// Produce queues an event without blocking. When the queue is full the
// event is dropped and logged.
func (p *Producer) Produce(eventType EventType, key string, payload interface{}) {
	value, err := jsonMarshal(payload)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
			zap.String("key", key),
		)
		return
	}

	select {
	case p.events <- Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: value}:
	default:
		metrics.EventsDropped.Inc()
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("key", key),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("key", event.Key),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key),
		)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// Discard drops every event. It stands in for the producer when no brokers
// are configured.
type Discard struct {
	Logger *zap.Logger
}

func (d Discard) Produce(eventType EventType, key string, _ interface{}) {
	if d.Logger != nil {
		d.Logger.Debug("event discarded", zap.String("event_type", string(eventType)), zap.String("key", key))
	}
}
