// The notifier consumes job board events and logs the ones applicants care
// about. It is the hook where mail or push delivery would be attached.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/logger"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if !cfg.KafkaEnabled() {
		zl.Fatal("kafka.brokers must be configured for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, zl)
	defer consumer.Close()
	consumer.RegisterHandler(notify(zl))

	zl.Info("Notifier started", zap.String("topic", cfg.Kafka.Topic), zap.String("group", cfg.Kafka.GroupID))
	consumer.Run(ctx)
	zl.Info("Notifier stopped")
}

// notify handles one event. Malformed payloads are returned as errors; the
// consumer retries them and then moves them to the dead-letter topic.
func notify(logger *zap.Logger) func(context.Context, events.Event) error {
	return func(_ context.Context, event events.Event) error {
		switch event.Type {
		case events.ApplicationStatusChanged:
			var change models.StatusChange
			if err := json.Unmarshal(event.Payload, &change); err != nil {
				return fmt.Errorf("decode status change: %w", err)
			}
			logger.Info("Application status changed",
				zap.String("application_id", change.ApplicationID.String()),
				zap.String("applicant_id", change.ApplicantUserID.String()),
				zap.String("from", string(change.From)),
				zap.String("to", string(change.To)),
			)
		case events.ApplicationSubmitted:
			logger.Info("Application submitted", zap.String("application_id", event.Key))
		default:
			logger.Debug("Event ignored", zap.String("event_type", string(event.Type)), zap.String("key", event.Key))
		}
		return nil
	}
}
