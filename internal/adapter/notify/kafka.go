package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	appDomain "kyc-backend/internal/domain/application"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes lifecycle events keyed by application id, so events of
// one application stay on one partition.
type KafkaNotifier struct {
	w     messageWriter
	topic string
	log   *slog.Logger
}

func NewKafkaNotifier(brokers []string, topic string, log *slog.Logger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		// the dispatcher owns retries
		MaxAttempts:  1,
		WriteTimeout: 5 * time.Second,
	}
	return newKafkaNotifier(w, topic, log)
}

func newKafkaNotifier(w messageWriter, topic string, log *slog.Logger) *KafkaNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaNotifier{w: w, topic: topic, log: log}
}

func (n *KafkaNotifier) Notify(ctx context.Context, e appDomain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.ApplicationID),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
			{Key: "event_type", Value: []byte(e.Kind)},
		},
	}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		n.log.ErrorContext(ctx, "kafka publish failed",
			"topic", n.topic, "event_id", e.ID, "type", e.Kind, "error", err)
		return fmt.Errorf("%w: kafka: %v", appDomain.ErrUpstream, err)
	}
	n.log.DebugContext(ctx, "event published", "topic", n.topic, "event_id", e.ID, "type", e.Kind)
	return nil
}

func (n *KafkaNotifier) Close() error { return n.w.Close() }

// LogNotifier writes events to the log; used when no brokers are configured.
type LogNotifier struct{ log *slog.Logger }

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, e appDomain.Event) error {
	n.log.InfoContext(ctx, "kyc event",
		"event_id", e.ID,
		"type", e.Kind,
		"application_id", e.ApplicationID,
		"application_number", e.ApplicationNumber,
		"owner_id", e.OwnerID,
		"status", e.Status,
	)
	return nil
}
