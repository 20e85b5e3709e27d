// Package kafka publishes outage lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nociq/nociq/internal/domain"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// Producer writes outage events to a Kafka topic. Best-effort: publish
// failures are logged and never surfaced to the lifecycle operation.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a producer. With no brokers or an empty topic the
// producer is a no-op.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		topic: topic,
	}
}

type eventEnvelope struct {
	Event      string                `json:"event"`
	TicketID   string                `json:"ticket_id"`
	Version    int                   `json:"version"`
	OccurredAt time.Time             `json:"occurred_at"`
	Record     *domain.OutageVersion `json:"record"`
}

// PublishOutageEvent publishes one lifecycle event keyed by ticket id so
// that all versions of a ticket land in the same partition, in order.
func (p *Producer) PublishOutageEvent(ctx context.Context, event string, v *domain.OutageVersion) {
	if p.writer == nil {
		return
	}

	payload, err := json.Marshal(eventEnvelope{
		Event:      event,
		TicketID:   v.TicketID,
		Version:    v.Version,
		OccurredAt: time.Now().UTC(),
		Record:     v,
	})
	if err != nil {
		slog.Error("failed to marshal outage event", "event", event, "error", err)
		return
	}

	// Detach from the request context so a caller disconnect does not
	// cancel an already-committed write's notification.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(pubCtx, kafka.Message{
		Key:   []byte(v.TicketID),
		Value: payload,
	})
	if err != nil {
		slog.Warn("failed to publish outage event",
			"event", event,
			"ticket_id", v.TicketID,
			"topic", p.topic,
			"error", err,
		)
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
