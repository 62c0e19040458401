// Package kafka publishes trip lifecycle events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pkordes/tripwise/internal/domain"
)

type Config struct {
	Brokers []string
	Topic   string
	Log     *slog.Logger // optional; slog.Default() when nil
}

type Producer struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewProducer returns an asynchronous producer: Publish only enqueues, and
// delivery failures are logged from the writer's completion callback.
func NewProducer(cfg Config) *Producer {
	p := &Producer{log: cfg.Log}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             p.delivered,
	}
	return p
}

func (p *Producer) delivered(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	p.log.Error("trip event delivery failed",
		"topic", p.writer.Topic, "messages", len(msgs), "error", err)
}

// Publish enqueues ev keyed by user id, so one user's events stay ordered
// within a partition. It does not wait for the broker.
func (p *Producer) Publish(ctx context.Context, ev domain.TripEvent) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka.Producer.Publish: %w", err)
	}
	return nil
}

func message(ev domain.TripEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka.Producer.Publish: encode: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.UserID.String()),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}, nil
}

func (p *Producer) Topic() string {
	return p.writer.Topic
}

// Close flushes pending events and releases the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
