package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes lifecycle events asynchronously. The message key is the
// payment ID and the hash balancer pins a key to one partition, so events of one
// payment are consumed in emission order.
type KafkaPublisher struct {
	log    *slog.Logger
	writer *kafka.Writer
}

// NewKafkaPublisher creates an async publisher for topic (returns interface for ports)
func NewKafkaPublisher(log *slog.Logger, brokers []string, topic string) output.PaymentEventPublisher {
	p := &KafkaPublisher{log: log}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion:   p.completion,
	}
	return p
}

// Publish enqueues event keyed by payment ID and returns without waiting for the brokers
func (p *KafkaPublisher) Publish(ctx context.Context, event core.PaymentEvent) error {
	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.PaymentID.String()),
		Value: body,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "content_type", Value: []byte(contentTypeJSON)},
		},
	}
	// Async writer: this only enqueues, delivery is reported to completion
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish payment event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) completion(messages []kafka.Message, err error) {
	for _, m := range messages {
		eventType := headerValue(m.Headers, "event_type")
		if err != nil {
			p.log.Error("unable to deliver payment event",
				"payment_id", string(m.Key), "event_type", eventType, "err", err)
			continue
		}
		p.log.Info("payment event delivered",
			"payment_id", string(m.Key), "event_type", eventType,
			"partition", m.Partition, "offset", m.Offset)
	}
}

// Close flushes buffered messages
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer feeds lifecycle events from a consumer group to a handler
type KafkaConsumer struct {
	log     *slog.Logger
	reader  *kafka.Reader
	handler input.LifecycleEventHandler
}

// NewKafkaConsumer creates a consumer group member reading topic
func NewKafkaConsumer(log *slog.Logger, brokers []string, topic, groupID string, handler input.LifecycleEventHandler) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &KafkaConsumer{
		log:     log,
		reader:  r,
		handler: handler,
	}
}

// Run consumes until ctx is cancelled. Each message is committed after it has
// been handled, whether or not handling succeeded.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	c.log.Info("started consuming payment events", "topic", c.reader.Config().Topic)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) {
	event, err := decodeEvent(msg.Value)
	if err != nil {
		c.log.Error("skipping undecodable payment event", "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return
	}
	if err := c.handler.HandleEvent(ctx, event); err != nil {
		c.log.Error("payment event handling failed",
			"payment_id", event.PaymentID, "event_type", event.EventType, "err", err)
	}
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
