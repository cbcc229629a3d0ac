package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName       = "payment.events"
	DeadLetterExchange = "payment.events.dlx"
	QueueName          = "payment_notifications"
	DeadLetterQueue    = "payment_notifications.dlq"
	BindingKey         = "payment.#"
	ConsumerTag        = "payment-notifier"
	PrefetchCount      = 1 // one in-flight delivery keeps per-payment order
	confirmTimeout     = 30 * time.Second
	closeTimeout       = 5 * time.Second
)

// ErrPublisherClosed is returned by Publish after Close
var ErrPublisherClosed = errors.New("rabbitmq publisher closed")

// RabbitMQClient is a secondary adapter that implements the PaymentEventPublisher
// output port and consumes lifecycle events for notifications.
//
// Events are routed as payment.<eventtype>.<paymentId>. The notification queue
// is single-active-consumer with prefetch 1, so events of one payment are
// handled in emission order however many workers are attached.
type RabbitMQClient struct {
	log     *slog.Logger
	conn    *amqp.Connection
	channel *amqp.Channel

	// publishes share one channel; holding mu keeps emission order on the wire
	mu       sync.Mutex
	closed   bool
	confirms sync.WaitGroup
}

// NewRabbitMQPublisher creates a new RabbitMQ client (returns interface for ports)
func NewRabbitMQPublisher(amqpURL string, log *slog.Logger) (output.PaymentEventPublisher, error) {
	return NewRabbitMQClient(amqpURL, log)
}

// NewRabbitMQClient dials the broker and declares the event topology
// (returns concrete type for workers)
func NewRabbitMQClient(amqpURL string, log *slog.Logger) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	// Publisher confirms let Publish return before the broker acknowledges
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQClient{
		log:     log,
		conn:    conn,
		channel: channel,
	}, nil
}

func declareTopology(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	err = channel.ExchangeDeclare(DeadLetterExchange, "fanout", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}

	if _, err = channel.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}
	if err = channel.QueueBind(DeadLetterQueue, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	_, err = channel.QueueDeclare(
		QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs(),
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err = channel.QueueBind(QueueName, BindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// queueArgs configures the notification queue: failures are dead-lettered and
// only one consumer receives deliveries at a time.
func queueArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":   DeadLetterExchange,
		"x-single-active-consumer": true,
	}
}

// Publish hands the event to the broker keyed by payment ID. The broker
// confirmation is awaited in the background and only logged.
func (c *RabbitMQClient) Publish(ctx context.Context, event core.PaymentEvent) error {
	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrPublisherClosed
	}
	dc, err := c.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		ExchangeName,
		routingKey(event),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  contentTypeJSON,
			DeliveryMode: amqp.Persistent, // Make message persistent
			MessageId:    uuid.NewString(),
			Timestamp:    event.Timestamp,
			Headers: amqp.Table{
				"payment_id": event.PaymentID.String(),
				"event_type": string(event.EventType),
			},
			Body: body,
		},
	)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to publish payment event: %w", err)
	}
	// Add under mu: Close flips closed under mu before it waits
	c.confirms.Add(1)
	c.mu.Unlock()

	go c.awaitConfirm(event, dc)
	return nil
}

func (c *RabbitMQClient) awaitConfirm(event core.PaymentEvent, dc *amqp.DeferredConfirmation) {
	defer c.confirms.Done()
	if dc == nil {
		return
	}

	log := c.log.With("payment_id", event.PaymentID, "event_type", event.EventType)
	timer := time.NewTimer(confirmTimeout)
	defer timer.Stop()

	select {
	case <-dc.Done():
		if dc.Acked() {
			log.Info("payment event confirmed", "delivery_tag", dc.DeliveryTag)
		} else {
			log.Error("payment event rejected by broker", "delivery_tag", dc.DeliveryTag)
		}
	case <-timer.C:
		log.Error("payment event confirmation timed out")
	}
}

// ConsumePaymentEvents starts consuming lifecycle events until ctx is done
func (c *RabbitMQClient) ConsumePaymentEvents(ctx context.Context, handler input.LifecycleEventHandler) error {
	err := c.channel.Qos(
		PrefetchCount,
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		QueueName,
		ConsumerTag,
		false, // auto-ack (we'll manually ack after processing)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("started consuming payment events", "queue", QueueName)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.log.Info("payment event consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.log.Warn("payment event delivery channel closed")
					return
				}
				c.handleDelivery(ctx, msg, handler)
			}
		}
	}()

	return nil
}

// handleDelivery settles exactly one delivery. Failures are dead-lettered
// rather than requeued so one bad event cannot block the queue.
func (c *RabbitMQClient) handleDelivery(ctx context.Context, msg amqp.Delivery, handler input.LifecycleEventHandler) {
	event, err := decodeEvent(msg.Body)
	if err != nil {
		c.log.Error("discarding undecodable payment event", "message_id", msg.MessageId, "err", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := handler.HandleEvent(ctx, event); err != nil {
		c.log.Error("payment event handling failed, dead-lettering",
			"payment_id", event.PaymentID, "event_type", event.EventType, "err", err)
		_ = msg.Nack(false, false)
		return
	}

	_ = msg.Ack(false)
}

// Close waits briefly for outstanding confirmations, then closes the connection
func (c *RabbitMQClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.confirms.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeTimeout):
		c.log.Warn("closing RabbitMQ with unconfirmed payment events")
	}

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
