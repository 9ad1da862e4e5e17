package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"backoffice/internal/shared/telemetry"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	QueueInspect(name string) (amqp.Queue, error)
}

// RabbitMQ backs the queue with a durable RabbitMQ queue on the default exchange.
type RabbitMQ struct {
	conn  *amqp.Connection
	ch    amqpChannel
	queue string
}

// NewRabbitMQ dials url and declares the durable queue.
func NewRabbitMQ(url, queueName string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return &RabbitMQ{conn: conn, ch: ch, queue: queueName}, nil
}

// Push publishes a persistent message routed straight to the queue.
func (r *RabbitMQ) Push(ctx context.Context, ref string) error {
	payload, err := EncodeMessage(NewMessage(ref))
	if err != nil {
		return fmt.Errorf("encode amqp message: %w", err)
	}
	err = r.ch.PublishWithContext(ctx,
		"",      // default exchange
		r.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         payload,
		})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Pop fetches one message with basic.get and auto-ack.
func (r *RabbitMQ) Pop(ctx context.Context) (string, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		d, ok, err := r.ch.Get(r.queue, true)
		if err != nil {
			return "", false, fmt.Errorf("amqp get: %w", err)
		}
		if !ok {
			return "", false, nil
		}
		ref, meta, err := ParseMessage(string(d.Body))
		if err != nil {
			telemetry.Warn("queue.message_dropped", map[string]any{
				"backend":  r.Name(),
				"body_len": meta.BodyLen,
				"body_sha": meta.BodySHA,
				"err":      err,
			})
			continue
		}
		return ref, true, nil
	}
}

// Ping checks the connection is open and the queue exists.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if r.conn != nil && r.conn.IsClosed() {
		return fmt.Errorf("amqp connection closed")
	}
	if _, err := r.ch.QueueInspect(r.queue); err != nil {
		return fmt.Errorf("amqp inspect %s: %w", r.queue, err)
	}
	return nil
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() error {
	if c, ok := r.ch.(*amqp.Channel); ok {
		_ = c.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQ) Name() string { return "rabbitmq" }

var (
	_ Queue  = (*RabbitMQ)(nil)
	_ Pinger = (*RabbitMQ)(nil)
	_ Closer = (*RabbitMQ)(nil)
)
