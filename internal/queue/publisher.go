// Package queue publishes vault domain events to RabbitMQ and runs the
// background consumer that relays them to the notification log.  Event
// delivery is best-effort by design: a broker outage must never fail or
// roll back the vault operation that produced the event.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
)

const eventQueueName = "vault.events"

// EventPublisher implements lifecycle.Publisher over RabbitMQ.
type EventPublisher struct {
	amqpURL string
}

// NewEventPublisher returns a publisher for the given broker URL.
func NewEventPublisher(amqpURL string) *EventPublisher {
	return &EventPublisher{amqpURL: amqpURL}
}

// Publish sends the event to the durable vault.events queue.  Failures
// are logged and swallowed.
func (p *EventPublisher) Publish(ctx context.Context, e lifecycle.Event) {
	if err := p.publish(ctx, e); err != nil {
		log.Printf("event-publisher: publish %s for %s failed: %v", e.Type, e.Owner, err)
	}
}

func (p *EventPublisher) publish(ctx context.Context, e lifecycle.Event) error {
	conn, err := amqp.Dial(p.amqpURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(
		eventQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",             // default exchange
		eventQueueName, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
