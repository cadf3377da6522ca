package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
)

// StartEventConsumer connects to RabbitMQ, declares the vault.events
// queue and appends every event to logs/vault-events.log in a
// single-line, human-friendly format.  This is the boundary to the
// companion notification service: it tails the same log.  The function
// runs a reconnect loop with capped backoff and keeps running through
// processing errors, rejecting bad messages without requeueing so the
// server keeps operating.
func StartEventConsumer(amqpURL string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(amqpURL)
		if err != nil {
			log.Printf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeEvents(conn); err != nil {
			log.Printf("event-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeEvents(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("event-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(eventQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(eventQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := appendEventLog(d.Body); err != nil {
			log.Printf("event-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func appendEventLog(body []byte) error {
	var e lifecycle.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "vault-events.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	details := ""
	if len(e.Data) > 0 {
		b, err := json.Marshal(e.Data)
		if err == nil {
			details = " | " + string(b)
		}
	}
	at := time.UnixMilli(int64(e.At)).UTC().Format(time.RFC3339)
	line := fmt.Sprintf("[%s] %s | owner=%s%s\n", at, e.Type, e.Owner, details)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
