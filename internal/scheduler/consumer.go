package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Trigger is the lifecycle entry point a fired callback lands on.
type Trigger interface {
	Trigger(ctx context.Context, owner, handle string, carriedGas uint64) error
}

// StartTimerConsumer drains the fire queue and hands each expired
// callback to the trigger.  It runs a reconnect loop with capped
// backoff and never returns under normal operation; processing errors
// are logged and the offending delivery acked, because a redelivery
// storm here could double-fire a chain hop.  Stale deliveries (handle
// cancelled while parked) are dropped before the trigger is called.
func (s *Scheduler) StartTimerConsumer(trigger Trigger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(s.amqpURL)
		if err != nil {
			logf("failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := s.consumeLoop(conn, trigger); err != nil {
			logf("consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func (s *Scheduler) consumeLoop(conn *amqp.Connection, trigger Trigger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logf("set QoS failed: %v", err)
	}
	if err := declareTimerQueues(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(fireQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		s.handleDelivery(trigger, d.Body)
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (s *Scheduler) handleDelivery(trigger Trigger, body []byte) {
	var msg callbackMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logf("drop malformed delivery: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	live, err := s.Exists(ctx, msg.Handle)
	if err != nil {
		// Redis unreachable: fall through to the trigger, which
		// re-checks the handle against the persisted timer entry.
		logf("handle lookup failed for %s: %v", msg.Owner, err)
	} else if !live {
		logf("drop cancelled callback for %s", msg.Owner)
		return
	}

	if err := trigger.Trigger(ctx, msg.Owner, msg.Handle, msg.Gas); err != nil {
		logf("trigger failed for %s: %v", msg.Owner, err)
	}
}
