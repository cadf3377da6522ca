// Package scheduler implements the bounded-span deferred-callback
// primitive on RabbitMQ and Redis.  Register publishes a message with a
// per-message TTL onto a wait queue whose dead-letter target is the fire
// queue: when the TTL lapses the broker moves the message over, and the
// consumer in this package hands it to the vault trigger.  A Redis token
// per handle implements cancel/exists; a delivery whose token is gone
// was cancelled while parked and is dropped.
package scheduler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/legacy-vault/internal/fee"
)

const (
	waitQueueName = "vault.timer.wait"
	fireQueueName = "vault.timer.fire"

	handleKeyPrefix = "timer:handle:"
	// Tokens outlive the delay by this much so a briefly backlogged
	// broker does not make live deliveries look cancelled.
	handleGrace = time.Hour
)

// ErrSpanExceeded is returned when a registration asks for a delay
// beyond the hard per-callback ceiling.  Longer waits are reached by
// chaining, never by a single registration.
var ErrSpanExceeded = errors.New("delay exceeds max callback span")

// callbackMessage is the payload parked on the wait queue.
type callbackMessage struct {
	Owner  string `json:"owner"`
	Handle string `json:"handle"`
	Gas    uint64 `json:"gas"`
}

// Scheduler satisfies the timer chain's scheduling contract.
type Scheduler struct {
	amqpURL string
	rdb     *redis.Client
}

// New returns a Scheduler publishing to the given broker and tracking
// handles in Redis.
func New(amqpURL string, rdb *redis.Client) *Scheduler {
	return &Scheduler{amqpURL: amqpURL, rdb: rdb}
}

// Register parks a callback for the owner that fires after delayMs,
// carrying gas forward to the next hop.  Returns the opaque handle used
// for cancellation and staleness checks.
func (s *Scheduler) Register(ctx context.Context, owner string, delayMs, gas uint64) (string, error) {
	if delayMs > fee.MaxCallbackSpanMs {
		return "", ErrSpanExceeded
	}

	handle, err := newHandle()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(callbackMessage{Owner: owner, Handle: handle, Gas: gas})
	if err != nil {
		return "", fmt.Errorf("marshal callback: %w", err)
	}

	conn, err := amqp.Dial(s.amqpURL)
	if err != nil {
		return "", fmt.Errorf("scheduler: dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return "", fmt.Errorf("scheduler: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareTimerQueues(ch); err != nil {
		return "", err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Timestamp:    time.Now().UTC(),
		Expiration:   strconv.FormatUint(delayMs, 10),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",            // default exchange
		waitQueueName, // routing key = queue name
		false,         // mandatory
		false,         // immediate
		pub,
	); err != nil {
		return "", fmt.Errorf("scheduler: publish: %w", err)
	}

	ttl := time.Duration(delayMs)*time.Millisecond + handleGrace
	if err := s.rdb.Set(ctx, handleKeyPrefix+handle, owner, ttl).Err(); err != nil {
		return "", fmt.Errorf("scheduler: store handle: %w", err)
	}
	return handle, nil
}

// Cancel invalidates a handle.  The parked message cannot be pulled
// back out of the broker; the consumer drops it when it surfaces and
// finds the token gone.  Cancelling an unknown handle is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, handle string) error {
	return s.rdb.Del(ctx, handleKeyPrefix+handle).Err()
}

// Exists reports whether the handle is still live.
func (s *Scheduler) Exists(ctx context.Context, handle string) (bool, error) {
	n, err := s.rdb.Exists(ctx, handleKeyPrefix+handle).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// declareTimerQueues sets up the wait queue with its dead-letter route
// into the fire queue.  Idempotent; both publisher and consumer call it.
func declareTimerQueues(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(
		fireQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("scheduler: declare fire queue: %w", err)
	}
	if _, err := ch.QueueDeclare(
		waitQueueName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": fireQueueName,
		},
	); err != nil {
		return fmt.Errorf("scheduler: declare wait queue: %w", err)
	}
	return nil
}

func newHandle() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("scheduler: generate handle: %w", err)
	}
	return "cb_" + hex.EncodeToString(b[:]), nil
}

func logf(format string, args ...any) {
	log.Printf("timer-scheduler: "+format, args...)
}
