// Package messaging wraps the AMQP broker: durable queues declared
// idempotently at connect time, persistent fire-and-forget publishing,
// and explicit consumer loops with at-least-once delivery.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/driftlabs/driftbox/internal/common"
	"github.com/driftlabs/driftbox/internal/logging"
)

// Durable queues carrying the domain events.
const (
	QueueFileUploaded = "file.uploaded"
	QueueFileSynced   = "file.synced"
	QueueFileShared   = "file.shared"
)

// Queues lists every queue declared at connect time. Redeclaration is a
// no-op, so all services can declare the full set.
var Queues = []string{QueueFileUploaded, QueueFileSynced, QueueFileShared}

// Handler processes one delivery. A nil return acknowledges the message;
// an error negatively acknowledges it without requeue, dropping it. A
// permanently failing handler therefore cannot stall the queue.
type Handler func(ctx context.Context, body []byte) error

// Publisher is the narrow interface services use to emit domain events.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

type consumerReg struct {
	queue   string
	handler Handler
}

// Client holds the broker connection and channel explicitly. It owns
// reconnect-and-resubscribe: queue declarations and consumer
// registrations do not survive a connection replacement on their own,
// so the client replays them after every reconnect.
type Client struct {
	url      string
	log      logging.Logger
	attempts int
	delay    time.Duration

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	consumers []consumerReg
	closed    bool
}

// Dial connects with bounded retries and a fixed delay between attempts,
// declaring all queues once connected. Exhausting the attempts returns
// the last error; callers treat that as fatal at startup.
func Dial(ctx context.Context, url string, attempts int, delay time.Duration, log logging.Logger) (*Client, error) {
	c := &Client{
		url:      url,
		log:      log,
		attempts: attempts,
		delay:    delay,
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = c.connect(ctx); lastErr == nil {
			return c, nil
		}
		log.Warn(ctx, "broker connect failed", "attempt", i+1, "attempts", attempts, "error", lastErr.Error())
		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("broker unreachable after %d attempts: %w", attempts, lastErr)
}

// connect establishes a fresh connection and channel, declares the
// queues, and arms the close watcher.
func (c *Client) connect(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			conn.Close()
			return fmt.Errorf("declare queue %q: %w", q, err)
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	consumers := make([]consumerReg, len(c.consumers))
	copy(consumers, c.consumers)
	c.mu.Unlock()

	// Active consumer registrations are not durable across a connection
	// replacement; re-arm them on the new channel.
	for _, reg := range consumers {
		if err := c.startConsumer(ch, reg); err != nil {
			conn.Close()
			return err
		}
	}

	go c.watch(conn)
	return nil
}

// watch blocks until the connection dies, then runs the bounded
// reconnect loop. Exhausting the retries leaves the client down; every
// subsequent Publish fails with a transient error.
func (c *Client) watch(conn *amqp.Connection) {
	closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))

	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.ch = nil
	c.mu.Unlock()

	ctx := context.Background()
	if closeErr != nil {
		c.log.Warn(ctx, "broker connection lost, reconnecting", "error", closeErr.Error())
	}

	for i := 0; i < c.attempts; i++ {
		time.Sleep(c.delay)
		if err := c.connect(ctx); err != nil {
			c.log.Warn(ctx, "broker reconnect failed", "attempt", i+1, "attempts", c.attempts, "error", err.Error())
			continue
		}
		c.log.Info(ctx, "broker reconnected")
		return
	}
	c.log.Error(ctx, "broker reconnect attempts exhausted")
}

// Publish persists the payload at the broker and returns without waiting
// for any consumer.
func (c *Client) Publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("broker not connected: %w", common.ErrTransient)
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w: %w", queue, common.ErrTransient, err)
	}
	return nil
}

// Consume registers a handler for a queue. The registration survives
// reconnects. Delivery is at least once; handlers must tolerate
// duplicates.
func (c *Client) Consume(queue string, handler Handler) error {
	reg := consumerReg{queue: queue, handler: handler}

	c.mu.Lock()
	c.consumers = append(c.consumers, reg)
	ch := c.ch
	c.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("broker not connected: %w", common.ErrTransient)
	}
	return c.startConsumer(ch, reg)
}

// startConsumer arms one consumer on the given channel and drains its
// deliveries in a dedicated goroutine. Ack and nack are decided by the
// handler's explicit result.
func (c *Client) startConsumer(ch *amqp.Channel, reg consumerReg) error {
	deliveries, err := ch.Consume(reg.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", reg.queue, err)
	}

	go func() {
		ctx := context.Background()
		for d := range deliveries {
			if err := reg.handler(ctx, d.Body); err != nil {
				c.log.Error(ctx, "message handler failed, dropping message",
					"queue", reg.queue, "error", err.Error())
				// requeue=false: a poison message must not block the queue.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}()
	return nil
}

// Close shuts the connection down deliberately, without reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
