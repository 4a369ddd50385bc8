package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures        = 5
	openTimeout        = 30 * time.Second
	maxBackoff         = 30 * time.Second
	maxPublishAttempts = 3
	maxDialAttempts    = 5
	publishTimeout     = 5 * time.Second

	// DirectReplyTo is RabbitMQ's pseudo-queue for request/reply without a
	// dedicated reply queue.
	DirectReplyTo = "amq.rabbitmq.reply-to"
)

var (
	ErrCircuitOpen    = errors.New("circuit breaker is open")
	ErrChannelClosed  = errors.New("message channel closed")
	ErrMissingReplyTo = errors.New("delivery has no reply_to")
)

// ReportHandler computes the response for one request. A returned error
// means the request could not be processed now and should be retried.
type ReportHandler func(ctx context.Context, req *ReportRequest) (*ReportResponse, error)

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

// NewClient connects to the broker, retrying with backoff while the broker
// refuses connections, and declares the report exchange and queue.
func NewClient(ctx context.Context, url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	var err error
	for attempt := 0; attempt < maxDialAttempts; attempt++ {
		if attempt > 0 {
			wait := exponentialBackoff(attempt - 1)
			slog.WarnContext(ctx, "AMQP connect failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if err = client.connect(); err == nil {
			return client, nil
		}
		if !isConnectionError(err) {
			break
		}
	}
	return nil, err
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	if err := c.setup(channel); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) reconnect() error {
	c.Close()
	return c.connect()
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on the direct exchange
	if err := ch.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishRequest sends req to the report queue. Replies go to replyTo.
func (c *Client) PublishRequest(ctx context.Context, req *ReportRequest, replyTo string) error {
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.publish(ctx, c.exchangeName, c.queueName, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: req.ID,
		ReplyTo:       replyTo,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

// PublishReply sends resp to the queue named by replyTo on the default exchange.
func (c *Client) PublishReply(ctx context.Context, replyTo, correlationID string, resp *ReportResponse) error {
	body, err := resp.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return c.publish(ctx, "", replyTo, amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

func (c *Client) publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %q: %w", routingKey, ErrCircuitOpen)
	}

	var lastErr error
	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
			if err := c.reconnect(); err != nil {
				lastErr = err
				c.recordFailure()
				continue
			}
		}

		ch := c.currentChannel()
		if ch == nil {
			lastErr = errors.New("connection closed")
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := ch.PublishWithContext(pubCtx, exchange, routingKey, false, false, msg)
		cancel()
		if err == nil {
			c.recordSuccess()
			slog.DebugContext(ctx, "Published message",
				"exchange", exchange,
				"routing_key", routingKey,
				"correlation_id", msg.CorrelationId)
			return nil
		}

		lastErr = err
		c.recordFailure()
		if !isConnectionError(err) {
			break
		}
	}
	return fmt.Errorf("publish message: %w", lastErr)
}

// ConsumeReports handles report requests until ctx ends or the channel
// closes. Undecodable requests and requests without reply_to are dropped;
// handler errors and failed replies are requeued.
func (c *Client) ConsumeReports(ctx context.Context, handler ReportHandler) error {
	ch := c.currentChannel()
	if ch == nil {
		return ErrChannelClosed
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming report requests", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler ReportHandler) {
	req, err := ReportRequestFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal report request", "error", err)
		delivery.Nack(false, false) // reject and don't requeue
		return
	}
	if delivery.ReplyTo == "" {
		slog.ErrorContext(ctx, "Dropping report request", "id", req.ID, "error", ErrMissingReplyTo)
		delivery.Nack(false, false)
		return
	}

	correlationID := delivery.CorrelationId
	if correlationID == "" {
		correlationID = req.ID
	}

	resp, err := handler(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to handle report request", "id", req.ID, "error", err)
		delivery.Nack(false, true) // reject and requeue
		return
	}

	if err := c.PublishReply(ctx, delivery.ReplyTo, correlationID, resp); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report reply",
			"id", req.ID,
			"reply_to", delivery.ReplyTo,
			"error", err)
		delivery.Nack(false, true)
		return
	}

	delivery.Ack(false)
	slog.InfoContext(ctx, "Replied to report request", "id", req.ID, "reply_to", delivery.ReplyTo)
}

// Request publishes req and waits for its reply on the direct reply-to
// pseudo-queue.
func (c *Client) Request(ctx context.Context, req *ReportRequest) (*ReportResponse, error) {
	ch := c.currentChannel()
	if ch == nil {
		return nil, ErrChannelClosed
	}

	// must consume before publishing with DirectReplyTo
	replies, err := ch.Consume(DirectReplyTo, "", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume replies: %w", err)
	}
	if err := c.PublishRequest(ctx, req, DirectReplyTo); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-replies:
			if !ok {
				return nil, ErrChannelClosed
			}
			if d.CorrelationId != req.ID {
				continue
			}
			resp, err := ReportResponseFromJSON(d.Body)
			if err != nil {
				return nil, fmt.Errorf("decode reply: %w", err)
			}
			return resp, nil
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	failures := atomic.AddInt64(&c.failureCount, 1)
	// one failed probe while half-open reopens the circuit
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			slog.Warn("AMQP circuit breaker opened", "failures", failures)
		}
	}
}

// exponentialBackoff returns 1s doubled per attempt, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
