package mailqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Sender delivers an invitation email. *email.Client satisfies it.
type Sender interface {
	SendInvitation(ctx context.Context, to, inviterName, householdName, token string) error
}

// Client owns one AMQP connection with a durable direct exchange and a
// queue bound under the queue's own name.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *slog.Logger
	now          func() time.Time
}

func Dial(url, exchangeName, queueName string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
		now:          time.Now,
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	// One unacknowledged message at a time per worker.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// SendInvitation queues the email for the mail worker. It satisfies the
// invitation service's Mailer port.
func (c *Client) SendInvitation(ctx context.Context, to, inviterName, householdName, token string) error {
	msg := InvitationMail{
		To:            to,
		InviterName:   inviterName,
		HouseholdName: householdName,
		Token:         token,
		QueuedAt:      c.now().UTC(),
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    msg.QueuedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	c.logger.Debug("queued invitation mail", "queue", c.queueName)
	return nil
}

// Consume delivers queued invitation mail through sender until ctx is done.
func (c *Client) Consume(ctx context.Context, sender Sender) error {
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.Info("consuming invitation mail", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopping consumer", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handleDelivery(ctx, d, sender, c.logger)
		}
	}
}

// handleDelivery acks delivered mail, drops malformed messages and requeues
// a failed send once. A redelivered message that fails again is dropped.
func handleDelivery(ctx context.Context, d amqp091.Delivery, sender Sender, logger *slog.Logger) {
	msg, err := InvitationMailFromJSON(d.Body)
	if err != nil {
		logger.Error("drop malformed invitation mail", "error", err)
		d.Nack(false, false)
		return
	}

	if err := sender.SendInvitation(ctx, msg.To, msg.InviterName, msg.HouseholdName, msg.Token); err != nil {
		logger.Error("deliver invitation mail", "error", err, "redelivered", d.Redelivered)
		d.Nack(false, !d.Redelivered)
		return
	}
	d.Ack(false)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
