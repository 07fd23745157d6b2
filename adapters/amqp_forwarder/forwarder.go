// Package amqp_forwarder publishes bot updates to a RabbitMQ exchange as
// JSON envelopes so other services can consume them.
package amqp_forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/jdelaire/tgbot/core/api"
	"github.com/jdelaire/tgbot/core/bot"
	"github.com/jdelaire/tgbot/core/schema"
)

// Channel is the part of *amqp091.Channel the forwarder publishes with.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Envelope is the body of a published message.
type Envelope struct {
	ID         string        `json:"id"`
	UpdateID   int64         `json:"update_id"`
	Type       string        `json:"type"`
	ChatID     *int64        `json:"chat_id,omitempty"`
	ReceivedAt time.Time     `json:"received_at"`
	Update     schema.Object `json:"update"`
}

// Forwarder publishes every update it handles. It implements all the bot
// handler capabilities.
type Forwarder struct {
	ch         Channel
	conn       *amqp091.Connection
	exchange   string
	routingKey string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Forwarder publishing on ch. An empty routingKey publishes
// each update under "telegram.<update type>".
func New(ch Channel, exchange, routingKey string, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
		now:        time.Now,
	}
}

// Dial connects to the broker, declares exchange as a durable topic
// exchange and returns a Forwarder publishing to it.
func Dial(url, exchange, routingKey string, logger *slog.Logger) (*Forwarder, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	f := New(ch, exchange, routingKey, logger)
	f.conn = conn
	return f, nil
}

// Close closes the broker connection opened by Dial.
func (f *Forwarder) Close() error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Close()
}

// Forward publishes u. Updates received from the API are published as
// received; updates built in code are encoded from their typed fields.
func (f *Forwarder) Forward(ctx context.Context, u *api.Update) error {
	obj := u.Raw()
	if obj == nil {
		var err error
		if obj, err = schema.Encode(u); err != nil {
			return fmt.Errorf("encode update %d: %w", u.ID, err)
		}
	}

	typ := string(u.Type())
	env := Envelope{
		ID:         uuid.NewString(),
		UpdateID:   u.ID,
		Type:       typ,
		ReceivedAt: f.now().UTC(),
		Update:     obj,
	}
	if m := u.MessagePayload(); m != nil {
		env.ChatID = &m.Chat.ID
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	key := f.routingKey
	if key == "" {
		key = "telegram." + typ
	}

	err = f.ch.PublishWithContext(ctx, f.exchange, key, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     env.ID,
		CorrelationId: strconv.FormatInt(u.ID, 10),
		Type:          typ,
		Timestamp:     env.ReceivedAt,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish update %d: %w", u.ID, err)
	}
	f.logger.Debug("update forwarded", "update_id", u.ID, "exchange", f.exchange, "key", key)
	return nil
}

// The handler methods forward the whole update, so a Forwarder can be
// registered for any update type.
func (f *Forwarder) HandleMessage(ctx context.Context, c *bot.Context, _ *api.Message) error {
	return f.Forward(ctx, c.Update)
}

func (f *Forwarder) HandleInlineQuery(ctx context.Context, c *bot.Context, _ *api.InlineQuery) error {
	return f.Forward(ctx, c.Update)
}

func (f *Forwarder) HandleChosenInlineResult(ctx context.Context, c *bot.Context, _ *api.ChosenInlineResult) error {
	return f.Forward(ctx, c.Update)
}

func (f *Forwarder) HandleCallbackQuery(ctx context.Context, c *bot.Context, _ *api.CallbackQuery) error {
	return f.Forward(ctx, c.Update)
}

// Wrap returns a message handler that forwards each message and then
// passes it to next, even when forwarding failed.
func (f *Forwarder) Wrap(next bot.MessageHandler) bot.MessageHandler {
	return bot.MessageHandlerFunc(func(ctx context.Context, c *bot.Context, m *api.Message) error {
		fwdErr := f.Forward(ctx, c.Update)
		return errors.Join(fwdErr, next.HandleMessage(ctx, c, m))
	})
}
