package amqp_forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelaire/tgbot/core/api"
	"github.com/jdelaire/tgbot/core/bot"
	"github.com/jdelaire/tgbot/core/schema"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type fakeChannel struct {
	out []published
	err error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{exchange, key, msg})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBot(t *testing.T) *bot.Bot {
	t.Helper()
	tr := api.TransportFunc(func(context.Context, string, schema.Object) (schema.Object, error) {
		return schema.Object{"ok": true, "result": true}, nil
	})
	b, err := bot.New(context.Background(), tr, testLogger(), bot.WithMe(&api.User{ID: 1, IsBot: true, FirstName: "b"}))
	require.NoError(t, err)
	return b
}

func TestForward_PublishesEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	f := New(ch, "telegram", "", testLogger())
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return at }

	u := &api.Update{ID: 77, Message: &api.Message{ID: 3, Date: 1, Chat: api.Chat{ID: -5, Type: api.ChatGroup}, Text: api.Ptr("hi")}}
	require.NoError(t, f.Forward(context.Background(), u))
	require.Len(t, ch.out, 1)

	p := ch.out[0]
	assert.Equal(t, "telegram", p.exchange)
	assert.Equal(t, "telegram.message", p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "77", p.msg.CorrelationId)
	assert.Equal(t, "message", p.msg.Type)
	assert.Equal(t, at, p.msg.Timestamp)

	var env Envelope
	require.NoError(t, json.Unmarshal(p.msg.Body, &env))
	assert.Equal(t, p.msg.MessageId, env.ID)
	assert.Equal(t, int64(77), env.UpdateID)
	require.NotNil(t, env.ChatID)
	assert.Equal(t, int64(-5), *env.ChatID)

	var back api.Update
	raw, err := json.Marshal(env.Update)
	require.NoError(t, err)
	require.NoError(t, schema.Unmarshal(raw, &back))
	assert.Equal(t, "hi", back.Message.Content())
}

func TestForward_PublishesUpdateAsReceived(t *testing.T) {
	obj, err := schema.ParseObject([]byte(`{"update_id":9,"message":{"message_id":1,"date":1,"chat":{"id":7,"type":"private"},` +
		`"document":{"file_id":"F","file_unique_id":"U","file_name":"report.pdf"},"caption":"c"}}`))
	require.NoError(t, err)
	u, err := api.DecodeUpdate(obj)
	require.NoError(t, err)

	ch := &fakeChannel{}
	require.NoError(t, New(ch, "telegram", "", testLogger()).Forward(context.Background(), u))
	require.Len(t, ch.out, 1)

	var env struct {
		Update struct {
			Message map[string]any `json:"message"`
		} `json:"update"`
	}
	require.NoError(t, json.Unmarshal(ch.out[0].msg.Body, &env))
	require.Contains(t, env.Update.Message, "document")
	assert.Equal(t, "report.pdf", env.Update.Message["document"].(map[string]any)["file_name"])
	assert.Equal(t, "c", env.Update.Message["caption"])
}

func TestForward_FixedRoutingKey(t *testing.T) {
	ch := &fakeChannel{}
	f := New(ch, "ex", "bot.updates", testLogger())

	require.NoError(t, f.Forward(context.Background(), &api.Update{ID: 1, InlineQuery: &api.InlineQuery{ID: "q"}}))
	assert.Equal(t, "bot.updates", ch.out[0].key)
	assert.Equal(t, "inline_query", ch.out[0].msg.Type)
}

func TestForward_PublishError(t *testing.T) {
	f := New(&fakeChannel{err: errors.New("channel closed")}, "ex", "", testLogger())

	err := f.Forward(context.Background(), &api.Update{ID: 9, CallbackQuery: &api.CallbackQuery{ID: "c"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish update 9")
}

func TestForwarder_AsBotHandler(t *testing.T) {
	ch := &fakeChannel{}
	f := New(ch, "ex", "", testLogger())
	b := newBot(t)

	var handled []int64
	next := bot.MessageHandlerFunc(func(_ context.Context, _ *bot.Context, m *api.Message) error {
		handled = append(handled, m.ID)
		return nil
	})
	require.NoError(t, b.Register(api.UpdateMessage, f.Wrap(next)))
	require.NoError(t, b.Register(api.UpdateCallbackQuery, f))
	require.NoError(t, b.Register(api.UpdateChosenInlineResult, f))

	updates := []api.Update{
		{ID: 1, Message: &api.Message{ID: 10, Chat: api.Chat{ID: 2, Type: api.ChatPrivate}}},
		{ID: 2, CallbackQuery: &api.CallbackQuery{ID: "c"}},
		{ID: 3, ChosenInlineResult: &api.ChosenInlineResult{ResultID: "r"}},
	}
	require.NoError(t, b.HandleUpdates(context.Background(), updates))

	assert.Equal(t, []int64{10}, handled)
	require.Len(t, ch.out, 3)
	assert.Equal(t, "telegram.callback_query", ch.out[1].key)
	assert.Equal(t, "telegram.chosen_inline_result", ch.out[2].key)
}

func TestWrap_CallsNextWhenForwardFails(t *testing.T) {
	f := New(&fakeChannel{err: errors.New("down")}, "ex", "", testLogger())
	b := newBot(t)

	called := false
	require.NoError(t, b.Register(api.UpdateMessage, f.Wrap(bot.MessageHandlerFunc(func(context.Context, *bot.Context, *api.Message) error {
		called = true
		return nil
	}))))

	err := b.HandleUpdate(context.Background(), &api.Update{ID: 1, Message: &api.Message{ID: 1, Chat: api.Chat{ID: 2, Type: api.ChatPrivate}}})
	assert.Error(t, err)
	assert.True(t, called)
}

func TestClose_WithoutConnection(t *testing.T) {
	assert.NoError(t, New(&fakeChannel{}, "ex", "", testLogger()).Close())
}
