package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jdelaire/tgbot/core/api"
)

// ErrNoTarget is returned by Context helpers when the update carries no
// message, chat or query the helper can act on.
var ErrNoTarget = errors.New("update has no target for this action")

// Context is handed to a handler for one update.
type Context struct {
	Bot    *Bot
	Update *api.Update
	Logger *slog.Logger
}

// Transport returns the transport of the bot handling the update.
func (c *Context) Transport() api.Transport { return c.Bot.transport }

// ChatID returns the chat the update belongs to: the chat of a message
// update or of the message a callback query came from.
func (c *Context) ChatID() (int64, bool) {
	if m := c.Update.MessagePayload(); m != nil {
		return m.Chat.ID, true
	}
	if q := c.Update.CallbackQuery; q != nil && q.Message != nil {
		return q.Message.Chat.ID, true
	}
	return 0, false
}

// Reply sends text to the chat of the update.
func (c *Context) Reply(ctx context.Context, text string) (*api.Message, error) {
	chatID, ok := c.ChatID()
	if !ok {
		return nil, ErrNoTarget
	}
	return (&api.SendMessage{ChatID: api.ChatID(chatID), Text: text}).Execute(ctx, c.Transport())
}

// RemoveInlineKeyboard removes the inline keyboard of the message a
// callback query came from.
func (c *Context) RemoveInlineKeyboard(ctx context.Context) error {
	q := c.Update.CallbackQuery
	if q == nil {
		return ErrNoTarget
	}

	req := &api.EditMessageReplyMarkup{}
	switch {
	case q.Message != nil:
		req.MessageTarget = api.InChat(q.Message.Chat.ID, q.Message.ID)
	case q.InlineMessageID != nil:
		req.MessageTarget = api.Inline(*q.InlineMessageID)
	default:
		return ErrNoTarget
	}
	_, err := req.Execute(ctx, c.Transport())
	return err
}

// AnswerCallback acknowledges a callback query, showing text to the user
// when it is not empty.
func (c *Context) AnswerCallback(ctx context.Context, text string) error {
	q := c.Update.CallbackQuery
	if q == nil {
		return ErrNoTarget
	}
	req := &api.AnswerCallbackQuery{CallbackQueryID: q.ID}
	if text != "" {
		req.Text = &text
	}
	_, err := req.Execute(ctx, c.Transport())
	return err
}

// AnswerInlineQuery answers the inline query of the update with results.
func (c *Context) AnswerInlineQuery(ctx context.Context, results ...api.InlineQueryResultArticle) error {
	q := c.Update.InlineQuery
	if q == nil {
		return ErrNoTarget
	}
	_, err := (&api.AnswerInlineQuery{InlineQueryID: q.ID, Results: results}).Execute(ctx, c.Transport())
	return err
}

// NewResultID returns a random id for an inline query result.
func NewResultID() string { return uuid.NewString() }
