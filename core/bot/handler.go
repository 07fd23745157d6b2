package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdelaire/tgbot/core/api"
)

var (
	// ErrHandlerMismatch is returned by Register when a handler does not
	// implement the capability of the update type it is registered for.
	ErrHandlerMismatch   = errors.New("handler does not match update type")
	ErrUnknownUpdateType = errors.New("unknown update type")
)

// MessageHandler handles messages, edited messages, channel posts and
// edited channel posts.
type MessageHandler interface {
	HandleMessage(ctx context.Context, c *Context, m *api.Message) error
}

// InlineQueryHandler handles inline_query updates.
type InlineQueryHandler interface {
	HandleInlineQuery(ctx context.Context, c *Context, q *api.InlineQuery) error
}

// ChosenInlineResultHandler handles chosen_inline_result updates.
type ChosenInlineResultHandler interface {
	HandleChosenInlineResult(ctx context.Context, c *Context, r *api.ChosenInlineResult) error
}

// CallbackQueryHandler handles callback_query updates.
type CallbackQueryHandler interface {
	HandleCallbackQuery(ctx context.Context, c *Context, q *api.CallbackQuery) error
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, c *Context, m *api.Message) error

func (f MessageHandlerFunc) HandleMessage(ctx context.Context, c *Context, m *api.Message) error {
	return f(ctx, c, m)
}

// InlineQueryHandlerFunc adapts a function to InlineQueryHandler.
type InlineQueryHandlerFunc func(ctx context.Context, c *Context, q *api.InlineQuery) error

func (f InlineQueryHandlerFunc) HandleInlineQuery(ctx context.Context, c *Context, q *api.InlineQuery) error {
	return f(ctx, c, q)
}

// ChosenInlineResultHandlerFunc adapts a function to ChosenInlineResultHandler.
type ChosenInlineResultHandlerFunc func(ctx context.Context, c *Context, r *api.ChosenInlineResult) error

func (f ChosenInlineResultHandlerFunc) HandleChosenInlineResult(ctx context.Context, c *Context, r *api.ChosenInlineResult) error {
	return f(ctx, c, r)
}

// CallbackQueryHandlerFunc adapts a function to CallbackQueryHandler.
type CallbackQueryHandlerFunc func(ctx context.Context, c *Context, q *api.CallbackQuery) error

func (f CallbackQueryHandlerFunc) HandleCallbackQuery(ctx context.Context, c *Context, q *api.CallbackQuery) error {
	return f(ctx, c, q)
}

// Register sets the handler for updates of type t, replacing any previous
// one. h must implement the capability matching t.
func (b *Bot) Register(t api.UpdateType, h any) error {
	if !t.Valid() {
		return fmt.Errorf("register %q: %w", t, ErrUnknownUpdateType)
	}
	if h == nil || !conforms(t, h) {
		return fmt.Errorf("register %s: %w: %T", t, ErrHandlerMismatch, h)
	}

	b.mu.Lock()
	b.handlers[t] = h
	b.mu.Unlock()

	b.logger.Debug("handler registered", "type", string(t), "handler", fmt.Sprintf("%T", h))
	return nil
}

// HandleMessages registers h for every message update type.
func (b *Bot) HandleMessages(h MessageHandler) error {
	for _, t := range api.UpdateTypes {
		if !t.IsMessageFamily() {
			continue
		}
		if err := b.Register(t, h); err != nil {
			return err
		}
	}
	return nil
}

func conforms(t api.UpdateType, h any) bool {
	var ok bool
	switch {
	case t.IsMessageFamily():
		_, ok = h.(MessageHandler)
	case t == api.UpdateInlineQuery:
		_, ok = h.(InlineQueryHandler)
	case t == api.UpdateChosenInlineResult:
		_, ok = h.(ChosenInlineResultHandler)
	case t == api.UpdateCallbackQuery:
		_, ok = h.(CallbackQueryHandler)
	}
	return ok
}

func dispatch(ctx context.Context, c *Context, h any) error {
	u := c.Update
	switch typ := u.Type(); {
	case typ.IsMessageFamily():
		return h.(MessageHandler).HandleMessage(ctx, c, u.MessagePayload())
	case typ == api.UpdateInlineQuery:
		return h.(InlineQueryHandler).HandleInlineQuery(ctx, c, u.InlineQuery)
	case typ == api.UpdateChosenInlineResult:
		return h.(ChosenInlineResultHandler).HandleChosenInlineResult(ctx, c, u.ChosenInlineResult)
	case typ == api.UpdateCallbackQuery:
		return h.(CallbackQueryHandler).HandleCallbackQuery(ctx, c, u.CallbackQuery)
	}
	return nil
}
