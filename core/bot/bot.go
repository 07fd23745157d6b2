// Package bot runs the update loop: it long-polls getUpdates, keeps the
// delivery cursor and the chat roster, and dispatches each update to the
// handler registered for its type.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jdelaire/tgbot/core/api"
)

const (
	DefaultPollInterval  = time.Second
	DefaultErrorCooldown = 60 * time.Second
	DefaultPollTimeout   = 30
)

// FailureMode selects what Run does when a cycle fails.
type FailureMode int

const (
	// Propagate stops the loop and returns the failure.
	Propagate FailureMode = iota
	// Suppress logs the failure and resumes after the error cooldown.
	Suppress
)

func (m FailureMode) String() string {
	switch m {
	case Propagate:
		return "propagate"
	case Suppress:
		return "suppress"
	}
	return fmt.Sprintf("FailureMode(%d)", int(m))
}

// ParseFailureMode parses "propagate" or "suppress".
func ParseFailureMode(s string) (FailureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "propagate":
		return Propagate, nil
	case "suppress":
		return Suppress, nil
	}
	return 0, fmt.Errorf("unknown failure mode %q", s)
}

// Bot owns one update loop. Handlers must be registered before Run.
type Bot struct {
	transport api.Transport
	logger    *slog.Logger
	me        *api.User

	cursor atomic.Int64
	roster *Roster

	mu       sync.RWMutex
	handlers map[api.UpdateType]any

	mode          FailureMode
	pollInterval  time.Duration
	errorCooldown time.Duration
	pollTimeout   int
	sleep         func(ctx context.Context, d time.Duration) error
}

// Option configures a Bot.
type Option func(*Bot)

// WithOffset sets the starting cursor.
func WithOffset(offset int64) Option {
	return func(b *Bot) { b.cursor.Store(offset) }
}

// WithFailureMode sets what Run does when a handler fails.
func WithFailureMode(m FailureMode) Option {
	return func(b *Bot) { b.mode = m }
}

// WithPollInterval sets the pause between two successful cycles.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bot) { b.pollInterval = d }
}

// WithErrorCooldown sets the pause after a suppressed failure.
func WithErrorCooldown(d time.Duration) Option {
	return func(b *Bot) { b.errorCooldown = d }
}

// WithPollTimeout sets the long-poll timeout in seconds sent with
// getUpdates. Zero means short polling.
func WithPollTimeout(seconds int) Option {
	return func(b *Bot) { b.pollTimeout = seconds }
}

// WithMe sets the bot identity and skips the getMe call in New.
func WithMe(me *api.User) Option {
	return func(b *Bot) { b.me = me }
}

// New creates a Bot calling the API through t. Unless WithMe is given it
// calls getMe to learn the bot's identity.
func New(ctx context.Context, t api.Transport, logger *slog.Logger, opts ...Option) (*Bot, error) {
	b := &Bot{
		transport:     t,
		logger:        logger,
		roster:        NewRoster(),
		handlers:      make(map[api.UpdateType]any),
		mode:          Propagate,
		pollInterval:  DefaultPollInterval,
		errorCooldown: DefaultErrorCooldown,
		pollTimeout:   DefaultPollTimeout,
		sleep:         sleepCtx,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.me == nil {
		me, err := (&api.GetMe{}).Execute(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("get me: %w", err)
		}
		b.me = me
	}
	logger.Info("bot identified", "id", b.me.ID, "name", b.me.Name())
	return b, nil
}

// Me returns the bot's own user.
func (b *Bot) Me() *api.User { return b.me }

// Username returns the bot's username without the leading @.
func (b *Bot) Username() string {
	if b.me.Username == nil {
		return ""
	}
	return *b.me.Username
}

// Transport returns the transport the bot calls the API through.
func (b *Bot) Transport() api.Transport { return b.transport }

// Offset returns the next update id the loop will request.
func (b *Bot) Offset() int64 { return b.cursor.Load() }

// Chats returns the chats the bot has seen, ordered by id.
func (b *Bot) Chats() []api.Chat { return b.roster.List() }

// Chat looks up a chat in the roster.
func (b *Bot) Chat(id int64) (api.Chat, bool) { return b.roster.Get(id) }

// Run polls until ctx is cancelled or, in Propagate mode, a cycle fails.
// Cancellation is not a failure: Run returns nil.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("update loop started", "offset", b.Offset(), "failure_mode", b.mode.String())
	for {
		if ctx.Err() != nil {
			b.logger.Info("update loop stopped", "offset", b.Offset())
			return nil
		}

		if err := b.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				b.logger.Info("update loop stopped", "offset", b.Offset())
				return nil
			}
			if b.mode == Propagate {
				return err
			}
			b.logger.Error("update cycle failed", "error", err, "cooldown", b.errorCooldown)
			_ = b.sleep(ctx, b.errorCooldown)
			continue
		}

		// The loop head notices a cancelled sleep.
		_ = b.sleep(ctx, b.pollInterval)
	}
}

// Poll runs one cycle: fetch the updates after the cursor and handle them.
func (b *Bot) Poll(ctx context.Context) error {
	req := &api.GetUpdates{Offset: b.Offset()}
	if b.pollTimeout > 0 {
		req.Timeout = api.Ptr(b.pollTimeout)
	}
	updates, err := req.Execute(ctx, b.transport)
	if err != nil {
		return fmt.Errorf("get updates: %w", err)
	}
	return b.HandleUpdates(ctx, updates)
}

// HandleUpdates handles a batch in order. A failing update does not stop
// the rest of the batch; the failures are joined in the returned error.
func (b *Bot) HandleUpdates(ctx context.Context, updates []api.Update) error {
	var errs []error
	for i := range updates {
		if err := b.HandleUpdate(ctx, &updates[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandleUpdate advances the cursor past u, updates the roster for message
// updates and calls the registered handler, if any. The cursor moves before
// the handler runs, so an update is delivered at most once.
func (b *Bot) HandleUpdate(ctx context.Context, u *api.Update) error {
	b.advance(u.ID)

	typ := u.Type()
	if typ.IsMessageFamily() {
		b.track(u.MessagePayload())
	}

	h := b.handler(typ)
	if h == nil {
		b.logger.Debug("no handler for update", "update_id", u.ID, "type", string(typ))
		return nil
	}

	c := &Context{
		Bot:    b,
		Update: u,
		Logger: b.logger.With("update_id", u.ID, "type", string(typ)),
	}
	if err := dispatch(ctx, c, h); err != nil {
		return fmt.Errorf("handle update %d (%s): %w", u.ID, typ, err)
	}
	return nil
}

func (b *Bot) advance(id int64) {
	if next := id + 1; next > b.cursor.Load() {
		b.cursor.Store(next)
	}
}

// track keeps the roster in step with a message: the chat is dropped when
// the bot itself left it and added when first seen.
func (b *Bot) track(m *api.Message) {
	if m.LeftChatMember != nil && m.LeftChatMember.ID == b.me.ID {
		if b.roster.Remove(m.Chat.ID) {
			b.logger.Info("left chat", "chat_id", m.Chat.ID)
		}
		return
	}
	if b.roster.Add(m.Chat) {
		b.logger.Info("new chat", "chat_id", m.Chat.ID, "chat_type", m.Chat.Type)
	}
}

func (b *Bot) handler(t api.UpdateType) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handlers[t]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
