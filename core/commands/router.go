package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jdelaire/tgbot/core/api"
	"github.com/jdelaire/tgbot/core/bot"
	"github.com/jdelaire/tgbot/core/policy"
	"github.com/jdelaire/tgbot/core/ratelimit"
)

const defaultTimeout = 30 * time.Second

// Router is a bot.MessageHandler that authorizes command messages, runs
// the matching Command and replies in the same chat.
type Router struct {
	commands *Registry
	policy   *policy.Policy
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	timeout  time.Duration
}

// NewRouter returns a router that runs commands from reg for chats pol
// accepts.
func NewRouter(reg *Registry, pol *policy.Policy, logger *slog.Logger) *Router {
	return &Router{
		commands: reg,
		policy:   pol,
		logger:   logger,
		timeout:  defaultTimeout,
	}
}

// WithTimeout bounds the run time of a single command.
func (r *Router) WithTimeout(d time.Duration) *Router {
	r.timeout = d
	return r
}

// WithLimiter locks out chats whose commands keep failing. Unknown
// commands and command errors count as failures.
func (r *Router) WithLimiter(l *ratelimit.Limiter) *Router {
	r.limiter = l
	return r
}

// HandleMessage implements bot.MessageHandler. Only new messages run
// commands: edits and channel posts are ignored, as are messages that are
// not commands or are addressed to another bot. Only a failed reply is
// returned as an error.
func (r *Router) HandleMessage(ctx context.Context, c *bot.Context, m *api.Message) error {
	if c.Update.Type() != api.UpdateMessage || m.Text == nil {
		return nil
	}
	name, target, args := parseCommand(*m.Text)
	if name == "" {
		return nil
	}
	if target != "" && !strings.EqualFold(target, c.Bot.Username()) {
		return nil
	}

	if err := r.policy.Authorize(m.Chat.ID, c.Update.ID, m.Time()); err != nil {
		r.logger.Debug("command rejected by policy", "chat_id", m.Chat.ID, "command", name, "error", err)
		return nil
	}

	if r.limiter != nil {
		if err := r.limiter.Check(m.Chat.ID); err != nil {
			r.logger.Debug("command rejected by limiter", "chat_id", m.Chat.ID, "command", name, "error", err)
			return nil
		}
	}

	cmd := r.commands.Get(name)
	if cmd == nil {
		return r.fail(ctx, c, m, fmt.Sprintf("Unknown command: /%s\nSend /help for available commands.", name))
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := cmd.Execute(runCtx, c, args)
	if err != nil {
		r.logger.Error("command failed", "command", name, "chat_id", m.Chat.ID, "error", err)
		return r.fail(ctx, c, m, fmt.Sprintf("Error running /%s: %s", name, err))
	}
	if r.limiter != nil {
		r.limiter.Reset(m.Chat.ID)
	}
	if result == "" {
		return nil
	}
	return r.reply(ctx, c, m, result)
}

// fail replies text and counts a failure for the chat.
func (r *Router) fail(ctx context.Context, c *bot.Context, m *api.Message, text string) error {
	if r.limiter != nil && r.limiter.RecordFailure(m.Chat.ID) {
		r.logger.Warn("chat locked out after repeated command failures", "chat_id", m.Chat.ID)
		text += "\nToo many failed commands, ignoring this chat for a while."
	}
	return r.reply(ctx, c, m, text)
}

func (r *Router) reply(ctx context.Context, c *bot.Context, m *api.Message, text string) error {
	req := &api.SendMessage{
		ChatID:           api.ChatID(m.Chat.ID),
		Text:             text,
		ReplyToMessageID: api.Ptr(m.ID),
	}
	if _, err := req.Execute(ctx, c.Transport()); err != nil {
		return fmt.Errorf("reply to chat %d: %w", m.Chat.ID, err)
	}
	return nil
}

// parseCommand splits "/command@bot args" into its parts. It returns an
// empty name when text is not a command.
func parseCommand(text string) (name, target, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", ""
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	args = strings.TrimSpace(rest)
	if i := strings.IndexAny(head, "\n\t"); i != -1 {
		args = strings.TrimSpace(head[i:] + " " + rest)
		head = head[:i]
	}

	name, target, _ = strings.Cut(head, "@")
	return strings.ToLower(name), target, args
}
