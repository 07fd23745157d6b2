package commands

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/jdelaire/tgbot/core/bot"
)

// Help lists the registered commands. It also answers /start, which
// Telegram clients send when a user first opens the chat.
type Help struct {
	Registry *Registry
}

func (h *Help) Name() string        { return "help" }
func (h *Help) Description() string { return "List available commands" }
func (h *Help) Aliases() []string   { return []string{"start"} }

func (h *Help) Execute(_ context.Context, _ *bot.Context, _ string) (string, error) {
	all := h.Registry.List()
	if len(all) == 0 {
		return "No commands available.", nil
	}

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range all {
		fmt.Fprintf(&b, "  /%s - %s", strings.ToLower(cmd.Name()), cmd.Description())
		if aliases := Aliases(cmd); len(aliases) > 0 {
			fmt.Fprintf(&b, " (also /%s)", strings.Join(aliases, ", /"))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Status reports uptime, update cursor and the number of known chats.
type Status struct {
	Started time.Time
	now     func() time.Time
}

// NewStatus returns a Status command counting uptime from now.
func NewStatus() *Status {
	return &Status{Started: time.Now(), now: time.Now}
}

func (s *Status) Name() string        { return "status" }
func (s *Status) Description() string { return "Show bot status" }

func (s *Status) Execute(_ context.Context, c *bot.Context, _ string) (string, error) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	uptime := now().Sub(s.Started).Truncate(time.Second)
	return fmt.Sprintf("Status: OK\nBot: %s\nUptime: %s\nChats: %d\nOffset: %d\nGo: %s",
		c.Bot.Me().Name(), uptime, len(c.Bot.Chats()), c.Bot.Offset(), runtime.Version()), nil
}
