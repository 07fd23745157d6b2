package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdelaire/tgbot/adapters/amqp_forwarder"
	"github.com/jdelaire/tgbot/adapters/telegram_transport"
	"github.com/jdelaire/tgbot/core/api"
	"github.com/jdelaire/tgbot/core/bot"
	"github.com/jdelaire/tgbot/core/commands"
	"github.com/jdelaire/tgbot/core/configwatch"
	"github.com/jdelaire/tgbot/core/policy"
	"github.com/jdelaire/tgbot/core/ratelimit"
	"github.com/jdelaire/tgbot/internal/config"
	"github.com/jdelaire/tgbot/internal/keychain"
	"github.com/jdelaire/tgbot/internal/state"
)

const (
	reloadInterval = 5 * time.Second
	httpSlack      = 10 * time.Second
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Offset int64
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the update loop",
		Long: `Start polling getUpdates and dispatching updates until interrupted.

The bot token is read from $TGBOT_TOKEN or the OS keychain (see 'tgbot token set').
Changes to allowed_chats in the config file are applied without a restart.

Example:
  tgbot run --config ./tgbot.yaml
  tgbot run --offset 123456 -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "first update id to request")

	return cmd
}

func runBot(ctx context.Context, opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := config.LoadFile(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	token, err := keychain.Token(cfg.TokenAccount)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read bot token", err)
	}

	offset := opts.Offset
	var store *state.Store
	if cfg.StateFile != "" {
		store = state.NewStore(cfg.StateFile)
		if offset == 0 {
			offset = savedOffset(store, botID(token), logger)
		}
	}

	a, err := newApp(ctx, cfg, token, logger, bot.WithOffset(offset))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start bot", err)
	}
	defer a.Close()

	watcher := configwatch.New(reloadInterval, logger)
	watcher.Watch(opts.Config, a.reload)
	go watcher.Run(ctx)

	logger.Info("bot started",
		"username", a.bot.Username(),
		"failure_mode", cfg.FailureMode,
		"allowed_chats", len(cfg.AllowedChats),
		"forwarding", cfg.Forward != nil,
	)
	runErr := a.bot.Run(ctx)
	if store != nil {
		if err := store.Save(botID(token), a.bot.Offset()); err != nil {
			logger.Error("save state failed", "path", store.Path(), "error", err)
		}
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "update loop stopped", runErr)
	}
	logger.Info("bot stopped", "offset", a.bot.Offset())
	return nil
}

func savedOffset(store *state.Store, bot string, logger *slog.Logger) int64 {
	st, err := store.Load()
	if err != nil {
		logger.Warn("ignoring state file", "path", store.Path(), "error", err)
		return 0
	}
	return st.OffsetFor(bot)
}

// botID returns the numeric bot id a token starts with.
func botID(token string) string {
	id, _, _ := strings.Cut(token, ":")
	return id
}

// app is a configured bot together with the components that outlive a
// config reload.
type app struct {
	bot       *bot.Bot
	policy    *policy.Policy
	forwarder *amqp_forwarder.Forwarder
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, token string, logger *slog.Logger, extra ...bot.Option) (*app, error) {
	mode, err := bot.ParseFailureMode(cfg.FailureMode)
	if err != nil {
		return nil, err
	}
	pollTimeout := *cfg.PollTimeout

	tr := telegram_transport.New(token, logger).
		WithBaseURL(cfg.APIBaseURL).
		WithHTTPClient(&http.Client{Timeout: time.Duration(pollTimeout)*time.Second + httpSlack})

	opts := []bot.Option{
		bot.WithFailureMode(mode),
		bot.WithPollInterval(*cfg.PollInterval),
		bot.WithErrorCooldown(*cfg.ErrorCooldown),
		bot.WithPollTimeout(pollTimeout),
	}
	b, err := bot.New(ctx, tr, logger, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	a := &app{
		bot:    b,
		policy: policy.New(cfg.AllowedChats).WithFreshness(*cfg.Freshness),
		logger: logger,
	}

	reg := commands.NewRegistry()
	for _, c := range []commands.Command{&commands.Help{Registry: reg}, commands.NewStatus()} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	var messages bot.MessageHandler = commands.NewRouter(reg, a.policy, logger).WithLimiter(ratelimit.New())

	if f := cfg.Forward; f != nil {
		fwd, err := amqp_forwarder.Dial(f.URL, f.Exchange, f.RoutingKey, logger)
		if err != nil {
			return nil, err
		}
		a.forwarder = fwd
		if err := a.forwardAll(fwd); err != nil {
			a.Close()
			return nil, err
		}
		messages = fwd.Wrap(messages)
	}

	if err := b.HandleMessages(messages); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// forwardAll registers fwd for every update type that is not a message.
func (a *app) forwardAll(fwd *amqp_forwarder.Forwarder) error {
	for _, t := range api.UpdateTypes {
		if t.IsMessageFamily() {
			continue
		}
		if err := a.bot.Register(t, fwd); err != nil {
			return fmt.Errorf("register forwarder: %w", err)
		}
	}
	return nil
}

// reload re-reads the config file and applies the chat allowlist. Other
// settings take effect on the next start.
func (a *app) reload(path string) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		a.logger.Error("config reload failed", "path", path, "error", err)
		return
	}
	a.policy.SetAllowed(cfg.AllowedChats)
	a.logger.Info("config reloaded", "path", path, "allowed_chats", len(cfg.AllowedChats))
}

// Close closes the forwarder connection, if any.
func (a *app) Close() {
	if a.forwarder == nil {
		return
	}
	if err := a.forwarder.Close(); err != nil {
		a.logger.Warn("close forwarder", "error", err)
	}
}
