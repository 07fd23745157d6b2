package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/jdelaire/tgbot/internal/config"
	"github.com/jdelaire/tgbot/internal/keychain"
)

// TokenOptions holds flags for the token commands.
type TokenOptions struct {
	*RootOptions
	Account string
	Reveal  bool
}

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bot token in the OS keychain",
	}
	cmd.PersistentFlags().StringVar(&opts.Account, "account", "", "keychain account (default: token_account from the config)")

	set := &cobra.Command{
		Use:   "set [token]",
		Short: "Store the bot token",
		Long:  "Store the bot token. Without an argument the token is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := opts.account()
			if err != nil {
				return err
			}
			token, err := readToken(cmd, args)
			if err != nil {
				return err
			}
			if err := keychain.Set(account, token); err != nil {
				return WrapExitError(ExitFailure, "failed to store token", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token stored in keychain account %q.\n", account)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the stored bot token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := opts.account()
			if err != nil {
				return err
			}
			token, err := keychain.Get(account)
			if errors.Is(err, keyring.ErrNotFound) {
				return WrapExitError(ExitFailure, fmt.Sprintf("no token in keychain account %q", account), err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read token", err)
			}
			if !opts.Reveal {
				token = mask(token)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	get.Flags().BoolVar(&opts.Reveal, "reveal", false, "print the token unmasked")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored bot token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := opts.account()
			if err != nil {
				return err
			}
			if err := keychain.Delete(account); err != nil {
				return WrapExitError(ExitFailure, "failed to delete token", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token removed from keychain account %q.\n", account)
			return nil
		},
	}

	cmd.AddCommand(set, get, del)
	return cmd
}

// account returns --account, or the token_account of the config file.
func (o *TokenOptions) account() (string, error) {
	if o.Account != "" {
		return o.Account, nil
	}
	cfg, err := config.LoadFile(o.Config)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg.TokenAccount, nil
}

func readToken(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", WrapExitError(ExitCommandError, "no token on stdin", err)
		}
		return "", WrapExitError(ExitCommandError, "no token on stdin", nil)
	}
	return line, nil
}

// mask hides all but the bot id prefix of a token ("123456:ABC..." becomes
// "123456:****").
func mask(token string) string {
	if id, _, ok := strings.Cut(token, ":"); ok {
		return id + ":****"
	}
	return "****"
}
