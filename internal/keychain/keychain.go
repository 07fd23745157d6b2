// Package keychain stores the bot token in the OS keychain.
package keychain

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "tgbot"

	// DefaultAccount is the keychain account holding the bot token.
	DefaultAccount = "bot-token"
	// TokenEnv overrides the keychain when set.
	TokenEnv = "TGBOT_TOKEN"
)

// Get retrieves a secret from the system keychain.
func Get(account string) (string, error) {
	return keyring.Get(serviceName, account)
}

// Set stores a secret in the system keychain.
func Set(account, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("refusing to store an empty secret")
	}
	return keyring.Set(serviceName, account, value)
}

// Delete removes a secret from the system keychain.
func Delete(account string) error {
	return keyring.Delete(serviceName, account)
}

// Token returns the bot token from $TGBOT_TOKEN, or from the keychain
// account when the variable is unset.
func Token(account string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		return v, nil
	}
	if account == "" {
		account = DefaultAccount
	}
	tok, err := Get(account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("no bot token: set %s or run 'tgbot token set': %w", TokenEnv, err)
	}
	if err != nil {
		return "", fmt.Errorf("read keychain: %w", err)
	}
	return tok, nil
}
