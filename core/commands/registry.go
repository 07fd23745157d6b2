// Package commands routes slash commands sent to the bot to registered
// Command implementations and replies with their output.
package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jdelaire/tgbot/core/bot"
)

// Command is run when a chat message starts with /Name.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, c *bot.Context, args string) (string, error)
}

// Aliaser is implemented by commands that also answer to other names.
type Aliaser interface {
	Aliases() []string
}

// ErrInvalidName is returned by Register for names Telegram would not
// deliver as a command.
var ErrInvalidName = errors.New("invalid command name")

// Telegram accepts 1 to 32 lower-case letters, digits and underscores.
var validName = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Registry holds commands by lower-case name. Aliases resolve to the
// command that declares them.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	lookup   map[string]string // name or alias -> name
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		lookup:   make(map[string]string),
	}
}

// Register adds a command and its aliases. Names are case-insensitive and
// no name or alias may be taken twice. Nothing is added on error.
func (r *Registry) Register(cmd Command) error {
	name := strings.ToLower(cmd.Name())
	keys := append([]string{name}, Aliases(cmd)...)

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !validName.MatchString(k) {
			return fmt.Errorf("%w: %q (%T)", ErrInvalidName, k, cmd)
		}
		if _, exists := r.lookup[k]; exists || seen[k] {
			return fmt.Errorf("command already registered: %s", k)
		}
		seen[k] = true
	}

	r.commands[name] = cmd
	for _, k := range keys {
		r.lookup[k] = name
	}
	return nil
}

// Get returns the command registered under name or an alias of it, or nil
// if not found.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[r.lookup[strings.ToLower(name)]]
}

// List returns all commands sorted by name. Aliases are not listed
// separately.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Command, len(names))
	for i, name := range names {
		result[i] = r.commands[name]
	}
	return result
}

// Aliases returns the lower-case aliases of cmd, if it declares any.
func Aliases(cmd Command) []string {
	a, ok := cmd.(Aliaser)
	if !ok {
		return nil
	}
	aliases := a.Aliases()
	out := make([]string, len(aliases))
	for i, alias := range aliases {
		out[i] = strings.ToLower(alias)
	}
	return out
}
