// Package config loads the tgbot YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTokenAccount  = "bot-token"
	DefaultAPIBaseURL    = "https://api.telegram.org"
	DefaultFailureMode   = "suppress"
	DefaultPollTimeout   = 30
	DefaultPollInterval  = time.Second
	DefaultErrorCooldown = 60 * time.Second
	DefaultFreshness     = 5 * time.Minute

	maxPollTimeout = 50
)

// Config is the top-level tgbot configuration. Pointer fields are
// defaulted only when absent, so an explicit zero is kept.
type Config struct {
	TokenAccount  string         `yaml:"token_account"`
	APIBaseURL    string         `yaml:"api_base_url"`
	AllowedChats  []int64        `yaml:"allowed_chats"`
	FailureMode   string         `yaml:"failure_mode"`
	PollTimeout   *int           `yaml:"poll_timeout"`
	PollInterval  *time.Duration `yaml:"poll_interval"`
	ErrorCooldown *time.Duration `yaml:"error_cooldown"`
	Freshness     *time.Duration `yaml:"freshness"` // 0 disables the age check
	StateFile     string         `yaml:"state_file"`
	Forward       *ForwardConfig `yaml:"forward"`
}

// ForwardConfig enables publishing updates to an AMQP exchange.
type ForwardConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadFile reads and validates a config file. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML config data. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.TokenAccount == "" {
		cfg.TokenAccount = DefaultTokenAccount
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.FailureMode == "" {
		cfg.FailureMode = DefaultFailureMode
	}
	if cfg.PollTimeout == nil {
		t := DefaultPollTimeout
		cfg.PollTimeout = &t
	}
	defaultDuration(&cfg.PollInterval, DefaultPollInterval)
	defaultDuration(&cfg.ErrorCooldown, DefaultErrorCooldown)
	defaultDuration(&cfg.Freshness, DefaultFreshness)
}

func defaultDuration(d **time.Duration, def time.Duration) {
	if *d == nil {
		*d = &def
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.FailureMode) {
	case "propagate", "suppress":
	default:
		return fmt.Errorf("failure_mode %q must be propagate or suppress", cfg.FailureMode)
	}
	if t := *cfg.PollTimeout; t < 0 || t > maxPollTimeout {
		return fmt.Errorf("poll_timeout %d must be between 0 and %d", t, maxPollTimeout)
	}
	for key, d := range map[string]time.Duration{
		"poll_interval":  *cfg.PollInterval,
		"error_cooldown": *cfg.ErrorCooldown,
		"freshness":      *cfg.Freshness,
	} {
		if d < 0 {
			return fmt.Errorf("%s %s must not be negative", key, d)
		}
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url %q must be an http(s) URL", cfg.APIBaseURL)
	}
	if f := cfg.Forward; f != nil {
		if f.URL == "" {
			return errors.New("forward.url is required")
		}
		if f.Exchange == "" {
			return errors.New("forward.exchange is required")
		}
	}
	return nil
}
