package telegram_transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jdelaire/tgbot/core/schema"
)

const (
	defaultBaseURL   = "https://api.telegram.org"
	httpTimeout      = 35 * time.Second
	maxResponseBytes = 16 << 20
)

// Transport calls the Telegram Bot API over HTTPS. It implements
// api.Transport.
type Transport struct {
	botToken string
	logger   *slog.Logger
	client   *http.Client
	baseURL  string
}

// New creates a Transport for the given bot token.
func New(botToken string, logger *slog.Logger) *Transport {
	return &Transport{
		botToken: botToken,
		logger:   logger,
		client:   &http.Client{Timeout: httpTimeout},
		baseURL:  defaultBaseURL,
	}
}

// WithBaseURL overrides the Telegram API base URL (for testing).
func (t *Transport) WithBaseURL(url string) *Transport {
	t.baseURL = strings.TrimRight(url, "/")
	return t
}

// WithHTTPClient replaces the HTTP client. Its timeout must exceed the
// long-poll timeout of getUpdates.
func (t *Transport) WithHTTPClient(c *http.Client) *Transport {
	t.client = c
	return t
}

// Call posts payload as JSON to the method endpoint and returns the
// response envelope. Error responses are returned as envelopes too; only
// failures to reach the API or to read its answer are errors.
func (t *Transport) Call(ctx context.Context, method string, payload schema.Object) (schema.Object, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", t.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, t.redact(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	env, err := schema.ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: status %d: %w", method, resp.StatusCode, err)
	}

	t.logger.Debug("telegram call", "method", method, "status", resp.StatusCode,
		"duration", time.Since(start).Truncate(time.Millisecond))
	return env, nil
}

// redact removes the bot token from URLs embedded in err.
func (t *Transport) redact(err error) error {
	var ue *url.Error
	if t.botToken != "" && errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, t.botToken, "<token>")
	}
	return err
}
