// ABOUTME: Telegram Bot API client for the relay: sendMessage, getUpdates long-poll, drain, getMe
// ABOUTME: Reproduces the provider wire contract exactly and surfaces failures as TransportError

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// ParseMode is the single markup style used for outbound messages.
const ParseMode = "Markdown"

// pollGrace is added on top of the provider-side long-poll timeout so the
// HTTP request never gives up before Telegram answers.
const pollGrace = 5 * time.Second

// maxResponseBody caps how much of a provider response we read.
const maxResponseBody = 4 << 20

// Chat identifies a Telegram chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// User is the subset of a Telegram user we care about.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Message is an inbound or outbound chat message. Text is empty for
// stickers, photos and other non-text content.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// Update is one entry returned by getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// HasText reports whether the update carries a text message.
func (u Update) HasText() bool {
	return u.Message != nil && u.Message.Text != ""
}

// envelope is the { ok, result } wrapper every Bot API response uses.
type envelope[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Observer receives one call per Bot API request. The metrics package
// implements it; nil is allowed.
type Observer interface {
	ObserveRequest(method string, err error, elapsed time.Duration)
}

// Config holds configuration for the Telegram client.
type Config struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
}

// Client talks to the Telegram Bot API.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	logger   *slog.Logger
	observer Observer
}

// New creates a new Telegram client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No client-wide timeout: each call sets its own deadline so the
		// long-poll is never cut short.
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  baseURL,
		token:    cfg.Token,
		http:     httpClient,
		logger:   logger.With("component", "telegram"),
		observer: cfg.Observer,
	}, nil
}

// Send posts text to the given chat and returns the new message id.
// Failures are returned as *TransportError and are never retried.
func (c *Client) Send(ctx context.Context, chatID int64, text string) (int64, error) {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: ParseMode,
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling sendMessage: %w", err)
	}

	var msg Message
	if err := c.call(ctx, http.MethodPost, "sendMessage", nil, body, &msg); err != nil {
		return 0, err
	}

	c.logger.Debug("message sent", "chat_id", chatID, "message_id", msg.MessageID)
	return msg.MessageID, nil
}

// Poll fetches updates with update_id > cursor, letting Telegram hold the
// request open for up to wait. An empty slice means the wait elapsed.
func (c *Client) Poll(ctx context.Context, cursor int64, wait time.Duration) ([]Update, error) {
	secs := int(wait / time.Second)
	if secs < 0 {
		secs = 0
	}

	params := url.Values{}
	params.Set("offset", strconv.FormatInt(cursor+1, 10))
	params.Set("timeout", strconv.Itoa(secs))
	params.Set("allowed_updates", `["message"]`)

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(secs)*time.Second+pollGrace)
	defer cancel()

	var updates []Update
	if err := c.call(reqCtx, http.MethodGet, "getUpdates", params, nil, &updates); err != nil {
		// Caller cancellation is not a provider failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return updates, nil
}

// Drain asks for only the newest pending update so the startup cursor can
// skip everything sent before the process started. It is best-effort:
// any failure is logged and reported as ok=false.
func (c *Client) Drain(ctx context.Context) (int64, bool) {
	params := url.Values{}
	params.Set("offset", "-1")
	params.Set("limit", "1")

	var updates []Update
	if err := c.call(ctx, http.MethodGet, "getUpdates", params, nil, &updates); err != nil {
		c.logger.Warn("failed to drain pending updates", "error", err)
		return 0, false
	}
	if len(updates) == 0 {
		return 0, false
	}

	highest := updates[0].UpdateID
	for _, u := range updates[1:] {
		if u.UpdateID > highest {
			highest = u.UpdateID
		}
	}
	return highest, true
}

// GetMe returns the bot's own identity; used to verify the credential.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, http.MethodGet, "getMe", nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// call performs one Bot API request and decodes the envelope's result into out.
func (c *Client) call(ctx context.Context, method, apiMethod string, params url.Values, body []byte, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(apiMethod, err, time.Since(start))
		}
	}()

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, apiMethod)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Method: apiMethod, Err: redact(err, c.token)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: apiMethod, Err: redact(err, c.token)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &TransportError{Method: apiMethod, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newTransportError(apiMethod, resp.StatusCode, raw)
	}

	env := envelope[json.RawMessage]{}
	if err := json.Unmarshal(raw, &env); err != nil {
		return &TransportError{Method: apiMethod, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if !env.OK {
		return newTransportError(apiMethod, resp.StatusCode, raw)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &TransportError{Method: apiMethod, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding result: %w", err)}
	}
	return nil
}

// redact strips the bot token from errors that echo the request URL.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
