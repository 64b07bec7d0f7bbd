package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// ErrNotConfigured is returned before any network call when the bot token or
// chat id is missing.
var ErrNotConfigured = errors.New("telegram: bot token or chat id not configured")

// TransportError reports that the Bot API could not be reached.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a response the Bot API did not accept. Body holds the raw
// response text for diagnostics.
type APIError struct {
	StatusCode  int
	Description string
	Body        string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram API error (%d): %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram API error (%d): %s", e.StatusCode, e.Body)
}

// Client posts messages to a single chat via the Bot API.
type Client struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at a different Bot API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a Bot API client for the given bot token and chat.
func NewClient(token, chatID string, opts ...Option) *Client {
	c := &Client{
		token:      strings.TrimSpace(token),
		chatID:     strings.TrimSpace(chatID),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both the token and the chat id are set.
func (c *Client) Configured() bool {
	return c != nil && c.token != "" && c.chatID != ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage delivers text as an HTML-formatted message. It is not retried.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: redactToken(err, c.token)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read telegram response: %w", err)}
	}

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !result.OK {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Description: result.Description,
			Body:        string(raw),
		}
	}

	return nil
}

// redactToken keeps the bot token out of url.Error messages, which embed the
// full request URL.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
