package stripe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
)

const (
	defaultBaseURL = "https://api.stripe.com/v1"

	// Stripe rejects metadata values longer than this.
	maxMetadataValueLength = 500
)

// Client wraps the Stripe REST endpoints the intake pipeline needs. Requests
// are form encoded, the way the Stripe API expects them.
type Client struct {
	secretKey  string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Stripe API client. An empty baseURL selects the
// public API.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Configured reports whether a secret key is set.
func (c *Client) Configured() bool {
	return c != nil && c.secretKey != ""
}

// CheckoutSessionParams describes a hosted checkout with a single line item.
type CheckoutSessionParams struct {
	Mode       stripego.CheckoutSessionMode
	PriceID    string
	Quantity   int
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the part of the provider's session we read back.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// APIError is a request Stripe answered with a 4xx/5xx status.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe API error (%d): %s", e.StatusCode, e.Message)
}

// CreateCheckoutSession creates a Stripe Checkout session for one price.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	data := url.Values{}
	data.Set("mode", string(params.Mode))
	data.Set("line_items[0][price]", params.PriceID)
	data.Set("line_items[0][quantity]", fmt.Sprintf("%d", quantity))
	data.Set("success_url", params.SuccessURL)
	data.Set("cancel_url", params.CancelURL)

	keys := make([]string, 0, len(params.Metadata))
	for k := range params.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Set("metadata["+k+"]", truncate(params.Metadata[k], maxMetadataValueLength))
	}

	var session CheckoutSession
	if err := c.post(ctx, "/checkout/sessions", data, &session); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("create checkout session: missing session ID in response")
	}
	if session.URL == "" {
		return nil, fmt.Errorf("create checkout session: missing checkout URL in response")
	}

	return &session, nil
}

// HTTP helpers

func (c *Client) post(ctx context.Context, path string, data url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", stripego.APIVersion)

	return c.doRequest(req, out)
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) doRequest(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return fmt.Errorf("read stripe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "unknown error"}
		var envelope errorEnvelope
		if err := json.Unmarshal(buf.Bytes(), &envelope); err == nil && envelope.Error.Message != "" {
			apiErr.Type = envelope.Error.Type
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("parse stripe response: %w", err)
	}

	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
