package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader is the header Stripe signs webhook deliveries with.
const SignatureHeader = "Stripe-Signature"

// ErrMissingSecret is returned when no webhook signing secret is configured.
var ErrMissingSecret = errors.New("stripe: webhook signing secret not configured")

// Verifier checks webhook signatures against the endpoint's signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier returns a Verifier using Stripe's default timestamp tolerance.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Configured reports whether a signing secret is set.
func (v *Verifier) Configured() bool {
	return v != nil && v.secret != ""
}

// ConstructEvent verifies header over the untouched payload and only then
// decodes the event.
func (v *Verifier) ConstructEvent(payload []byte, header string) (stripego.Event, error) {
	if !v.Configured() {
		return stripego.Event{}, ErrMissingSecret
	}
	return webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
}

// CompletedCheckout is what a checkout.session.completed event tells us about
// the payer.
type CompletedCheckout struct {
	Metadata       map[string]string
	Email          string
	AmountTotal    *int64
	Currency       string
	SubscriptionID string
}

// amountProbe distinguishes an absent amount_total from zero.
type amountProbe struct {
	AmountTotal *int64 `json:"amount_total"`
}

// ParseCompletedCheckout decodes the session object of a verified
// checkout.session.completed event.
func ParseCompletedCheckout(event stripego.Event) (*CompletedCheckout, error) {
	if event.Type != stripego.EventTypeCheckoutSessionCompleted {
		return nil, fmt.Errorf("unexpected event type %q", event.Type)
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("event %s has no data object", event.ID)
	}

	var session stripego.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w", err)
	}

	var probe amountProbe
	if err := json.Unmarshal(event.Data.Raw, &probe); err != nil {
		return nil, fmt.Errorf("parse checkout session amount: %w", err)
	}

	out := &CompletedCheckout{
		Metadata:    session.Metadata,
		Email:       session.CustomerEmail,
		AmountTotal: probe.AmountTotal,
		Currency:    strings.ToUpper(string(session.Currency)),
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		out.Email = session.CustomerDetails.Email
	}
	if session.Subscription != nil {
		out.SubscriptionID = session.Subscription.ID
	}

	return out, nil
}
