package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap/zaptest"

	"github.com/PortNumber53/landing-intake/backend/internal/models"
	"github.com/PortNumber53/landing-intake/backend/internal/offers"
	stripeClient "github.com/PortNumber53/landing-intake/backend/internal/stripe"
)

const testWebhookSecret = "whsec_handlers_test"

var testNow = time.Date(2026, time.October, 19, 12, 30, 0, 0, time.UTC)

type fakeNotifier struct {
	mu         sync.Mutex
	configured bool
	err        error
	panicMsg   string
	messages   []string
}

func (f *fakeNotifier) Configured() bool { return f != nil && f.configured }

func (f *fakeNotifier) SendMessage(ctx context.Context, text string) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return f.err
}

func (f *fakeNotifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeCheckout struct {
	configured bool
	err        error
	params     []stripeClient.CheckoutSessionParams
}

func (f *fakeCheckout) Configured() bool { return f != nil && f.configured }

func (f *fakeCheckout) CreateCheckoutSession(ctx context.Context, params stripeClient.CheckoutSessionParams) (*stripeClient.CheckoutSession, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &stripeClient.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func testCatalog() offers.Catalog {
	return offers.New(
		map[string]string{
			"club":   "price_club",
			"path":   "price_path",
			"orphan": "price_orphan",
		},
		map[string]stripego.CheckoutSessionMode{
			"club":     stripego.CheckoutSessionModeSubscription,
			"path":     stripego.CheckoutSessionModePayment,
			"modeonly": stripego.CheckoutSessionModePayment,
		},
	)
}

func newTestHandler(t *testing.T, notifier *fakeNotifier, checkout *fakeCheckout) *IntakeHandler {
	t.Helper()
	h := NewIntakeHandler(
		notifier,
		checkout,
		stripeClient.NewVerifier(testWebhookSecret),
		testCatalog(),
		"https://coach.example",
		time.UTC,
		zaptest.NewLogger(t),
	)
	h.Now = func() time.Time { return testNow }
	return h
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) models.Result {
	t.Helper()
	var res models.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res), "body: %s", rr.Body.String())
	return res
}
