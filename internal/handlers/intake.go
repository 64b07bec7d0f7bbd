package handlers

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	stripego "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/offers"
	stripeClient "github.com/PortNumber53/landing-intake/backend/internal/stripe"
)

const defaultRedirectOrigin = "http://localhost:3000"

// Notifier delivers a formatted message to the operators' chat.
type Notifier interface {
	Configured() bool
	SendMessage(ctx context.Context, text string) error
}

// CheckoutSessionCreator asks the payment provider for a hosted checkout.
type CheckoutSessionCreator interface {
	Configured() bool
	CreateCheckoutSession(ctx context.Context, params stripeClient.CheckoutSessionParams) (*stripeClient.CheckoutSession, error)
}

// EventVerifier authenticates a webhook delivery and decodes its event.
type EventVerifier interface {
	Configured() bool
	ConstructEvent(payload []byte, header string) (stripego.Event, error)
}

// IntakeHandler holds dependencies for the lead, checkout and webhook
// endpoints. The three endpoints share nothing at request time except this
// read-only struct.
type IntakeHandler struct {
	Notifier      Notifier
	Checkout      CheckoutSessionCreator
	Verifier      EventVerifier
	Offers        offers.Catalog
	PublicSiteURL string
	Location      *time.Location
	Logger        *zap.Logger

	// Now is replaced in tests.
	Now func() time.Time
}

// NewIntakeHandler creates an IntakeHandler.
func NewIntakeHandler(notifier Notifier, checkout CheckoutSessionCreator, verifier EventVerifier, catalog offers.Catalog, publicSiteURL string, loc *time.Location, logger *zap.Logger) *IntakeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &IntakeHandler{
		Notifier:      notifier,
		Checkout:      checkout,
		Verifier:      verifier,
		Offers:        catalog,
		PublicSiteURL: publicSiteURL,
		Location:      loc,
		Logger:        logger,
		Now:           time.Now,
	}
}

// RegisterRoutes registers the intake endpoints. Each endpoint dispatches on
// the method itself so unsupported verbs get a 405 with an Allow header.
func (h *IntakeHandler) RegisterRoutes(router chi.Router) {
	router.Get("/healthz", h.Health())
	router.HandleFunc("/api/lead", h.Lead())
	router.HandleFunc("/api/create-checkout-session", h.CreateCheckout())
	router.HandleFunc("/api/stripe-webhook", h.Webhook())
}

func (h *IntakeHandler) now() time.Time {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return now().In(h.Location)
}
