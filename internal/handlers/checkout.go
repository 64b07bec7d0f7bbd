package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/apperror"
	"github.com/PortNumber53/landing-intake/backend/internal/models"
	stripeClient "github.com/PortNumber53/landing-intake/backend/internal/stripe"
)

var checkoutStatuses = statusMap{
	apperror.KindValidation:    http.StatusBadRequest,
	apperror.KindConfiguration: http.StatusInternalServerError,
	apperror.KindUpstream:      http.StatusInternalServerError,
}

// CreateCheckout creates a hosted Stripe Checkout session for an offer and
// returns its URL. The browser performs the redirect.
func (h *IntakeHandler) CreateCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(err *apperror.Error) {
			status := checkoutStatuses.status(err.Kind)
			h.logFailure(r, "checkout", err, status)
			writeResultError(w, status, err)
		}
		defer h.recoverPanic(w, r, "checkout", fail)

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, models.Result{OK: false, Error: "method not allowed"})
			return
		}

		req, session, err := h.createCheckout(r)
		if err != nil {
			fail(apperror.As(err))
			return
		}

		h.Logger.Info("checkout session created",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("offer_id", req.OfferID),
			zap.String("session_id", session.ID),
		)
		writeJSON(w, http.StatusOK, models.Result{OK: true, URL: session.URL})
	}
}

func (h *IntakeHandler) createCheckout(r *http.Request) (models.CheckoutRequest, *stripeClient.CheckoutSession, error) {
	if h.Checkout == nil || !h.Checkout.Configured() {
		return models.CheckoutRequest{}, nil, apperror.Configuration("stripe is not configured")
	}

	var req models.CheckoutRequest
	if err := decodeBody(r, &req); err != nil {
		return req, nil, err
	}
	req = req.Trimmed()

	if req.OfferID == "" {
		return req, nil, apperror.Validation("offerId is required")
	}
	if err := validateContact(req.Name, req.Contact); err != nil {
		return req, nil, err
	}

	priceID, ok := h.Offers.PriceID(req.OfferID)
	if !ok {
		return req, nil, apperror.Validation("no price configured for offer %q", req.OfferID)
	}
	mode, ok := h.Offers.Mode(req.OfferID)
	if !ok {
		return req, nil, apperror.Validation("unknown offer %q", req.OfferID)
	}

	origin := h.redirectOrigin(r)
	offer := url.QueryEscape(req.OfferID)

	session, err := h.Checkout.CreateCheckoutSession(r.Context(), stripeClient.CheckoutSessionParams{
		Mode:     mode,
		PriceID:  priceID,
		Quantity: 1,
		// Stripe substitutes {CHECKOUT_SESSION_ID} itself, so it stays unescaped.
		SuccessURL: origin + "/success?session_id={CHECKOUT_SESSION_ID}&offer=" + offer,
		CancelURL:  origin + "/cancel?offer=" + offer,
		Metadata:   req.Metadata(),
	})
	if err != nil {
		return req, nil, checkoutError(err)
	}
	return req, session, nil
}

// redirectOrigin picks the request's Origin header, then the configured
// public site URL, then the local development default.
func (h *IntakeHandler) redirectOrigin(r *http.Request) string {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "null" {
		origin = ""
	}
	return strings.TrimSuffix(firstNonEmpty(origin, h.PublicSiteURL, defaultRedirectOrigin), "/")
}

func checkoutError(err error) error {
	var apiErr *stripeClient.APIError
	if errors.As(err, &apiErr) {
		return apperror.Upstream(fmt.Sprintf("failed to create checkout session: %s", apiErr.Message), apiErr.Code, err)
	}
	return apperror.Upstream("failed to create checkout session", "", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
