package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/apperror"
	"github.com/PortNumber53/landing-intake/backend/internal/models"
	"github.com/PortNumber53/landing-intake/backend/internal/notify"
	stripeClient "github.com/PortNumber53/landing-intake/backend/internal/stripe"
)

const maxWebhookBodyBytes = 1 << 20

var webhookStatuses = statusMap{
	apperror.KindValidation:     http.StatusBadRequest,
	apperror.KindAuthentication: http.StatusBadRequest,
	apperror.KindConfiguration:  http.StatusBadRequest,
	apperror.KindUpstream:       http.StatusInternalServerError,
}

// Webhook receives Stripe events. Nothing in the payload is read until the
// signature over the raw body has been verified. A failed notification
// answers 500 so Stripe redelivers the event.
func (h *IntakeHandler) Webhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(err *apperror.Error) {
			status := webhookStatuses.status(err.Kind)
			h.logFailure(r, "webhook", err, status)
			msg := "Webhook Error: " + err.Message
			if err.Details != "" {
				msg += ": " + err.Details
			}
			http.Error(w, msg, status)
		}
		defer h.recoverPanic(w, r, "webhook", fail)

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		event, err := h.verifyEvent(r)
		if err != nil {
			fail(apperror.As(err))
			return
		}

		log := h.Logger.With(
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)

		switch event.Type {
		case stripego.EventTypeCheckoutSessionCompleted:
			if err := h.handleCheckoutCompleted(r, event); err != nil {
				fail(apperror.As(err))
				return
			}
			log.Info("payment notification delivered")
		default:
			log.Info("ignoring unhandled event type")
		}

		writeJSON(w, http.StatusOK, models.WebhookAck{Received: true})
	}
}

func (h *IntakeHandler) verifyEvent(r *http.Request) (stripego.Event, error) {
	signature := r.Header.Get(stripeClient.SignatureHeader)
	if signature == "" {
		return stripego.Event{}, apperror.Authentication("missing "+stripeClient.SignatureHeader+" header", nil)
	}
	if h.Verifier == nil || !h.Verifier.Configured() {
		return stripego.Event{}, apperror.Configuration("webhook secret is not configured")
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		return stripego.Event{}, apperror.Validation("failed to read body")
	}

	event, err := h.Verifier.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, stripeClient.ErrMissingSecret) {
			return stripego.Event{}, apperror.Configuration("webhook secret is not configured")
		}
		return stripego.Event{}, apperror.Authentication("signature verification failed", err)
	}
	return event, nil
}

func (h *IntakeHandler) handleCheckoutCompleted(r *http.Request, event stripego.Event) error {
	checkout, err := stripeClient.ParseCompletedCheckout(event)
	if err != nil {
		return apperror.Validation("invalid checkout session payload: %v", err)
	}

	lead := models.CheckoutRequestFromMetadata(checkout.Metadata)
	fields := notify.Fields{
		OfferID:        lead.OfferID,
		OfferTitle:     lead.OfferTitle,
		Name:           lead.Name,
		Contact:        lead.Contact,
		Comment:        lead.Comment,
		PageURL:        lead.PageURL,
		Email:          checkout.Email,
		Currency:       checkout.Currency,
		SubscriptionID: checkout.SubscriptionID,
	}
	if checkout.AmountTotal != nil {
		fields.Amount = formatMinorUnits(*checkout.AmountTotal)
	}

	// Missing chat configuration is reported as upstream too.
	if h.Notifier == nil {
		return apperror.Upstream("telegram is not configured", "", nil)
	}
	text := notify.FormatAt(notify.KindPayment, fields, h.now())
	if err := h.Notifier.SendMessage(r.Context(), text); err != nil {
		de := apperror.As(deliveryError(err))
		return apperror.Upstream(de.Message, de.Details, err)
	}
	return nil
}

// formatMinorUnits renders an amount in minor currency units with two decimals.
func formatMinorUnits(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
