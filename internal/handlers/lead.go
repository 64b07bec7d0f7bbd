package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/apperror"
	"github.com/PortNumber53/landing-intake/backend/internal/models"
	"github.com/PortNumber53/landing-intake/backend/internal/notify"
)

const leadAllow = "GET, POST, OPTIONS"

var leadStatuses = statusMap{
	apperror.KindValidation:    http.StatusBadRequest,
	apperror.KindConfiguration: http.StatusInternalServerError,
	apperror.KindUpstream:      http.StatusBadGateway,
}

// Lead accepts lead form posts and forwards them to the operators' chat.
func (h *IntakeHandler) Lead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setLeadCORS(w)

		fail := func(err *apperror.Error) {
			status := leadStatuses.status(err.Kind)
			h.logFailure(r, "lead", err, status)
			writeResultError(w, status, err)
		}
		defer h.recoverPanic(w, r, "lead", fail)

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodGet:
			writeJSON(w, http.StatusOK, models.Result{OK: true, Status: "lead endpoint is alive"})
			return
		case http.MethodPost:
		default:
			w.Header().Set("Allow", leadAllow)
			writeJSON(w, http.StatusMethodNotAllowed, models.Result{OK: false, Error: "method not allowed"})
			return
		}

		lead, err := h.submitLead(r)
		if err != nil {
			fail(apperror.As(err))
			return
		}

		h.Logger.Info("lead delivered",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("offer_id", lead.OfferID),
		)
		writeJSON(w, http.StatusOK, models.Result{OK: true})
	}
}

// submitLead validates the body before any outbound call, so an invalid
// submission never produces a notification.
func (h *IntakeHandler) submitLead(r *http.Request) (models.LeadSubmission, error) {
	if h.Notifier == nil || !h.Notifier.Configured() {
		return models.LeadSubmission{}, apperror.Configuration("telegram is not configured")
	}

	var lead models.LeadSubmission
	if err := decodeBody(r, &lead); err != nil {
		return models.LeadSubmission{}, err
	}
	lead = lead.Trimmed()

	if err := validateContact(lead.Name, lead.Contact); err != nil {
		return models.LeadSubmission{}, err
	}

	text := notify.FormatAt(notify.KindLead, notify.Fields{
		OfferID:    lead.OfferID,
		OfferTitle: lead.OfferTitle,
		Name:       lead.Name,
		Contact:    lead.Contact,
		Comment:    lead.Comment,
		PageURL:    lead.PageURL,
	}, h.now())

	if err := h.Notifier.SendMessage(r.Context(), text); err != nil {
		return models.LeadSubmission{}, deliveryError(err)
	}
	return lead, nil
}

func setLeadCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", leadAllow)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
