package handlers

import (
	"net/http"
	"time"
)

// Health responds with status 200 and reports which integrations have their
// secrets configured. It never calls the providers.
func (h *IntakeHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"integrations": map[string]bool{
				"telegram":       h.Notifier != nil && h.Notifier.Configured(),
				"stripe":         h.Checkout != nil && h.Checkout.Configured(),
				"stripe_webhook": h.Verifier != nil && h.Verifier.Configured(),
			},
		}
		writeJSON(w, http.StatusOK, payload)
	}
}
