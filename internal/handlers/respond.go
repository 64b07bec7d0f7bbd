package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/apperror"
	"github.com/PortNumber53/landing-intake/backend/internal/models"
	"github.com/PortNumber53/landing-intake/backend/internal/telegram"
)

const maxFormBodyBytes = 64 << 10

// decodeBody reads a JSON object, or a JSON string that itself holds a JSON
// object, into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFormBodyBytes))
	if err != nil {
		return apperror.Validation("failed to read request body")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return apperror.Validation("invalid JSON body")
		}
		raw = bytes.TrimSpace([]byte(inner))
		if len(raw) == 0 {
			return nil
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.Validation("invalid JSON body")
	}
	return nil
}

func validateContact(name, contact string) error {
	if len([]rune(name)) < models.MinNameLength {
		return apperror.Validation("name must be at least %d characters", models.MinNameLength)
	}
	if len([]rune(contact)) < models.MinContactLength {
		return apperror.Validation("contact must be at least %d characters", models.MinContactLength)
	}
	return nil
}

// deliveryError classifies a Notifier failure.
func deliveryError(err error) error {
	if errors.Is(err, telegram.ErrNotConfigured) {
		return apperror.Configuration("telegram is not configured")
	}

	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		return apperror.Upstream("telegram delivery failed", apiErr.Body, err)
	}
	return apperror.Upstream("telegram delivery failed", err.Error(), err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeResultError(w http.ResponseWriter, status int, err *apperror.Error) {
	writeJSON(w, status, models.Result{OK: false, Error: err.Message, Details: err.Details})
}

// statusMap maps an error kind to the HTTP status an endpoint answers with.
type statusMap map[apperror.Kind]int

func (m statusMap) status(kind apperror.Kind) int {
	if status, ok := m[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *IntakeHandler) logFailure(r *http.Request, endpoint string, err *apperror.Error, status int) {
	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("kind", err.Kind.String()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", fields...)
		return
	}
	h.Logger.Warn("request rejected", fields...)
}

// recoverPanic turns a panic inside an endpoint into an internal error
// response so one bad request never takes the process down.
func (h *IntakeHandler) recoverPanic(w http.ResponseWriter, r *http.Request, endpoint string, respond func(*apperror.Error)) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}
	err := apperror.Unexpected(fmt.Errorf("panic: %v", rec))
	h.Logger.Error("panic recovered",
		zap.String("endpoint", endpoint),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Any("panic", rec),
		zap.Stack("stack"),
	)
	respond(err)
}
