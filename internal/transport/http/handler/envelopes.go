package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fcl-miniapp/internal/domain"
)

// MessageEnvelope is the generic error wrapper. Reason is set for
// validation failures only.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// HealthEnvelope is the liveness response.
type HealthEnvelope struct {
	OK bool `json:"ok"`
}

// DraftEnvelope wraps the current draft; Draft is null when none is stored.
type DraftEnvelope struct {
	Draft *domain.DraftDocument `json:"draft"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain errors to status codes. Unrecognised errors are
// logged and reported as 500 without detail.
func httpError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, MessageEnvelope{
			Error:  err.Error(),
			Reason: domain.ValidationReason(err),
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotConfigured), errors.Is(err, domain.ErrUnavailable):
		logger.ErrorContext(r.Context(), "dependency unavailable", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
