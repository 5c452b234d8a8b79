package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"sme-billing/internal/ai"
	"sme-billing/internal/app"
	"sme-billing/internal/core"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps an application error onto an HTTP status and error code.
// Unexpected errors are logged and reported without their message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrInvalidState):
		writeError(w, r, err.Error(), "INVALID_STATE", http.StatusConflict)
	case errors.Is(err, core.ErrConflict):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrQuotaExceeded):
		writeError(w, r, err.Error(), "QUOTA_EXCEEDED", http.StatusTooManyRequests)
	case errors.Is(err, core.ErrForbidden):
		writeError(w, r, "you are not a member of this company", "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, app.ErrAIUnavailable):
		writeError(w, r, err.Error(), "AI_UNAVAILABLE", http.StatusServiceUnavailable)
	case errors.Is(err, ai.ErrInvalidReply):
		writeError(w, r, "the AI reply could not be read; try again", "AI_BAD_REPLY", http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, "upstream request timed out", "TIMEOUT", http.StatusGatewayTimeout)
	default:
		log.Error().Err(err).
			Str("request_id", requestIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
