package web

import (
	"net/http"
	"strings"

	"sme-billing/internal/app"
)

// calculate handles POST /api/tools/calculate. Nothing is saved.
func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req app.CalculateRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	res, err := h.svc.Calculate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// bahtText handles GET /api/tools/baht-text?amount=1234.50.
func (h *Handler) bahtText(w http.ResponseWriter, r *http.Request) {
	amount := strings.TrimSpace(r.URL.Query().Get("amount"))
	if amount == "" {
		writeError(w, r, "amount is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	res, err := h.svc.BahtText(r.Context(), amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
