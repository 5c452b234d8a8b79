package web

import (
	"net/http"

	"sme-billing/internal/app"
	"sme-billing/internal/core"
)

// listCompanies handles GET /api/companies.
func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.svc.ListMyCompanies(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if companies == nil {
		companies = []core.Membership{}
	}
	writeJSON(w, map[string]any{"companies": companies})
}

// createCompany handles POST /api/companies. The caller becomes the owner.
func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req app.CompanyRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	company, err := h.svc.CreateCompany(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, company)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.GetCompany(r.Context(), companyID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, company)
}

// updateCompany handles PUT /api/companies/{companyID}/. Owners only.
func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	if !requireOwner(w, r, "only the company owner can change settings") {
		return
	}
	var req app.CompanyRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	company, err := h.svc.UpdateCompany(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, company)
}

// addMember handles POST /api/companies/{companyID}/members. Owners only.
func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	if !requireOwner(w, r, "only the company owner can add members") {
		return
	}
	var req app.AddMemberRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	m, err := h.svc.AddMember(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}

// aiUsage handles GET /api/companies/{companyID}/ai/usage.
func (h *Handler) aiUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.svc.AIUsage(r.Context(), companyID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, usage)
}

// requireOwner writes a 403 unless the caller owns the company.
func requireOwner(w http.ResponseWriter, r *http.Request, message string) bool {
	if m := membershipFromContext(r.Context()); m == nil || m.Role != core.RoleOwner {
		writeError(w, r, message, "FORBIDDEN", http.StatusForbidden)
		return false
	}
	return true
}
