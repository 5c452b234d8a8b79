package web

import (
	"net/http"
	"strconv"

	"sme-billing/internal/app"
	"sme-billing/internal/core"
)

// listCustomers handles GET /customers?search=&limit=&offset=.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	req := app.ListRequest{Search: r.URL.Query().Get("search")}
	var err error
	if req.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if req.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if !h.valid(w, r, &req) {
		return
	}
	res, err := h.svc.ListCustomers(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Customers == nil {
		res.Customers = []core.Customer{}
	}
	writeJSON(w, res)
}

// resolveCustomer handles POST /customers/resolve: find by tax ID or name, merge, or create.
func (h *Handler) resolveCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CustomerRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	res, err := h.svc.ResolveCustomer(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == core.ResolveCreated {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, res)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetCustomer(r.Context(), companyID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.CustomerRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCustomer(r.Context(), companyID(r), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCustomer(r.Context(), companyID(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listProducts handles GET /products?search=&include_inactive=true.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	res, err := h.svc.ListProducts(r.Context(), companyID(r), r.URL.Query().Get("search"), includeInactive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Products == nil {
		res.Products = []core.Product{}
	}
	writeJSON(w, res)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req app.ProductRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), companyID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.ProductRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), companyID(r), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// deactivateProduct handles DELETE /products/{id}. Products are hidden, not removed.
func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeactivateProduct(r.Context(), companyID(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
