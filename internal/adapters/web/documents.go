package web

import (
	"fmt"
	"net/http"
	"strconv"

	"sme-billing/internal/app"
	"sme-billing/internal/core"
)

// listDocumentsRequest reads ?status=&customer_id=&from=&to=&search=&limit=&offset=.
func (h *Handler) listDocumentsRequest(w http.ResponseWriter, r *http.Request) (app.ListDocumentsRequest, bool) {
	q := r.URL.Query()
	req := app.ListDocumentsRequest{
		Status: q.Get("status"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Search: q.Get("search"),
	}
	for name, dst := range map[string]*int{"customer_id": &req.CustomerID, "limit": &req.Limit, "offset": &req.Offset} {
		n, err := queryInt(r, name)
		if err != nil {
			writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return req, false
		}
		*dst = n
	}
	return req, h.valid(w, r, &req)
}

func (h *Handler) exportRequest(w http.ResponseWriter, r *http.Request) (app.ExportRequest, bool) {
	req := app.ExportRequest{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	return req, h.valid(w, r, &req)
}

func writeExport(w http.ResponseWriter, res *app.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	_, _ = w.Write(res.Data)
}

// ── Quotations ───────────────────────────────────────────────────────────────

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	req, ok := h.listDocumentsRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ListQuotations(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Quotations == nil {
		res.Quotations = []core.Quotation{}
	}
	writeJSON(w, res)
}

func (h *Handler) createQuotation(w http.ResponseWriter, r *http.Request) {
	var req app.DocumentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	q, err := h.svc.CreateQuotation(r.Context(), companyID(r), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, q)
}

func (h *Handler) getQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.svc.GetQuotation(r.Context(), companyID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, q)
}

func (h *Handler) updateQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.DocumentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	q, err := h.svc.UpdateQuotation(r.Context(), companyID(r), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, q)
}

func (h *Handler) deleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteQuotation(r.Context(), companyID(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setQuotationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.StatusRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	q, err := h.svc.SetQuotationStatus(r.Context(), companyID(r), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, q)
}

// convertQuotation handles POST /quotations/{id}/convert and returns the new draft invoice.
func (h *Handler) convertQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.ConvertQuotation(r.Context(), companyID(r), id, userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}

func (h *Handler) exportQuotations(w http.ResponseWriter, r *http.Request) {
	req, ok := h.exportRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ExportQuotations(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeExport(w, res)
}

// ── Invoices ─────────────────────────────────────────────────────────────────

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	req, ok := h.listDocumentsRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ListInvoices(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Invoices == nil {
		res.Invoices = []core.Invoice{}
	}
	writeJSON(w, res)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.DocumentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), companyID(r), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), companyID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.DocumentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	inv, err := h.svc.UpdateInvoice(r.Context(), companyID(r), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteInvoice(r.Context(), companyID(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.StatusRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	inv, err := h.svc.SetInvoiceStatus(r.Context(), companyID(r), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.PaymentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	inv, err := h.svc.RecordPayment(r.Context(), companyID(r), id, userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}

func (h *Handler) exportInvoices(w http.ResponseWriter, r *http.Request) {
	req, ok := h.exportRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ExportInvoices(r.Context(), companyID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeExport(w, res)
}
