package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"

	"sme-billing/internal/ai"
	"sme-billing/internal/app"
)

// multipartMemory is how much of a multipart form is held in memory before spilling to disk.
const multipartMemory = 32 << 20

// extractRequest reads the text and images of an extraction call. It accepts either a
// multipart form (field "text", files "images" or "file") or a JSON body {"text": "..."}.
func (h *Handler) extractRequest(w http.ResponseWriter, r *http.Request) (app.ExtractRequest, bool) {
	req := app.ExtractRequest{CompanyID: companyID(r), UserID: userID(r)}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body struct {
			Text string `json:"text"`
		}
		if !decodeJSON(w, r, &body) {
			return req, false
		}
		req.Text = body.Text
		return req, true
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "upload too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return req, false
		}
		writeError(w, r, "malformed multipart form", "BAD_REQUEST", http.StatusBadRequest)
		return req, false
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	req.Text = r.FormValue("text")
	files := slices.Concat(r.MultipartForm.File["images"], r.MultipartForm.File["file"])
	if len(files) > ai.MaxImages {
		writeError(w, r, fmt.Sprintf("too many files (max %d)", ai.MaxImages), "BAD_REQUEST", http.StatusBadRequest)
		return req, false
	}
	for _, fh := range files {
		if fh.Size > ai.MaxImageBytes {
			writeError(w, r, fmt.Sprintf("%s exceeds maximum size of %d MB", fh.Filename, ai.MaxImageBytes>>20),
				"FILE_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return req, false
		}
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, "failed to open uploaded file", "INTERNAL_ERROR", http.StatusInternalServerError)
			return req, false
		}
		data, err := io.ReadAll(io.LimitReader(f, ai.MaxImageBytes+1))
		f.Close()
		if err != nil {
			writeError(w, r, "failed to read uploaded file", "INTERNAL_ERROR", http.StatusInternalServerError)
			return req, false
		}
		req.Attachments = append(req.Attachments, app.Attachment{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return req, true
}

// extractItems handles POST /ai/extract-items.
func (h *Handler) extractItems(w http.ResponseWriter, r *http.Request) {
	req, ok := h.extractRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ExtractItems(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// extractCustomer handles POST /ai/extract-customer.
func (h *Handler) extractCustomer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.extractRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ExtractCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"customer": res})
}
