package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"sme-billing/internal/app"
	"sme-billing/internal/config"
)

const jsonBodyLimit = 1 << 20 // 1 MB

// Handler holds the ApplicationService, the validator and the auth settings.
type Handler struct {
	svc         app.ApplicationService
	validate    *validator.Validate
	jwtSecret   []byte
	jwtAudience string
	uploadLimit int64
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, server config.ServerConfig, auth config.AuthConfig) http.Handler {
	uploadLimit := int64(server.UploadLimitMB) << 20
	if uploadLimit <= 0 {
		uploadLimit = 50 << 20
	}
	h := &Handler{
		svc:         svc,
		validate:    newValidator(),
		jwtSecret:   []byte(auth.JWTSecret),
		jwtAudience: auth.JWTAudience,
		uploadLimit: uploadLimit,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(server.AllowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(jsonBodyLimit))
			r.Get("/api/me", h.me)
			r.Get("/api/companies", h.listCompanies)
			r.Post("/api/companies", h.createCompany)
			r.Post("/api/tools/calculate", h.calculate)
			r.Get("/api/tools/baht-text", h.bahtText)
		})

		r.Route("/api/companies/{companyID}", func(r chi.Router) {
			r.Use(h.RequireMembership)

			// Image uploads: body limit is the configured upload size.
			r.Group(func(r chi.Router) {
				r.Use(RequestBodyLimit(h.uploadLimit))
				r.Post("/ai/extract-items", h.extractItems)
				r.Post("/ai/extract-customer", h.extractCustomer)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequestBodyLimit(jsonBodyLimit))

				// ── Company ───────────────────────────────────────────────────
				r.Get("/", h.getCompany)
				r.Put("/", h.updateCompany)
				r.Post("/members", h.addMember)
				r.Get("/ai/usage", h.aiUsage)

				// ── Customers ─────────────────────────────────────────────────
				r.Get("/customers", h.listCustomers)
				r.Post("/customers/resolve", h.resolveCustomer)
				r.Get("/customers/{id}", h.getCustomer)
				r.Put("/customers/{id}", h.updateCustomer)
				r.Delete("/customers/{id}", h.deleteCustomer)

				// ── Products ──────────────────────────────────────────────────
				r.Get("/products", h.listProducts)
				r.Post("/products", h.createProduct)
				r.Get("/products/{id}", h.getProduct)
				r.Put("/products/{id}", h.updateProduct)
				r.Delete("/products/{id}", h.deactivateProduct)

				// ── Quotations ────────────────────────────────────────────────
				r.Get("/quotations", h.listQuotations)
				r.Post("/quotations", h.createQuotation)
				r.Get("/quotations/export", h.exportQuotations)
				r.Get("/quotations/{id}", h.getQuotation)
				r.Put("/quotations/{id}", h.updateQuotation)
				r.Delete("/quotations/{id}", h.deleteQuotation)
				r.Post("/quotations/{id}/status", h.setQuotationStatus)
				r.Post("/quotations/{id}/convert", h.convertQuotation)

				// ── Invoices ──────────────────────────────────────────────────
				r.Get("/invoices", h.listInvoices)
				r.Post("/invoices", h.createInvoice)
				r.Get("/invoices/export", h.exportInvoices)
				r.Get("/invoices/{id}", h.getInvoice)
				r.Put("/invoices/{id}", h.updateInvoice)
				r.Delete("/invoices/{id}", h.deleteInvoice)
				r.Post("/invoices/{id}/status", h.setInvoiceStatus)
				r.Post("/invoices/{id}/payments", h.recordPayment)
			})
		})
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// decodeValid decodes the body and runs the struct's validate tags.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	return h.valid(w, r, v)
}

// valid runs validate tags on v and writes a 422 listing the failing fields.
func (h *Handler) valid(w http.ResponseWriter, r *http.Request, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.SplitN(fe.Namespace(), ".", 2)
		key := fe.Field()
		if len(field) == 2 {
			key = field[1]
		}
		if fe.Param() != "" {
			details[key] = fe.Tag() + "=" + fe.Param()
		} else {
			details[key] = fe.Tag()
		}
	}
	writeErrorDetails(w, r, "request validation failed", "VALIDATION_ERROR", http.StatusUnprocessableEntity, details)
	return false
}

// companyID returns the {companyID} URL parameter checked by RequireMembership.
func companyID(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "companyID"))
	return id
}

// pathID parses the {id} URL parameter and writes a 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer", name)
	}
	return n, nil
}

// userID returns the authenticated caller's subject.
func userID(r *http.Request) string {
	if c := authFromContext(r.Context()); c != nil {
		return c.UserID
	}
	return ""
}
