package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"sme-billing/internal/ai"
	"sme-billing/internal/app"
	"sme-billing/internal/config"
	"sme-billing/internal/core"
)

const (
	testSecret   = "test-secret"
	testAudience = "authenticated"
)

// fakeService implements the methods the tests exercise; anything else panics.
type fakeService struct {
	app.ApplicationService

	role        string // membership role; empty means not a member
	lastDoc     app.DocumentRequest
	lastExtract app.ExtractRequest
	lastCompany app.CompanyRequest
	err         error
}

func (f *fakeService) CheckMembership(_ context.Context, companyID int, userID string) (*core.Membership, error) {
	if f.role == "" {
		return nil, fmt.Errorf("company %d: %w", companyID, core.ErrForbidden)
	}
	return &core.Membership{CompanyID: companyID, UserID: userID, Role: f.role}, nil
}

func (f *fakeService) ListMyCompanies(_ context.Context, userID string) ([]core.Membership, error) {
	return []core.Membership{{CompanyID: 1, CompanyName: "ACME", UserID: userID, Role: core.RoleOwner}}, nil
}

func (f *fakeService) CreateQuotation(_ context.Context, companyID int, userID string, req app.DocumentRequest) (*core.Quotation, error) {
	f.lastDoc = req
	if f.err != nil {
		return nil, f.err
	}
	return &core.Quotation{ID: 9, CompanyID: companyID, Number: "QT-2025-00001", Status: core.QuotationDraft, CreatedBy: userID}, nil
}

func (f *fakeService) GetInvoice(_ context.Context, _ int, invoiceID int) (*core.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &core.Invoice{ID: invoiceID, Number: "INV-2025-00001"}, nil
}

func (f *fakeService) ExportInvoices(_ context.Context, _ int, req app.ExportRequest) (*app.ExportResult, error) {
	return &app.ExportResult{Filename: "invoices_" + req.From + ".xlsx", ContentType: "application/test", Data: []byte("xlsx")}, nil
}

func (f *fakeService) ExtractItems(_ context.Context, req app.ExtractRequest) (*ai.ItemsResult, error) {
	f.lastExtract = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ItemsResult{Items: []ai.ExtractedItem{{Description: "Design", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)}}}, nil
}

func (f *fakeService) AddMember(_ context.Context, companyID int, req app.AddMemberRequest) (*core.Membership, error) {
	return &core.Membership{CompanyID: companyID, UserID: req.UserID, Role: req.Role}, nil
}

func (f *fakeService) UpdateCompany(_ context.Context, companyID int, req app.CompanyRequest) (*core.Company, error) {
	f.lastCompany = req
	return &core.Company{ID: companyID, Name: req.Name, AIMonthlyQuota: 100}, nil
}

func (f *fakeService) BahtText(_ context.Context, amount string) (*app.BahtTextResult, error) {
	if amount == "bad" {
		return nil, fmt.Errorf("%w: invalid amount", core.ErrValidation)
	}
	return &app.BahtTextResult{Amount: amount, Text: "หนึ่งร้อยบาทถ้วน"}, nil
}

func newTestHandler(svc app.ApplicationService) http.Handler {
	return NewHandler(svc,
		config.ServerConfig{UploadLimitMB: 20},
		config.AuthConfig{JWTSecret: testSecret, JWTAudience: testAudience},
	)
}

func signToken(t *testing.T, secret, subject, audience string, expires time.Time) string {
	t.Helper()
	claims := jwtClaims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validToken(t *testing.T) string {
	return signToken(t, testSecret, "user-1", testAudience, time.Now().Add(time.Hour))
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRequireAuth(t *testing.T) {
	h := newTestHandler(&fakeService{})
	future := time.Now().Add(time.Hour)
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "other", "user-1", testAudience, future), http.StatusUnauthorized},
		{"wrong audience", signToken(t, testSecret, "user-1", "anon", future), http.StatusUnauthorized},
		{"expired", signToken(t, testSecret, "user-1", testAudience, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"no subject", signToken(t, testSecret, "", testAudience, future), http.StatusUnauthorized},
		{"valid", signToken(t, testSecret, "user-1", testAudience, future), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/me", tt.token, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestMeReturnsCompanies(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/me", validToken(t), nil)
	body := decodeBody[struct {
		UserID    string            `json:"user_id"`
		Companies []core.Membership `json:"companies"`
	}](t, rec)
	if body.UserID != "user-1" || len(body.Companies) != 1 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestCookieToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: validToken(t)})
	rec := httptest.NewRecorder()
	newTestHandler(&fakeService{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMembershipRequired(t *testing.T) {
	h := newTestHandler(&fakeService{})
	rec := do(t, h, http.MethodGet, "/api/companies/1/invoices/5", validToken(t), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := decodeBody[errorResponse](t, rec); body.Code != "FORBIDDEN" || body.RequestID == "" {
		t.Errorf("unexpected error body: %+v", body)
	}

	rec = do(t, h, http.MethodGet, "/api/companies/abc/invoices/5", validToken(t), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric company: status = %d, want 400", rec.Code)
	}
}

func TestGetInvoice(t *testing.T) {
	svc := &fakeService{role: core.RoleMember}
	h := newTestHandler(svc)

	rec := do(t, h, http.MethodGet, "/api/companies/1/invoices/5", validToken(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if inv := decodeBody[core.Invoice](t, rec); inv.ID != 5 {
		t.Errorf("ID = %d, want 5", inv.ID)
	}

	svc.err = fmt.Errorf("invoice 6: %w", core.ErrNotFound)
	rec = do(t, h, http.MethodGet, "/api/companies/1/invoices/6", validToken(t), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/companies/1/invoices/0", validToken(t), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero id: status = %d, want 400", rec.Code)
	}
}

func TestCreateQuotation(t *testing.T) {
	svc := &fakeService{role: core.RoleMember}
	h := newTestHandler(svc)

	body := map[string]any{
		"customer":   map[string]any{"name": "บริษัท ตัวอย่าง จำกัด", "tax_id": "0105512345678"},
		"issue_date": "2025-03-01",
		"items":      []map[string]any{{"description": "Design", "quantity": "2", "unit_price": "1500"}},
		"pricing":    map[string]any{"discount_type": "percent", "discount_value": "5"},
	}
	rec := do(t, h, http.MethodPost, "/api/companies/1/quotations", validToken(t), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if q := decodeBody[core.Quotation](t, rec); q.Number != "QT-2025-00001" || q.CreatedBy != "user-1" {
		t.Errorf("unexpected quotation: %+v", q)
	}
	if svc.lastDoc.Customer == nil || svc.lastDoc.Customer.TaxID != "0105512345678" {
		t.Errorf("customer not decoded: %+v", svc.lastDoc.Customer)
	}
	if !svc.lastDoc.Items[0].UnitPrice.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("unit price = %s", svc.lastDoc.Items[0].UnitPrice)
	}
}

func TestCreateQuotationValidation(t *testing.T) {
	h := newTestHandler(&fakeService{role: core.RoleMember})
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"no items", map[string]any{"customer_id": 1}, "items"},
		{"bad date", map[string]any{"customer_id": 1, "issue_date": "1/3/2025", "items": []map[string]any{{"description": "x"}}}, "issue_date"},
		{"bad discount type", map[string]any{"customer_id": 1, "items": []map[string]any{{"description": "x"}}, "pricing": map[string]any{"discount_type": "bogus"}}, "pricing.discount_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/companies/1/quotations", validToken(t), tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			body := decodeBody[errorResponse](t, rec)
			if _, ok := body.Details[tt.field]; !ok {
				t.Errorf("details %v do not mention %s", body.Details, tt.field)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/companies/1/quotations", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d, want 400", rec.Code)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("x: %w", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("x: %w", core.ErrValidation), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{fmt.Errorf("x: %w", core.ErrInvalidState), http.StatusConflict, "INVALID_STATE"},
		{fmt.Errorf("x: %w", core.ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("x: %w", core.ErrQuotaExceeded), http.StatusTooManyRequests, "QUOTA_EXCEEDED"},
		{fmt.Errorf("x: %w", core.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{app.ErrAIUnavailable, http.StatusServiceUnavailable, "AI_UNAVAILABLE"},
		{fmt.Errorf("x: %w", ai.ErrInvalidReply), http.StatusBadGateway, "AI_BAD_REPLY"},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			body := decodeBody[errorResponse](t, rec)
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(body.Error, "exploded") {
				t.Error("internal error message leaked to the client")
			}
		})
	}
}

func TestExportInvoices(t *testing.T) {
	h := newTestHandler(&fakeService{role: core.RoleMember})
	rec := do(t, h, http.MethodGet, "/api/companies/1/invoices/export?from=2025-01-01", validToken(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="invoices_2025-01-01.xlsx"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "xlsx" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/companies/1/invoices/export?from=01-01-2025", validToken(t), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date: status = %d, want 422", rec.Code)
	}
}

func TestExtractItemsMultipart(t *testing.T) {
	svc := &fakeService{role: core.RoleMember}
	h := newTestHandler(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("text", "Design 1 job 500 baht")
	part, _ := mw.CreateFormFile("images", "quote.png")
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/companies/1/ai/extract-items", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := svc.lastExtract
	if got.CompanyID != 1 || got.UserID != "user-1" || got.Text != "Design 1 job 500 baht" {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Filename != "quote.png" {
		t.Errorf("unexpected attachments: %+v", got.Attachments)
	}
	if res := decodeBody[ai.ItemsResult](t, rec); len(res.Items) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExtractItemsJSONAndQuota(t *testing.T) {
	svc := &fakeService{role: core.RoleMember, err: fmt.Errorf("%w: 3 of 3 calls used", core.ErrQuotaExceeded)}
	h := newTestHandler(svc)
	rec := do(t, h, http.MethodPost, "/api/companies/1/ai/extract-items", validToken(t), map[string]string{"text": "hello"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if svc.lastExtract.Text != "hello" {
		t.Errorf("text = %q", svc.lastExtract.Text)
	}
}

func TestAddMemberRequiresOwner(t *testing.T) {
	body := map[string]string{"user_id": "user-2"}

	rec := do(t, newTestHandler(&fakeService{role: core.RoleMember}), http.MethodPost, "/api/companies/1/members", validToken(t), body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member: status = %d, want 403", rec.Code)
	}

	rec = do(t, newTestHandler(&fakeService{role: core.RoleOwner}), http.MethodPost, "/api/companies/1/members", validToken(t), body)
	if rec.Code != http.StatusCreated {
		t.Errorf("owner: status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateCompanyRequiresOwner(t *testing.T) {
	body := map[string]any{"name": "ACME", "invoice_due_days": 45, "ai_monthly_quota": 0}

	member := &fakeService{role: core.RoleMember}
	rec := do(t, newTestHandler(member), http.MethodPut, "/api/companies/1/", validToken(t), body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member: status = %d, want 403", rec.Code)
	}
	if member.lastCompany.Name != "" {
		t.Error("member request reached the service")
	}

	owner := &fakeService{role: core.RoleOwner}
	rec = do(t, newTestHandler(owner), http.MethodPut, "/api/companies/1/", validToken(t), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner: status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if owner.lastCompany.Name != "ACME" || owner.lastCompany.InvoiceDueDays != 45 {
		t.Errorf("request = %+v", owner.lastCompany)
	}
	if got := decodeBody[core.Company](t, rec); got.AIMonthlyQuota != 100 {
		t.Errorf("AIMonthlyQuota = %d, want the quota left at 100", got.AIMonthlyQuota)
	}
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	got := decodeBody[errorResponse](t, rec)
	if got.Code != "INTERNAL_ERROR" || got.RequestID != "req-42" {
		t.Errorf("response = %+v", got)
	}
}

func TestBahtTextEndpoint(t *testing.T) {
	h := newTestHandler(&fakeService{})
	rec := do(t, h, http.MethodGet, "/api/tools/baht-text?amount=100", validToken(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if res := decodeBody[app.BahtTextResult](t, rec); res.Text != "หนึ่งร้อยบาทถ้วน" {
		t.Errorf("text = %q", res.Text)
	}

	if rec := do(t, h, http.MethodGet, "/api/tools/baht-text", validToken(t), nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing amount: status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/tools/baht-text?amount=bad", validToken(t), nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad amount: status = %d, want 422", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := NewHandler(&fakeService{}, config.ServerConfig{AllowedOrigins: "https://app.example.com"}, config.AuthConfig{JWTSecret: testSecret})
	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Errorf("preflight: status %d, headers %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin must not receive CORS headers")
	}
}
