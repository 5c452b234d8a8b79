package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sme-billing/internal/ai"
	"sme-billing/internal/core"
	"sme-billing/internal/thaitext"
)

const (
	dateLayout         = "2006-01-02"
	defaultAIQuota     = 100
	exportPageSize     = 200
	maxExportDocuments = 20000
)

// Extractor is the AI gateway as seen by the application layer.
type Extractor interface {
	ExtractItems(ctx context.Context, req ai.ExtractRequest) (*ai.ItemsResult, error)
	ExtractCustomer(ctx context.Context, req ai.ExtractRequest) (*core.CustomerInput, error)
	Usage(ctx context.Context, companyID int) (*ai.UsageSummary, error)
}

type appService struct {
	companies  core.CompanyService
	customers  core.CustomerService
	products   core.ProductService
	quotations core.QuotationService
	invoices   core.InvoiceService
	extractor  Extractor // nil when no AI endpoint is configured
}

// NewAppService constructs an appService that satisfies ApplicationService.
// extractor may be nil, in which case the extraction methods return ErrAIUnavailable.
func NewAppService(
	companies core.CompanyService,
	customers core.CustomerService,
	products core.ProductService,
	quotations core.QuotationService,
	invoices core.InvoiceService,
	extractor Extractor,
) ApplicationService {
	return &appService{
		companies:  companies,
		customers:  customers,
		products:   products,
		quotations: quotations,
		invoices:   invoices,
		extractor:  extractor,
	}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrValidation, fmt.Sprintf(format, args...))
}

// parseDate parses an optional YYYY-MM-DD field. An empty value yields nil.
func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, validationError("%s must be YYYY-MM-DD, got %q", field, value)
	}
	return &t, nil
}

// ── Companies ────────────────────────────────────────────────────────────────

func (r CompanyRequest) settings(base *core.Company) core.CompanySettings {
	cs := core.CompanySettings{
		Name:                  r.Name,
		TaxID:                 r.TaxID,
		BranchCode:            r.BranchCode,
		Address:               r.Address,
		Phone:                 r.Phone,
		Email:                 r.Email,
		DefaultVATRate:        core.DefaultVATRate,
		QuotationValidityDays: r.QuotationValidityDays,
		InvoiceDueDays:        r.InvoiceDueDays,
		AIMonthlyQuota:        defaultAIQuota,
	}
	if base != nil {
		cs.DefaultVATRate = base.DefaultVATRate
		cs.AIMonthlyQuota = base.AIMonthlyQuota
		if cs.QuotationValidityDays == 0 {
			cs.QuotationValidityDays = base.QuotationValidityDays
		}
		if cs.InvoiceDueDays == 0 {
			cs.InvoiceDueDays = base.InvoiceDueDays
		}
	} else if cs.InvoiceDueDays == 0 {
		cs.InvoiceDueDays = 30
	}
	if r.DefaultVATRate != nil {
		cs.DefaultVATRate = *r.DefaultVATRate
	}
	return cs
}

func (s *appService) CreateCompany(ctx context.Context, userID string, req CompanyRequest) (*core.Company, error) {
	return s.companies.CreateCompany(ctx, userID, req.settings(nil))
}

func (s *appService) ListMyCompanies(ctx context.Context, userID string) ([]core.Membership, error) {
	return s.companies.ListCompaniesForUser(ctx, userID)
}

func (s *appService) GetCompany(ctx context.Context, companyID int) (*core.Company, error) {
	return s.companies.GetCompany(ctx, companyID)
}

func (s *appService) UpdateCompany(ctx context.Context, companyID int, req CompanyRequest) (*core.Company, error) {
	current, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.companies.UpdateCompany(ctx, companyID, req.settings(current))
}

// SetAIQuota is an operator action; the HTTP API does not expose it.
func (s *appService) SetAIQuota(ctx context.Context, companyID, quota int) (*core.Company, error) {
	return s.companies.SetAIQuota(ctx, companyID, quota)
}

func (s *appService) AddMember(ctx context.Context, companyID int, req AddMemberRequest) (*core.Membership, error) {
	role := req.Role
	if role == "" {
		role = core.RoleMember
	}
	return s.companies.AddMember(ctx, companyID, strings.TrimSpace(req.UserID), role)
}

func (s *appService) CheckMembership(ctx context.Context, companyID int, userID string) (*core.Membership, error) {
	return s.companies.GetMembership(ctx, companyID, userID)
}

// ── Customers ────────────────────────────────────────────────────────────────

func (r CustomerRequest) input() core.CustomerInput {
	return core.CustomerInput{
		Name:          r.Name,
		TaxID:         r.TaxID,
		BranchCode:    r.BranchCode,
		Address:       r.Address,
		Phone:         r.Phone,
		Email:         r.Email,
		ContactPerson: r.ContactPerson,
	}
}

func (s *appService) ResolveCustomer(ctx context.Context, companyID int, req CustomerRequest) (*core.ResolveResult, error) {
	return s.customers.ResolveCustomer(ctx, companyID, req.input())
}

func (s *appService) GetCustomer(ctx context.Context, companyID, customerID int) (*core.Customer, error) {
	return s.customers.GetCustomer(ctx, companyID, customerID)
}

func (s *appService) ListCustomers(ctx context.Context, companyID int, req ListRequest) (*CustomerListResult, error) {
	customers, err := s.customers.ListCustomers(ctx, companyID, strings.TrimSpace(req.Search), req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) UpdateCustomer(ctx context.Context, companyID, customerID int, req CustomerRequest) (*core.Customer, error) {
	return s.customers.UpdateCustomer(ctx, companyID, customerID, req.input())
}

func (s *appService) DeleteCustomer(ctx context.Context, companyID, customerID int) error {
	return s.customers.DeleteCustomer(ctx, companyID, customerID)
}

// ── Products ─────────────────────────────────────────────────────────────────

func (r ProductRequest) input() core.ProductInput {
	vatable := true
	if r.VATable != nil {
		vatable = *r.VATable
	}
	return core.ProductInput{
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Unit:        r.Unit,
		UnitPrice:   r.UnitPrice,
		VATable:     vatable,
	}
}

func (s *appService) CreateProduct(ctx context.Context, companyID int, req ProductRequest) (*core.Product, error) {
	return s.products.CreateProduct(ctx, companyID, req.input())
}

func (s *appService) GetProduct(ctx context.Context, companyID, productID int) (*core.Product, error) {
	return s.products.GetProduct(ctx, companyID, productID)
}

func (s *appService) ListProducts(ctx context.Context, companyID int, search string, includeInactive bool) (*ProductListResult, error) {
	products, err := s.products.ListProducts(ctx, companyID, strings.TrimSpace(search), includeInactive)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) UpdateProduct(ctx context.Context, companyID, productID int, req ProductRequest) (*core.Product, error) {
	return s.products.UpdateProduct(ctx, companyID, productID, req.input())
}

func (s *appService) DeactivateProduct(ctx context.Context, companyID, productID int) error {
	return s.products.DeactivateProduct(ctx, companyID, productID)
}

// ── Pricing helpers ──────────────────────────────────────────────────────────

// pricingConfig applies defaults: VAT on at the company rate unless the request says otherwise.
func pricingConfig(r PricingRequest, defaultRate decimal.Decimal) core.PricingConfig {
	cfg := core.PricingConfig{
		DiscountType:    core.DiscountType(r.DiscountType),
		DiscountValue:   r.DiscountValue,
		VATEnabled:      true,
		VATRate:         defaultRate,
		VATInclusive:    r.VATInclusive,
		WithholdingRate: r.WithholdingRate,
	}
	if r.VATEnabled != nil {
		cfg.VATEnabled = *r.VATEnabled
	}
	if r.VATRate != nil {
		cfg.VATRate = *r.VATRate
	}
	return cfg
}

func lineItem(r LineItemRequest) core.LineItem {
	return core.LineItem{
		ProductID:   r.ProductID,
		Description: strings.TrimSpace(r.Description),
		Quantity:    r.Quantity,
		Unit:        strings.TrimSpace(r.Unit),
		UnitPrice:   r.UnitPrice,
	}
}

// lineItems converts request lines, filling blank fields from the referenced products.
func (s *appService) lineItems(ctx context.Context, companyID int, reqs []LineItemRequest) ([]core.LineItem, error) {
	items := make([]core.LineItem, len(reqs))
	products := make(map[int]*core.Product)
	for i, r := range reqs {
		item := lineItem(r)
		if r.ProductID != nil {
			p, ok := products[*r.ProductID]
			if !ok {
				var err error
				p, err = s.products.GetProduct(ctx, companyID, *r.ProductID)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", i+1, err)
				}
				products[*r.ProductID] = p
			}
			if item.Description == "" {
				item.Description = p.Name
			}
			if item.Unit == "" {
				item.Unit = p.Unit
			}
			if item.UnitPrice.IsZero() {
				item.UnitPrice = p.UnitPrice
			}
		}
		items[i] = item
	}
	return items, nil
}

func (s *appService) documentInput(ctx context.Context, companyID int, req DocumentRequest) (core.DocumentInput, error) {
	var in core.DocumentInput
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return in, err
	}
	issue, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		return in, err
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return in, err
	}
	items, err := s.lineItems(ctx, companyID, req.Items)
	if err != nil {
		return in, err
	}

	in = core.DocumentInput{
		CustomerID: req.CustomerID,
		DueDate:    due,
		Items:      items,
		Pricing:    pricingConfig(req.Pricing, company.DefaultVATRate),
		Notes:      strings.TrimSpace(req.Notes),
	}
	if issue != nil {
		in.IssueDate = *issue
	}
	if req.Customer != nil && req.CustomerID == 0 {
		c := req.Customer.input()
		in.Customer = &c
	}
	return in, nil
}

func documentFilter(req ListDocumentsRequest) (core.DocumentListFilter, error) {
	from, err := parseDate("from", req.From)
	if err != nil {
		return core.DocumentListFilter{}, err
	}
	to, err := parseDate("to", req.To)
	if err != nil {
		return core.DocumentListFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return core.DocumentListFilter{}, validationError("to date is before from date")
	}
	return core.DocumentListFilter{
		Status:     strings.TrimSpace(req.Status),
		CustomerID: req.CustomerID,
		From:       from,
		To:         to,
		Search:     strings.TrimSpace(req.Search),
		Limit:      req.Limit,
		Offset:     req.Offset,
	}, nil
}

// ── Quotations ───────────────────────────────────────────────────────────────

var quotationStatuses = map[string]core.QuotationStatus{
	string(core.QuotationDraft):    core.QuotationDraft,
	string(core.QuotationSent):     core.QuotationSent,
	string(core.QuotationAccepted): core.QuotationAccepted,
	string(core.QuotationRejected): core.QuotationRejected,
	string(core.QuotationExpired):  core.QuotationExpired,
}

func (s *appService) CreateQuotation(ctx context.Context, companyID int, userID string, req DocumentRequest) (*core.Quotation, error) {
	in, err := s.documentInput(ctx, companyID, req)
	if err != nil {
		return nil, err
	}
	return s.quotations.CreateQuotation(ctx, companyID, userID, in)
}

func (s *appService) GetQuotation(ctx context.Context, companyID, quotationID int) (*core.Quotation, error) {
	return s.quotations.GetQuotation(ctx, companyID, quotationID)
}

func (s *appService) ListQuotations(ctx context.Context, companyID int, req ListDocumentsRequest) (*QuotationListResult, error) {
	filter, err := documentFilter(req)
	if err != nil {
		return nil, err
	}
	quotations, err := s.quotations.ListQuotations(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	return &QuotationListResult{Quotations: quotations}, nil
}

func (s *appService) UpdateQuotation(ctx context.Context, companyID, quotationID int, req DocumentRequest) (*core.Quotation, error) {
	in, err := s.documentInput(ctx, companyID, req)
	if err != nil {
		return nil, err
	}
	return s.quotations.UpdateQuotation(ctx, companyID, quotationID, in)
}

func (s *appService) DeleteQuotation(ctx context.Context, companyID, quotationID int) error {
	return s.quotations.DeleteQuotation(ctx, companyID, quotationID)
}

func (s *appService) SetQuotationStatus(ctx context.Context, companyID, quotationID int, status string) (*core.Quotation, error) {
	st, ok := quotationStatuses[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return nil, validationError("unknown quotation status %q", status)
	}
	return s.quotations.SetQuotationStatus(ctx, companyID, quotationID, st)
}

func (s *appService) ConvertQuotation(ctx context.Context, companyID, quotationID int, userID string) (*core.Invoice, error) {
	return s.quotations.ConvertToInvoice(ctx, companyID, quotationID, userID)
}

func (s *appService) ExpireQuotations(ctx context.Context, asOf time.Time) (int64, error) {
	return s.quotations.ExpireQuotations(ctx, asOf)
}

// ── Invoices ─────────────────────────────────────────────────────────────────

var invoiceStatuses = map[string]core.InvoiceStatus{
	string(core.InvoiceDraft):         core.InvoiceDraft,
	string(core.InvoiceIssued):        core.InvoiceIssued,
	string(core.InvoicePartiallyPaid): core.InvoicePartiallyPaid,
	string(core.InvoicePaid):          core.InvoicePaid,
	string(core.InvoiceCancelled):     core.InvoiceCancelled,
}

func (s *appService) CreateInvoice(ctx context.Context, companyID int, userID string, req DocumentRequest) (*core.Invoice, error) {
	in, err := s.documentInput(ctx, companyID, req)
	if err != nil {
		return nil, err
	}
	return s.invoices.CreateInvoice(ctx, companyID, userID, in)
}

func (s *appService) GetInvoice(ctx context.Context, companyID, invoiceID int) (*core.Invoice, error) {
	return s.invoices.GetInvoice(ctx, companyID, invoiceID)
}

func (s *appService) ListInvoices(ctx context.Context, companyID int, req ListDocumentsRequest) (*InvoiceListResult, error) {
	filter, err := documentFilter(req)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListInvoices(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) UpdateInvoice(ctx context.Context, companyID, invoiceID int, req DocumentRequest) (*core.Invoice, error) {
	in, err := s.documentInput(ctx, companyID, req)
	if err != nil {
		return nil, err
	}
	return s.invoices.UpdateInvoice(ctx, companyID, invoiceID, in)
}

func (s *appService) DeleteInvoice(ctx context.Context, companyID, invoiceID int) error {
	return s.invoices.DeleteInvoice(ctx, companyID, invoiceID)
}

func (s *appService) SetInvoiceStatus(ctx context.Context, companyID, invoiceID int, status string) (*core.Invoice, error) {
	st, ok := invoiceStatuses[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return nil, validationError("unknown invoice status %q", status)
	}
	return s.invoices.SetInvoiceStatus(ctx, companyID, invoiceID, st)
}

func (s *appService) RecordPayment(ctx context.Context, companyID, invoiceID int, userID string, req PaymentRequest) (*core.Invoice, error) {
	paidOn, err := parseDate("paid_on", req.PaidOn)
	if err != nil {
		return nil, err
	}
	in := core.PaymentInput{
		Amount:    req.Amount,
		Method:    strings.TrimSpace(req.Method),
		Reference: strings.TrimSpace(req.Reference),
		Note:      strings.TrimSpace(req.Note),
	}
	if paidOn != nil {
		in.PaidOn = *paidOn
	}
	return s.invoices.RecordPayment(ctx, companyID, invoiceID, userID, in)
}

// ── Tools ────────────────────────────────────────────────────────────────────

func (s *appService) Calculate(_ context.Context, req CalculateRequest) (*CalculationResult, error) {
	if len(req.Items) == 0 {
		return nil, validationError("at least one item is required")
	}
	items := make([]core.LineItem, len(req.Items))
	for i, r := range req.Items {
		items[i] = lineItem(r)
	}
	cfg := pricingConfig(req.Pricing, core.DefaultVATRate)
	calc, err := core.Calculate(items, cfg)
	if err != nil {
		return nil, err
	}
	return &CalculationResult{
		Lines:    calc.Lines,
		Pricing:  cfg,
		Totals:   calc.Totals,
		BahtText: thaitext.BahtText(calc.Totals.Total),
	}, nil
}

func (s *appService) BahtText(_ context.Context, amount string) (*BahtTextResult, error) {
	d, err := thaitext.ParseAmount(amount)
	if err != nil {
		return nil, validationError("%v", err)
	}
	return &BahtTextResult{
		Amount:    d.StringFixed(2),
		Formatted: thaitext.FormatAmount(d),
		Text:      thaitext.BahtText(d),
	}, nil
}
