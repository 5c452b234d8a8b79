package app

import (
	"context"
	"errors"
	"time"

	"sme-billing/internal/ai"
	"sme-billing/internal/core"
)

// ErrAIUnavailable is returned by the extraction methods when no AI endpoint is configured.
var ErrAIUnavailable = errors.New("ai extraction is not configured")

// Attachment is an uploaded image sent with an extraction request.
// Supported types are JPG, PNG and WEBP; the gateway sniffs the content.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// ApplicationService is the single interface the HTTP API and the CLI call.
// It decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
type ApplicationService interface {
	// CreateCompany creates a company owned by userID.
	CreateCompany(ctx context.Context, userID string, req CompanyRequest) (*core.Company, error)

	// ListMyCompanies returns the companies userID belongs to.
	ListMyCompanies(ctx context.Context, userID string) ([]core.Membership, error)

	GetCompany(ctx context.Context, companyID int) (*core.Company, error)
	UpdateCompany(ctx context.Context, companyID int, req CompanyRequest) (*core.Company, error)

	// SetAIQuota sets the company's monthly AI extraction quota (0 = unlimited).
	SetAIQuota(ctx context.Context, companyID, quota int) (*core.Company, error)
	AddMember(ctx context.Context, companyID int, req AddMemberRequest) (*core.Membership, error)

	// CheckMembership returns core.ErrForbidden when userID cannot act on the company.
	CheckMembership(ctx context.Context, companyID int, userID string) (*core.Membership, error)

	// ResolveCustomer finds, merges into, or creates a customer record.
	ResolveCustomer(ctx context.Context, companyID int, req CustomerRequest) (*core.ResolveResult, error)
	GetCustomer(ctx context.Context, companyID, customerID int) (*core.Customer, error)
	ListCustomers(ctx context.Context, companyID int, req ListRequest) (*CustomerListResult, error)
	UpdateCustomer(ctx context.Context, companyID, customerID int, req CustomerRequest) (*core.Customer, error)
	DeleteCustomer(ctx context.Context, companyID, customerID int) error

	CreateProduct(ctx context.Context, companyID int, req ProductRequest) (*core.Product, error)
	GetProduct(ctx context.Context, companyID, productID int) (*core.Product, error)
	ListProducts(ctx context.Context, companyID int, search string, includeInactive bool) (*ProductListResult, error)
	UpdateProduct(ctx context.Context, companyID, productID int, req ProductRequest) (*core.Product, error)
	DeactivateProduct(ctx context.Context, companyID, productID int) error

	// CreateQuotation prices and numbers a new draft quotation. Omitted VAT settings
	// fall back to the company defaults.
	CreateQuotation(ctx context.Context, companyID int, userID string, req DocumentRequest) (*core.Quotation, error)
	GetQuotation(ctx context.Context, companyID, quotationID int) (*core.Quotation, error)
	ListQuotations(ctx context.Context, companyID int, req ListDocumentsRequest) (*QuotationListResult, error)
	UpdateQuotation(ctx context.Context, companyID, quotationID int, req DocumentRequest) (*core.Quotation, error)
	DeleteQuotation(ctx context.Context, companyID, quotationID int) error
	SetQuotationStatus(ctx context.Context, companyID, quotationID int, status string) (*core.Quotation, error)

	// ConvertQuotation creates a draft invoice from the quotation.
	ConvertQuotation(ctx context.Context, companyID, quotationID int, userID string) (*core.Invoice, error)

	// ExpireQuotations marks open quotations past their validity date as expired.
	ExpireQuotations(ctx context.Context, asOf time.Time) (int64, error)

	CreateInvoice(ctx context.Context, companyID int, userID string, req DocumentRequest) (*core.Invoice, error)
	GetInvoice(ctx context.Context, companyID, invoiceID int) (*core.Invoice, error)
	ListInvoices(ctx context.Context, companyID int, req ListDocumentsRequest) (*InvoiceListResult, error)
	UpdateInvoice(ctx context.Context, companyID, invoiceID int, req DocumentRequest) (*core.Invoice, error)
	DeleteInvoice(ctx context.Context, companyID, invoiceID int) error
	SetInvoiceStatus(ctx context.Context, companyID, invoiceID int, status string) (*core.Invoice, error)
	RecordPayment(ctx context.Context, companyID, invoiceID int, userID string, req PaymentRequest) (*core.Invoice, error)

	// ExportInvoices renders every invoice in the date window as an XLSX workbook.
	ExportInvoices(ctx context.Context, companyID int, req ExportRequest) (*ExportResult, error)
	ExportQuotations(ctx context.Context, companyID int, req ExportRequest) (*ExportResult, error)

	// Calculate prices a set of lines without saving anything.
	Calculate(ctx context.Context, req CalculateRequest) (*CalculationResult, error)

	// BahtText spells an amount in Thai baht words.
	BahtText(ctx context.Context, amount string) (*BahtTextResult, error)

	// ExtractItems reads line items from pasted text and images via the AI gateway.
	ExtractItems(ctx context.Context, req ExtractRequest) (*ai.ItemsResult, error)

	// ExtractCustomer reads customer details from pasted text and images via the AI gateway.
	ExtractCustomer(ctx context.Context, req ExtractRequest) (*core.CustomerInput, error)

	// AIUsage reports the company's extraction calls for the current month.
	AIUsage(ctx context.Context, companyID int) (*ai.UsageSummary, error)
}
