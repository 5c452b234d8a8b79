package app

import (
	"github.com/shopspring/decimal"
)

// Request structs carry validator/v10 tags checked by the HTTP layer. Dates are
// YYYY-MM-DD strings; an empty date means "use the default".

// CompanyRequest is the input for creating or updating a company.
type CompanyRequest struct {
	Name                  string           `json:"name" validate:"required,max=200"`
	TaxID                 string           `json:"tax_id" validate:"omitempty,max=20"`
	BranchCode            string           `json:"branch_code" validate:"omitempty,max=20"`
	Address               string           `json:"address" validate:"max=1000"`
	Phone                 string           `json:"phone" validate:"max=50"`
	Email                 string           `json:"email" validate:"omitempty,email"`
	DefaultVATRate        *decimal.Decimal `json:"default_vat_rate"` // nil keeps the current rate (7 on create)
	QuotationValidityDays int              `json:"quotation_validity_days" validate:"gte=0,lte=365"`
	InvoiceDueDays        int              `json:"invoice_due_days" validate:"gte=0,lte=365"`
}

// AddMemberRequest grants a user access to a company.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required,max=200"`
	Role   string `json:"role" validate:"omitempty,oneof=owner member"`
}

// CustomerRequest is the input for resolving or updating a customer.
type CustomerRequest struct {
	Name          string `json:"name" validate:"max=300"`
	TaxID         string `json:"tax_id" validate:"max=20"`
	BranchCode    string `json:"branch_code" validate:"max=20"`
	Address       string `json:"address" validate:"max=1000"`
	Phone         string `json:"phone" validate:"max=50"`
	Email         string `json:"email" validate:"omitempty,email"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
}

// ListRequest pages through a simple list.
type ListRequest struct {
	Search string `json:"search" validate:"max=200"`
	Limit  int    `json:"limit" validate:"gte=0,lte=200"`
	Offset int    `json:"offset" validate:"gte=0"`
}

// ProductRequest is the input for creating or updating a product.
type ProductRequest struct {
	Code        string          `json:"code" validate:"required,max=50"`
	Name        string          `json:"name" validate:"required,max=300"`
	Description string          `json:"description" validate:"max=2000"`
	Unit        string          `json:"unit" validate:"max=50"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATable     *bool           `json:"vatable"` // nil means true
}

// LineItemRequest is one document line. When ProductID is set, empty fields are
// copied from the product.
type LineItemRequest struct {
	ProductID   *int            `json:"product_id" validate:"omitempty,gt=0"`
	Description string          `json:"description" validate:"max=1000"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit" validate:"max=50"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// PricingRequest holds the document-level pricing options. Nil VAT fields fall back to
// the company's default VAT rate.
type PricingRequest struct {
	DiscountType    string           `json:"discount_type" validate:"omitempty,oneof=fixed percent"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	VATEnabled      *bool            `json:"vat_enabled"`
	VATRate         *decimal.Decimal `json:"vat_rate"`
	VATInclusive    bool             `json:"vat_inclusive"`
	WithholdingRate decimal.Decimal  `json:"withholding_rate"`
}

// DocumentRequest is the input for creating or updating a quotation or invoice.
// Either CustomerID or Customer is required.
type DocumentRequest struct {
	CustomerID int               `json:"customer_id" validate:"gte=0"`
	Customer   *CustomerRequest  `json:"customer"`
	IssueDate  string            `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate    string            `json:"due_date" validate:"omitempty,datetime=2006-01-02"` // valid-until for quotations
	Items      []LineItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
	Pricing    PricingRequest    `json:"pricing"`
	Notes      string            `json:"notes" validate:"max=4000"`
}

// ListDocumentsRequest filters quotation and invoice lists.
type ListDocumentsRequest struct {
	Status     string `json:"status" validate:"max=20"`
	CustomerID int    `json:"customer_id" validate:"gte=0"`
	From       string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Search     string `json:"search" validate:"max=200"`
	Limit      int    `json:"limit" validate:"gte=0,lte=200"`
	Offset     int    `json:"offset" validate:"gte=0"`
}

// StatusRequest moves a document to another status.
type StatusRequest struct {
	Status string `json:"status" validate:"required,max=20"`
}

// PaymentRequest records money received against an invoice.
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    string          `json:"paid_on" validate:"omitempty,datetime=2006-01-02"`
	Method    string          `json:"method" validate:"omitempty,oneof=cash transfer cheque card other"`
	Reference string          `json:"reference" validate:"max=200"`
	Note      string          `json:"note" validate:"max=1000"`
}

// ExportRequest limits an export to an issue-date window.
type ExportRequest struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// CalculateRequest prices lines without a company or customer.
type CalculateRequest struct {
	Items   []LineItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
	Pricing PricingRequest    `json:"pricing"`
}

// ExtractRequest is the input for AI extraction.
type ExtractRequest struct {
	CompanyID   int
	UserID      string
	Text        string
	Attachments []Attachment
}
