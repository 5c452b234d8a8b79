package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document number prefixes.
const (
	QuotationPrefix = "QT"
	InvoicePrefix   = "INV"
)

// QuotationStatus is the lifecycle state of a quotation.
type QuotationStatus string

const (
	QuotationDraft    QuotationStatus = "draft"
	QuotationSent     QuotationStatus = "sent"
	QuotationAccepted QuotationStatus = "accepted"
	QuotationRejected QuotationStatus = "rejected"
	QuotationExpired  QuotationStatus = "expired"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceIssued        InvoiceStatus = "issued"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceCancelled     InvoiceStatus = "cancelled"
)

// DocumentInput is the editable content shared by quotations and invoices. Either
// CustomerID or Customer must be set; Customer is run through the resolver on save.
type DocumentInput struct {
	CustomerID int
	Customer   *CustomerInput
	IssueDate  time.Time  // zero means today
	DueDate    *time.Time // valid-until for quotations; nil applies the company default
	Items      []LineItem
	Pricing    PricingConfig
	Notes      string
}

// DocumentCustomer is the customer snapshot returned with a document.
type DocumentCustomer struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	TaxID      string `json:"tax_id"`
	BranchCode string `json:"branch_code"`
	Address    string `json:"address"`
}

// Quotation is a price proposal sent to a customer.
type Quotation struct {
	ID         int              `json:"id"`
	CompanyID  int              `json:"company_id"`
	Number     string           `json:"number"`
	Customer   DocumentCustomer `json:"customer"`
	IssueDate  time.Time        `json:"issue_date"`
	ValidUntil time.Time        `json:"valid_until"`
	Status     QuotationStatus  `json:"status"`
	PricingConfig
	Totals
	BahtText  string     `json:"baht_text"`
	Notes     string     `json:"notes"`
	InvoiceID *int       `json:"invoice_id,omitempty"`
	CreatedBy string     `json:"created_by"`
	Items     []LineItem `json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Invoice is a tax invoice with payment tracking.
type Invoice struct {
	ID          int              `json:"id"`
	CompanyID   int              `json:"company_id"`
	Number      string           `json:"number"`
	Customer    DocumentCustomer `json:"customer"`
	QuotationID *int             `json:"quotation_id,omitempty"`
	IssueDate   time.Time        `json:"issue_date"`
	DueDate     time.Time        `json:"due_date"`
	Status      InvoiceStatus    `json:"status"`
	PricingConfig
	Totals
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	BahtText    string          `json:"baht_text"`
	Notes       string          `json:"notes"`
	CreatedBy   string          `json:"created_by"`
	Items       []LineItem      `json:"items,omitempty"`
	Payments    []Payment       `json:"payments,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Payment is money received against an invoice.
type Payment struct {
	ID        int             `json:"id"`
	InvoiceID int             `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    time.Time       `json:"paid_on"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Note      string          `json:"note"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentInput holds the fields needed to record a payment.
type PaymentInput struct {
	Amount    decimal.Decimal
	PaidOn    time.Time // zero means today
	Method    string
	Reference string
	Note      string
}
