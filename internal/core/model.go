package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is a billing tenant. Every customer, product and document is scoped to one company.
type Company struct {
	ID                    int             `json:"id"`
	Name                  string          `json:"name"`
	TaxID                 string          `json:"tax_id"`
	BranchCode            string          `json:"branch_code"`
	Address               string          `json:"address"`
	Phone                 string          `json:"phone"`
	Email                 string          `json:"email"`
	DefaultVATRate        decimal.Decimal `json:"default_vat_rate"`
	QuotationValidityDays int             `json:"quotation_validity_days"`
	InvoiceDueDays        int             `json:"invoice_due_days"`
	AIMonthlyQuota        int             `json:"ai_monthly_quota"` // 0 = unlimited
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CompanySettings holds the editable company fields.
type CompanySettings struct {
	Name                  string
	TaxID                 string
	BranchCode            string
	Address               string
	Phone                 string
	Email                 string
	DefaultVATRate        decimal.Decimal
	QuotationValidityDays int
	InvoiceDueDays        int
	AIMonthlyQuota        int
}

// Membership links an identity-provider user to a company.
type Membership struct {
	CompanyID   int    `json:"company_id"`
	CompanyName string `json:"company_name"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}

// Customer is a billing counterparty. Thai tax rules identify a legal entity by tax ID plus
// branch code ("00000" is the head office).
type Customer struct {
	ID            int       `json:"id"`
	CompanyID     int       `json:"company_id"`
	Name          string    `json:"name"`
	NameKey       string    `json:"-"`
	TaxID         string    `json:"tax_id"`
	BranchCode    string    `json:"branch_code"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	ContactPerson string    `json:"contact_person"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CustomerInput is free-form customer data, typed by a user or extracted by AI.
type CustomerInput struct {
	Name          string `json:"name"`
	TaxID         string `json:"tax_id"`
	BranchCode    string `json:"branch_code"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	ContactPerson string `json:"contact_person"`
}

// ResolveOutcome reports what ResolveCustomer did.
type ResolveOutcome string

const (
	ResolveCreated   ResolveOutcome = "created"
	ResolveUpdated   ResolveOutcome = "updated"
	ResolveUnchanged ResolveOutcome = "unchanged"
)

// ResolveResult is returned by ResolveCustomer.
type ResolveResult struct {
	Customer *Customer      `json:"customer"`
	Outcome  ResolveOutcome `json:"outcome"`
}

// Product is a catalog item that can be copied onto document lines.
type Product struct {
	ID          int             `json:"id"`
	CompanyID   int             `json:"company_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATable     bool            `json:"vatable"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductInput holds the fields needed to create or update a product.
type ProductInput struct {
	Code        string
	Name        string
	Description string
	Unit        string
	UnitPrice   decimal.Decimal
	VATable     bool
}

// LineItem is one row on a quotation or invoice.
type LineItem struct {
	ID          int             `json:"id,omitempty"`
	LineNumber  int             `json:"line_number"`
	ProductID   *int            `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// DocumentListFilter narrows ListQuotations / ListInvoices.
type DocumentListFilter struct {
	Status     string
	CustomerID int
	From       *time.Time
	To         *time.Time
	Search     string // matches document number or customer name
	Limit      int
	Offset     int
}
