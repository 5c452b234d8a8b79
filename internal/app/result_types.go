package app

import "sme-billing/internal/core"

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// QuotationListResult is returned by ListQuotations.
type QuotationListResult struct {
	Quotations []core.Quotation `json:"quotations"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
}

// ExportResult is a generated file ready to be served.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CalculationResult is returned by Calculate.
type CalculationResult struct {
	Lines    []core.LineItem    `json:"lines"`
	Pricing  core.PricingConfig `json:"pricing"`
	Totals   core.Totals        `json:"totals"`
	BahtText string             `json:"baht_text"`
}

// BahtTextResult is returned by BahtText.
type BahtTextResult struct {
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
	Text      string `json:"text"`
}
