package core

import (
	"github.com/shopspring/decimal"

	"sme-billing/internal/thaitext"
)

// DiscountType selects how DiscountValue is interpreted.
type DiscountType string

const (
	DiscountNone    DiscountType = ""
	DiscountFixed   DiscountType = "fixed"
	DiscountPercent DiscountType = "percent"
)

// DefaultVATRate is Thailand's standard VAT rate in percent.
var DefaultVATRate = decimal.NewFromInt(7)

var (
	hundred = decimal.NewFromInt(100)
)

// Stored precision: quantities are NUMERIC(14,4), money is NUMERIC(14,2).
const (
	quantityDigits = 10
	quantityPlaces = 4
	moneyDigits    = thaitext.AmountDigits
	rateDigits     = 3
)

// PricingConfig is the discount/VAT/withholding configuration of a document.
type PricingConfig struct {
	DiscountType    DiscountType    `json:"discount_type"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
	VATEnabled      bool            `json:"vat_enabled"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	VATInclusive    bool            `json:"vat_inclusive"`    // unit prices already include VAT
	WithholdingRate decimal.Decimal `json:"withholding_rate"` // percent of the pre-VAT amount
}

// Totals are the computed money fields of a document.
type Totals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	AfterDiscount     decimal.Decimal `json:"after_discount"`
	PreVATAmount      decimal.Decimal `json:"pre_vat_amount"`
	VATAmount         decimal.Decimal `json:"vat_amount"`
	Total             decimal.Decimal `json:"total"`
	WithholdingAmount decimal.Decimal `json:"withholding_amount"`
	NetPayable        decimal.Decimal `json:"net_payable"`
}

// Calculation is the result of Calculate: priced lines plus document totals.
type Calculation struct {
	Lines  []LineItem `json:"lines"`
	Totals Totals     `json:"totals"`
}

// round2 rounds half away from zero to satang precision.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Validate checks the pricing configuration.
func (p PricingConfig) Validate() error {
	if !thaitext.FitsDigits(p.DiscountValue, moneyDigits) {
		return validationErrorf("discount is out of range")
	}
	if !thaitext.FitsDigits(p.VATRate, rateDigits) || !thaitext.FitsDigits(p.WithholdingRate, rateDigits) {
		return validationErrorf("rates must be between 0 and 100")
	}
	switch p.DiscountType {
	case DiscountNone, DiscountFixed:
	case DiscountPercent:
		if p.DiscountValue.GreaterThan(hundred) {
			return validationErrorf("discount percent must be between 0 and 100, got %s", p.DiscountValue)
		}
	default:
		return validationErrorf("unknown discount type %q", p.DiscountType)
	}
	if p.DiscountValue.IsNegative() {
		return validationErrorf("discount cannot be negative")
	}
	if p.VATRate.IsNegative() || p.VATRate.GreaterThan(hundred) {
		return validationErrorf("vat rate must be between 0 and 100, got %s", p.VATRate)
	}
	if p.WithholdingRate.IsNegative() || p.WithholdingRate.GreaterThan(hundred) {
		return validationErrorf("withholding rate must be between 0 and 100, got %s", p.WithholdingRate)
	}
	return nil
}

// Calculate prices each line and computes the document totals.
//
//	subtotal       = Σ round2(qty × unit price)
//	discount       = fixed: min(value, subtotal); percent: round2(subtotal × value / 100)
//	exclusive VAT  : pre-VAT = subtotal − discount, VAT = round2(pre-VAT × rate / 100)
//	inclusive VAT  : total = subtotal − discount, pre-VAT = round2(total × 100 / (100 + rate))
//	withholding    = round2(pre-VAT × rate / 100), net payable = total − withholding
//
// Quantities are rounded to 4 places and unit prices to 2 before pricing, matching what
// is stored. Values that would not fit the amount columns are rejected.
func Calculate(items []LineItem, cfg PricingConfig) (*Calculation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lines := make([]LineItem, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity.IsNegative() {
			return nil, validationErrorf("line %d: quantity cannot be negative", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return nil, validationErrorf("line %d: unit price cannot be negative", i+1)
		}
		if !thaitext.FitsDigits(item.Quantity, quantityDigits) {
			return nil, validationErrorf("line %d: quantity is too large", i+1)
		}
		if !thaitext.FitsDigits(item.UnitPrice, moneyDigits) {
			return nil, validationErrorf("line %d: unit price is too large", i+1)
		}
		line := item
		line.LineNumber = i + 1
		line.Quantity = item.Quantity.Round(quantityPlaces)
		line.UnitPrice = round2(item.UnitPrice)
		line.Amount = round2(line.Quantity.Mul(line.UnitPrice))
		if !thaitext.FitsDigits(line.Amount, moneyDigits) {
			return nil, validationErrorf("line %d: amount is too large", i+1)
		}
		subtotal = subtotal.Add(line.Amount)
		lines[i] = line
	}
	if !thaitext.FitsDigits(subtotal, moneyDigits) {
		return nil, validationErrorf("subtotal is too large")
	}

	t := Totals{Subtotal: subtotal}
	t.DiscountAmount = discountAmount(subtotal, cfg)
	t.AfterDiscount = subtotal.Sub(t.DiscountAmount)

	switch {
	case !cfg.VATEnabled:
		t.PreVATAmount = t.AfterDiscount
		t.VATAmount = decimal.Zero
		t.Total = t.AfterDiscount
	case cfg.VATInclusive:
		t.Total = t.AfterDiscount
		t.PreVATAmount = round2(t.Total.Mul(hundred).Div(hundred.Add(cfg.VATRate)))
		t.VATAmount = t.Total.Sub(t.PreVATAmount)
	default:
		t.PreVATAmount = t.AfterDiscount
		t.VATAmount = round2(t.PreVATAmount.Mul(cfg.VATRate).Div(hundred))
		t.Total = t.PreVATAmount.Add(t.VATAmount)
	}

	if !thaitext.FitsDigits(t.Total, moneyDigits) {
		return nil, validationErrorf("total is too large")
	}

	t.WithholdingAmount = round2(t.PreVATAmount.Mul(cfg.WithholdingRate).Div(hundred))
	t.NetPayable = t.Total.Sub(t.WithholdingAmount)

	return &Calculation{Lines: lines, Totals: t}, nil
}

func discountAmount(subtotal decimal.Decimal, cfg PricingConfig) decimal.Decimal {
	if cfg.DiscountValue.IsZero() {
		return decimal.Zero
	}
	switch cfg.DiscountType {
	case DiscountFixed:
		return decimal.Min(round2(cfg.DiscountValue), subtotal)
	case DiscountPercent:
		return round2(subtotal.Mul(cfg.DiscountValue).Div(hundred))
	}
	return decimal.Zero
}
