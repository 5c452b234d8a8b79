package core_test

import (
	"errors"
	"testing"

	"sme-billing/internal/core"
)

func TestFormatDocumentNumber(t *testing.T) {
	if got := core.FormatDocumentNumber(core.QuotationPrefix, 2026, 1); got != "QT-2026-00001" {
		t.Errorf("got %q", got)
	}
	if got := core.FormatDocumentNumber(core.InvoicePrefix, 2026, 123456); got != "INV-2026-123456" {
		t.Errorf("got %q", got)
	}
}

func TestCanTransitionQuotation(t *testing.T) {
	allowed := []struct{ from, to core.QuotationStatus }{
		{core.QuotationDraft, core.QuotationSent},
		{core.QuotationDraft, core.QuotationExpired},
		{core.QuotationSent, core.QuotationAccepted},
		{core.QuotationSent, core.QuotationRejected},
		{core.QuotationSent, core.QuotationExpired},
	}
	for _, tt := range allowed {
		if !core.CanTransitionQuotation(tt.from, tt.to) {
			t.Errorf("expected %s → %s to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to core.QuotationStatus }{
		{core.QuotationDraft, core.QuotationAccepted},
		{core.QuotationDraft, core.QuotationRejected},
		{core.QuotationSent, core.QuotationDraft},
		{core.QuotationAccepted, core.QuotationRejected},
		{core.QuotationRejected, core.QuotationSent},
		{core.QuotationExpired, core.QuotationSent},
	}
	for _, tt := range denied {
		if core.CanTransitionQuotation(tt.from, tt.to) {
			t.Errorf("expected %s → %s to be denied", tt.from, tt.to)
		}
	}
}

func TestQuotation_EditableAndConvertible(t *testing.T) {
	invoiceID := 9
	tests := []struct {
		status      core.QuotationStatus
		invoiceID   *int
		editable    bool
		convertible bool
	}{
		{core.QuotationDraft, nil, true, true},
		{core.QuotationSent, nil, true, true},
		{core.QuotationAccepted, nil, false, true},
		{core.QuotationAccepted, &invoiceID, false, false},
		{core.QuotationRejected, nil, false, false},
		{core.QuotationExpired, nil, false, false},
	}
	for _, tt := range tests {
		q := &core.Quotation{Status: tt.status, InvoiceID: tt.invoiceID}
		if got := q.Editable(); got != tt.editable {
			t.Errorf("%s (invoice=%v): Editable() = %v, want %v", tt.status, tt.invoiceID != nil, got, tt.editable)
		}
		if got := q.Convertible(); got != tt.convertible {
			t.Errorf("%s (invoice=%v): Convertible() = %v, want %v", tt.status, tt.invoiceID != nil, got, tt.convertible)
		}
	}
}

func TestCanTransitionInvoice(t *testing.T) {
	if !core.CanTransitionInvoice(core.InvoiceDraft, core.InvoiceIssued) {
		t.Error("draft → issued should be allowed")
	}
	if !core.CanTransitionInvoice(core.InvoiceIssued, core.InvoiceCancelled) {
		t.Error("issued → cancelled should be allowed")
	}
	if core.CanTransitionInvoice(core.InvoiceIssued, core.InvoicePaid) {
		t.Error("issued → paid must go through payments")
	}
	if core.CanTransitionInvoice(core.InvoicePartiallyPaid, core.InvoiceCancelled) {
		t.Error("partially paid invoices cannot be cancelled")
	}
	if core.CanTransitionInvoice(core.InvoiceCancelled, core.InvoiceIssued) {
		t.Error("cancelled is terminal")
	}
}

func TestApplyPayment(t *testing.T) {
	t.Run("PartialThenFull", func(t *testing.T) {
		paid, status, err := core.ApplyPayment(core.InvoiceIssued, d("10400"), d("0"), d("4000"))
		if err != nil {
			t.Fatalf("ApplyPayment: %v", err)
		}
		if !paid.Equal(d("4000")) || status != core.InvoicePartiallyPaid {
			t.Fatalf("got paid=%s status=%s", paid, status)
		}

		paid, status, err = core.ApplyPayment(status, d("10400"), paid, d("6400"))
		if err != nil {
			t.Fatalf("ApplyPayment: %v", err)
		}
		if !paid.Equal(d("10400")) || status != core.InvoicePaid {
			t.Fatalf("got paid=%s status=%s", paid, status)
		}
	})

	t.Run("Overpayment", func(t *testing.T) {
		_, _, err := core.ApplyPayment(core.InvoicePartiallyPaid, d("100"), d("60"), d("40.01"))
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("NonPositive", func(t *testing.T) {
		for _, amt := range []string{"0", "-5"} {
			_, _, err := core.ApplyPayment(core.InvoiceIssued, d("100"), d("0"), d(amt))
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("amount %s: expected ErrValidation, got %v", amt, err)
			}
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		_, _, err := core.ApplyPayment(core.InvoiceIssued, d("100"), d("0"), d("1e9999999"))
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("SubSatang", func(t *testing.T) {
		_, _, err := core.ApplyPayment(core.InvoiceIssued, d("100"), d("0"), d("10.005"))
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("WrongState", func(t *testing.T) {
		for _, st := range []core.InvoiceStatus{core.InvoiceDraft, core.InvoicePaid, core.InvoiceCancelled} {
			_, _, err := core.ApplyPayment(st, d("100"), d("0"), d("10"))
			if !errors.Is(err, core.ErrInvalidState) {
				t.Errorf("%s: expected ErrInvalidState, got %v", st, err)
			}
		}
	})
}

func TestIssuedStatus(t *testing.T) {
	if got := core.IssuedStatus(d("0.01")); got != core.InvoiceIssued {
		t.Errorf("IssuedStatus(0.01) = %s, want issued", got)
	}
	if got := core.IssuedStatus(d("0")); got != core.InvoicePaid {
		t.Errorf("IssuedStatus(0) = %s, want paid", got)
	}
}

func TestInvoice_Editable(t *testing.T) {
	tests := []struct {
		status core.InvoiceStatus
		paid   string
		want   bool
	}{
		{core.InvoiceDraft, "0", true},
		{core.InvoiceIssued, "0", true},
		{core.InvoiceIssued, "10", false},
		{core.InvoicePartiallyPaid, "10", false},
		{core.InvoicePaid, "100", false},
		{core.InvoiceCancelled, "0", false},
	}
	for _, tt := range tests {
		inv := &core.Invoice{Status: tt.status, PaidAmount: d(tt.paid)}
		if got := inv.Editable(); got != tt.want {
			t.Errorf("%s paid=%s: Editable() = %v, want %v", tt.status, tt.paid, got, tt.want)
		}
	}
}
