package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sme-billing/internal/thaitext"
)

// InvoiceService manages tax invoices and the payments recorded against them.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, companyID int, userID string, input DocumentInput) (*Invoice, error)

	// GetInvoice returns the invoice with its lines and payments.
	GetInvoice(ctx context.Context, companyID, invoiceID int) (*Invoice, error)
	ListInvoices(ctx context.Context, companyID int, filter DocumentListFilter) ([]Invoice, error)

	// UpdateInvoice replaces the content of a draft or issued invoice that has no payments.
	UpdateInvoice(ctx context.Context, companyID, invoiceID int, input DocumentInput) (*Invoice, error)

	// DeleteInvoice removes a draft invoice.
	DeleteInvoice(ctx context.Context, companyID, invoiceID int) error

	// SetInvoiceStatus issues or cancels an invoice. Issuing an invoice with nothing to pay
	// marks it paid; otherwise paid states are reached only through payments.
	SetInvoiceStatus(ctx context.Context, companyID, invoiceID int, status InvoiceStatus) (*Invoice, error)

	// RecordPayment adds a payment and moves the invoice to partially_paid or paid.
	RecordPayment(ctx context.Context, companyID, invoiceID int, userID string, input PaymentInput) (*Invoice, error)
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:  {InvoiceIssued, InvoiceCancelled},
	InvoiceIssued: {InvoiceCancelled},
}

// CanTransitionInvoice reports whether SetInvoiceStatus may move an invoice between statuses.
func CanTransitionInvoice(from, to InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IssuedStatus is the status an invoice takes when it is issued. An invoice with nothing
// to pay is settled at once.
func IssuedStatus(netPayable decimal.Decimal) InvoiceStatus {
	if netPayable.IsPositive() {
		return InvoiceIssued
	}
	return InvoicePaid
}

// Editable reports whether the invoice's content may still change.
func (inv *Invoice) Editable() bool {
	return (inv.Status == InvoiceDraft || inv.Status == InvoiceIssued) && inv.PaidAmount.IsZero()
}

// ApplyPayment validates a payment against an invoice's state and returns the new paid
// amount and status. Payments are accepted on issued and partially paid invoices and may
// not exceed the outstanding net payable.
func ApplyPayment(status InvoiceStatus, netPayable, paid, amount decimal.Decimal) (decimal.Decimal, InvoiceStatus, error) {
	if status != InvoiceIssued && status != InvoicePartiallyPaid {
		return paid, status, invalidStatef("cannot record a payment on a %s invoice", status)
	}
	if !amount.IsPositive() {
		return paid, status, validationErrorf("payment amount must be greater than zero")
	}
	if !thaitext.FitsDigits(amount, moneyDigits) {
		return paid, status, validationErrorf("payment amount is out of range")
	}
	if !amount.Equal(round2(amount)) {
		return paid, status, validationErrorf("payment amount has more than two decimal places")
	}
	outstanding := netPayable.Sub(paid)
	if amount.GreaterThan(outstanding) {
		return paid, status, validationErrorf("payment %s exceeds outstanding amount %s",
			amount.StringFixed(2), outstanding.StringFixed(2))
	}
	newPaid := paid.Add(amount)
	if newPaid.Equal(netPayable) {
		return newPaid, InvoicePaid, nil
	}
	return newPaid, InvoicePartiallyPaid, nil
}

const invoiceSelect = `
	SELECT i.id, i.company_id, i.number, c.id, c.name, c.tax_id, c.branch_code, c.address,
	       i.quotation_id, i.issue_date, i.due_date, i.status,
	       i.discount_type, i.discount_value, i.vat_enabled, i.vat_rate, i.vat_inclusive, i.withholding_rate,
	       i.subtotal, i.discount_amount, i.after_discount, i.pre_vat_amount, i.vat_amount, i.total,
	       i.withholding_amount, i.net_payable, i.paid_amount, i.notes, i.created_by, i.created_at, i.updated_at
	FROM invoices i
	JOIN customers c ON c.id = i.customer_id`

type invoiceService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewInvoiceService constructs an InvoiceService backed by PostgreSQL.
func NewInvoiceService(pool *pgxpool.Pool) InvoiceService {
	return &invoiceService{pool: pool, now: time.Now}
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	inv := &Invoice{}
	if err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.Number,
		&inv.Customer.ID, &inv.Customer.Name, &inv.Customer.TaxID, &inv.Customer.BranchCode, &inv.Customer.Address,
		&inv.QuotationID, &inv.IssueDate, &inv.DueDate, &inv.Status,
		&inv.DiscountType, &inv.DiscountValue, &inv.VATEnabled, &inv.VATRate, &inv.VATInclusive, &inv.WithholdingRate,
		&inv.Subtotal, &inv.DiscountAmount, &inv.AfterDiscount, &inv.PreVATAmount, &inv.VATAmount, &inv.Total,
		&inv.WithholdingAmount, &inv.NetPayable, &inv.PaidAmount, &inv.Notes, &inv.CreatedBy,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inv.Outstanding = inv.NetPayable.Sub(inv.PaidAmount)
	inv.BahtText = thaitext.BahtText(inv.Total)
	return inv, nil
}

type newInvoiceRow struct {
	companyID   int
	customerID  int
	quotationID *int
	issue       time.Time
	due         time.Time
	pricing     PricingConfig
	calc        *Calculation
	notes       string
	createdBy   string
}

// insertInvoice numbers and inserts a draft invoice with its lines.
func insertInvoice(ctx context.Context, tx pgx.Tx, r newInvoiceRow) (int, error) {
	number, err := nextDocumentNumber(ctx, tx, r.companyID, InvoicePrefix, r.issue.Year())
	if err != nil {
		return 0, err
	}
	p, t := r.pricing, r.calc.Totals
	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (company_id, number, customer_id, quotation_id, issue_date, due_date, status,
		                      discount_type, discount_value, vat_enabled, vat_rate, vat_inclusive, withholding_rate,
		                      subtotal, discount_amount, after_discount, pre_vat_amount, vat_amount, total,
		                      withholding_amount, net_payable, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id`,
		r.companyID, number, r.customerID, r.quotationID, r.issue, r.due, InvoiceDraft,
		p.DiscountType, p.DiscountValue, p.VATEnabled, p.VATRate, p.VATInclusive, p.WithholdingRate,
		t.Subtotal, t.DiscountAmount, t.AfterDiscount, t.PreVATAmount, t.VATAmount, t.Total,
		t.WithholdingAmount, t.NetPayable, r.notes, r.createdBy,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBError(err, "create invoice")
	}
	if err := replaceItems(ctx, tx, invoiceItems, id, r.calc.Lines); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, companyID int, userID string, input DocumentInput) (*Invoice, error) {
	calc, err := priceDocument(input)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	customer, err := resolveDocumentCustomer(ctx, tx, companyID, input)
	if err != nil {
		return nil, err
	}
	_, dueDays, err := companyTerms(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	issue, due, err := documentDates(input, dueDays, s.now())
	if err != nil {
		return nil, err
	}
	id, err := insertInvoice(ctx, tx, newInvoiceRow{
		companyID:  companyID,
		customerID: customer.ID,
		issue:      issue,
		due:        due,
		pricing:    input.Pricing,
		calc:       calc,
		notes:      input.Notes,
		createdBy:  userID,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetInvoice(ctx, companyID, id)
}

func (s *invoiceService) GetInvoice(ctx context.Context, companyID, invoiceID int) (*Invoice, error) {
	return getInvoice(ctx, s.pool, companyID, invoiceID, false)
}

func getInvoice(ctx context.Context, q querier, companyID, invoiceID int, forUpdate bool) (*Invoice, error) {
	sql := invoiceSelect + ` WHERE i.company_id = $1 AND i.id = $2`
	if forUpdate {
		sql += ` FOR UPDATE OF i`
	}
	inv, err := scanInvoice(q.QueryRow(ctx, sql, companyID, invoiceID))
	if err != nil {
		return nil, wrapDBError(err, "invoice %d", invoiceID)
	}
	if inv.Items, err = loadItems(ctx, q, invoiceItems, inv.ID); err != nil {
		return nil, err
	}
	if inv.Payments, err = loadPayments(ctx, q, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func loadPayments(ctx context.Context, q querier, invoiceID int) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, amount, paid_on, method, reference, note, created_by, created_at
		FROM invoice_payments
		WHERE invoice_id = $1
		ORDER BY paid_on, id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidOn, &p.Method,
			&p.Reference, &p.Note, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *invoiceService) ListInvoices(ctx context.Context, companyID int, filter DocumentListFilter) ([]Invoice, error) {
	where, args := documentFilterSQL("i", companyID, filter)
	page, args := pageSQL(filter, args)
	rows, err := s.pool.Query(ctx, invoiceSelect+` WHERE `+where+` ORDER BY i.issue_date DESC, i.id DESC`+page, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, companyID, invoiceID int, input DocumentInput) (*Invoice, error) {
	calc, err := priceDocument(input)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getInvoice(ctx, tx, companyID, invoiceID, true)
	if err != nil {
		return nil, err
	}
	if !current.Editable() {
		return nil, invalidStatef("invoice %s is %s and can no longer be edited", current.Number, current.Status)
	}

	customer, err := resolveDocumentCustomer(ctx, tx, companyID, input)
	if err != nil {
		return nil, err
	}
	_, dueDays, err := companyTerms(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	if input.IssueDate.IsZero() {
		input.IssueDate = current.IssueDate
	}
	if input.DueDate == nil {
		due := current.DueDate
		input.DueDate = &due
	}
	issue, due, err := documentDates(input, dueDays, s.now())
	if err != nil {
		return nil, err
	}

	status := current.Status
	if status == InvoiceIssued {
		status = IssuedStatus(calc.Totals.NetPayable)
	}

	p, t := input.Pricing, calc.Totals
	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET customer_id = $3, issue_date = $4, due_date = $5, status = $21,
		    discount_type = $6, discount_value = $7, vat_enabled = $8, vat_rate = $9, vat_inclusive = $10,
		    withholding_rate = $11, subtotal = $12, discount_amount = $13, after_discount = $14,
		    pre_vat_amount = $15, vat_amount = $16, total = $17, withholding_amount = $18, net_payable = $19,
		    notes = $20, updated_at = now()
		WHERE company_id = $1 AND id = $2`,
		companyID, invoiceID, customer.ID, issue, due,
		p.DiscountType, p.DiscountValue, p.VATEnabled, p.VATRate, p.VATInclusive, p.WithholdingRate,
		t.Subtotal, t.DiscountAmount, t.AfterDiscount, t.PreVATAmount, t.VATAmount, t.Total,
		t.WithholdingAmount, t.NetPayable, input.Notes, status,
	)
	if err != nil {
		return nil, wrapDBError(err, "update invoice %d", invoiceID)
	}
	if err := replaceItems(ctx, tx, invoiceItems, invoiceID, calc.Lines); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetInvoice(ctx, companyID, invoiceID)
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, companyID, invoiceID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getInvoice(ctx, tx, companyID, invoiceID, true)
	if err != nil {
		return err
	}
	if current.Status != InvoiceDraft {
		return invalidStatef("invoice %s is %s; only drafts can be deleted", current.Number, current.Status)
	}
	// A quotation converted into this invoice becomes convertible again.
	if _, err := tx.Exec(ctx, `
		UPDATE quotations SET invoice_id = NULL, updated_at = now()
		WHERE company_id = $1 AND invoice_id = $2`,
		companyID, invoiceID,
	); err != nil {
		return fmt.Errorf("detach quotation: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM invoices WHERE company_id = $1 AND id = $2`, companyID, invoiceID); err != nil {
		return wrapDBError(err, "delete invoice %d", invoiceID)
	}
	return tx.Commit(ctx)
}

func (s *invoiceService) SetInvoiceStatus(ctx context.Context, companyID, invoiceID int, status InvoiceStatus) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getInvoice(ctx, tx, companyID, invoiceID, true)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}
	if !CanTransitionInvoice(current.Status, status) {
		return nil, invalidStatef("invoice %s cannot move from %s to %s", current.Number, current.Status, status)
	}
	if status == InvoiceIssued {
		status = IssuedStatus(current.NetPayable)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE invoices SET status = $3, updated_at = now() WHERE company_id = $1 AND id = $2`,
		companyID, invoiceID, status,
	); err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetInvoice(ctx, companyID, invoiceID)
}

func (s *invoiceService) RecordPayment(ctx context.Context, companyID, invoiceID int, userID string, input PaymentInput) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getInvoice(ctx, tx, companyID, invoiceID, true)
	if err != nil {
		return nil, err
	}
	newPaid, newStatus, err := ApplyPayment(current.Status, current.NetPayable, current.PaidAmount, input.Amount)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", current.Number, err)
	}

	paidOn := input.PaidOn
	if paidOn.IsZero() {
		paidOn = s.now()
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO invoice_payments (invoice_id, amount, paid_on, method, reference, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		invoiceID, input.Amount, dateOnly(paidOn), strings.TrimSpace(input.Method),
		strings.TrimSpace(input.Reference), strings.TrimSpace(input.Note), userID,
	); err != nil {
		return nil, wrapDBError(err, "record payment")
	}
	if _, err := tx.Exec(ctx, `
		UPDATE invoices SET paid_amount = $3, status = $4, updated_at = now()
		WHERE company_id = $1 AND id = $2`,
		companyID, invoiceID, newPaid, newStatus,
	); err != nil {
		return nil, fmt.Errorf("update paid amount: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetInvoice(ctx, companyID, invoiceID)
}
