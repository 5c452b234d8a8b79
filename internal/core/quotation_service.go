package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sme-billing/internal/thaitext"
)

// QuotationService manages quotations and their conversion to invoices.
type QuotationService interface {
	CreateQuotation(ctx context.Context, companyID int, userID string, input DocumentInput) (*Quotation, error)
	GetQuotation(ctx context.Context, companyID, quotationID int) (*Quotation, error)
	ListQuotations(ctx context.Context, companyID int, filter DocumentListFilter) ([]Quotation, error)

	// UpdateQuotation replaces the content of a draft or sent quotation.
	UpdateQuotation(ctx context.Context, companyID, quotationID int, input DocumentInput) (*Quotation, error)

	// DeleteQuotation removes a draft or sent quotation that has not been converted.
	DeleteQuotation(ctx context.Context, companyID, quotationID int) error

	// SetQuotationStatus moves a quotation along draft → sent → accepted|rejected, or to expired.
	SetQuotationStatus(ctx context.Context, companyID, quotationID int, status QuotationStatus) (*Quotation, error)

	// ConvertToInvoice creates a draft invoice from the quotation and marks it accepted.
	ConvertToInvoice(ctx context.Context, companyID, quotationID int, userID string) (*Invoice, error)

	// ExpireQuotations marks every open quotation whose validity ended before asOf as expired.
	ExpireQuotations(ctx context.Context, asOf time.Time) (int64, error)
}

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationDraft: {QuotationSent, QuotationExpired},
	QuotationSent:  {QuotationAccepted, QuotationRejected, QuotationExpired},
}

// CanTransitionQuotation reports whether a quotation may move from one status to another.
func CanTransitionQuotation(from, to QuotationStatus) bool {
	for _, next := range quotationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Editable reports whether the quotation's content may still change.
func (q *Quotation) Editable() bool {
	return (q.Status == QuotationDraft || q.Status == QuotationSent) && q.InvoiceID == nil
}

// Convertible reports whether the quotation may be turned into an invoice.
func (q *Quotation) Convertible() bool {
	if q.InvoiceID != nil {
		return false
	}
	switch q.Status {
	case QuotationRejected, QuotationExpired:
		return false
	}
	return true
}

const quotationSelect = `
	SELECT q.id, q.company_id, q.number, c.id, c.name, c.tax_id, c.branch_code, c.address,
	       q.issue_date, q.valid_until, q.status,
	       q.discount_type, q.discount_value, q.vat_enabled, q.vat_rate, q.vat_inclusive, q.withholding_rate,
	       q.subtotal, q.discount_amount, q.after_discount, q.pre_vat_amount, q.vat_amount, q.total,
	       q.withholding_amount, q.net_payable, q.notes, q.invoice_id, q.created_by, q.created_at, q.updated_at
	FROM quotations q
	JOIN customers c ON c.id = q.customer_id`

type quotationService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewQuotationService constructs a QuotationService backed by PostgreSQL.
func NewQuotationService(pool *pgxpool.Pool) QuotationService {
	return &quotationService{pool: pool, now: time.Now}
}

func scanQuotation(row pgx.Row) (*Quotation, error) {
	q := &Quotation{}
	if err := row.Scan(
		&q.ID, &q.CompanyID, &q.Number,
		&q.Customer.ID, &q.Customer.Name, &q.Customer.TaxID, &q.Customer.BranchCode, &q.Customer.Address,
		&q.IssueDate, &q.ValidUntil, &q.Status,
		&q.DiscountType, &q.DiscountValue, &q.VATEnabled, &q.VATRate, &q.VATInclusive, &q.WithholdingRate,
		&q.Subtotal, &q.DiscountAmount, &q.AfterDiscount, &q.PreVATAmount, &q.VATAmount, &q.Total,
		&q.WithholdingAmount, &q.NetPayable, &q.Notes, &q.InvoiceID, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
	); err != nil {
		return nil, err
	}
	q.BahtText = thaitext.BahtText(q.Total)
	return q, nil
}

// priceDocument validates the lines and runs the calculator.
func priceDocument(in DocumentInput) (*Calculation, error) {
	lines, err := prepareLines(in.Items)
	if err != nil {
		return nil, err
	}
	return Calculate(lines, in.Pricing)
}

func (s *quotationService) CreateQuotation(ctx context.Context, companyID int, userID string, input DocumentInput) (*Quotation, error) {
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
	validityDays, _, err := companyTerms(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	issue, validUntil, err := documentDates(input, validityDays, s.now())
	if err != nil {
		return nil, err
	}
	number, err := nextDocumentNumber(ctx, tx, companyID, QuotationPrefix, issue.Year())
	if err != nil {
		return nil, err
	}

	p, t := input.Pricing, calc.Totals
	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO quotations (company_id, number, customer_id, issue_date, valid_until, status,
		                        discount_type, discount_value, vat_enabled, vat_rate, vat_inclusive, withholding_rate,
		                        subtotal, discount_amount, after_discount, pre_vat_amount, vat_amount, total,
		                        withholding_amount, net_payable, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id`,
		companyID, number, customer.ID, issue, validUntil, QuotationDraft,
		p.DiscountType, p.DiscountValue, p.VATEnabled, p.VATRate, p.VATInclusive, p.WithholdingRate,
		t.Subtotal, t.DiscountAmount, t.AfterDiscount, t.PreVATAmount, t.VATAmount, t.Total,
		t.WithholdingAmount, t.NetPayable, input.Notes, userID,
	).Scan(&id)
	if err != nil {
		return nil, wrapDBError(err, "create quotation")
	}
	if err := replaceItems(ctx, tx, quotationItems, id, calc.Lines); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetQuotation(ctx, companyID, id)
}

func (s *quotationService) GetQuotation(ctx context.Context, companyID, quotationID int) (*Quotation, error) {
	return getQuotation(ctx, s.pool, companyID, quotationID, false)
}

func getQuotation(ctx context.Context, q querier, companyID, quotationID int, forUpdate bool) (*Quotation, error) {
	sql := quotationSelect + ` WHERE q.company_id = $1 AND q.id = $2`
	if forUpdate {
		sql += ` FOR UPDATE OF q`
	}
	quo, err := scanQuotation(q.QueryRow(ctx, sql, companyID, quotationID))
	if err != nil {
		return nil, wrapDBError(err, "quotation %d", quotationID)
	}
	quo.Items, err = loadItems(ctx, q, quotationItems, quo.ID)
	if err != nil {
		return nil, err
	}
	return quo, nil
}

func (s *quotationService) ListQuotations(ctx context.Context, companyID int, filter DocumentListFilter) ([]Quotation, error) {
	where, args := documentFilterSQL("q", companyID, filter)
	page, args := pageSQL(filter, args)
	rows, err := s.pool.Query(ctx, quotationSelect+` WHERE `+where+` ORDER BY q.issue_date DESC, q.id DESC`+page, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	quotations := []Quotation{}
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quotation: %w", err)
		}
		quotations = append(quotations, *q)
	}
	return quotations, rows.Err()
}

func (s *quotationService) UpdateQuotation(ctx context.Context, companyID, quotationID int, input DocumentInput) (*Quotation, error) {
	calc, err := priceDocument(input)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getQuotation(ctx, tx, companyID, quotationID, true)
	if err != nil {
		return nil, err
	}
	if !current.Editable() {
		return nil, invalidStatef("quotation %s is %s and can no longer be edited", current.Number, current.Status)
	}

	customer, err := resolveDocumentCustomer(ctx, tx, companyID, input)
	if err != nil {
		return nil, err
	}
	validityDays, _, err := companyTerms(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	if input.IssueDate.IsZero() {
		input.IssueDate = current.IssueDate
	}
	if input.DueDate == nil {
		validUntil := current.ValidUntil
		input.DueDate = &validUntil
	}
	issue, validUntil, err := documentDates(input, validityDays, s.now())
	if err != nil {
		return nil, err
	}

	p, t := input.Pricing, calc.Totals
	_, err = tx.Exec(ctx, `
		UPDATE quotations
		SET customer_id = $3, issue_date = $4, valid_until = $5,
		    discount_type = $6, discount_value = $7, vat_enabled = $8, vat_rate = $9, vat_inclusive = $10,
		    withholding_rate = $11, subtotal = $12, discount_amount = $13, after_discount = $14,
		    pre_vat_amount = $15, vat_amount = $16, total = $17, withholding_amount = $18, net_payable = $19,
		    notes = $20, updated_at = now()
		WHERE company_id = $1 AND id = $2`,
		companyID, quotationID, customer.ID, issue, validUntil,
		p.DiscountType, p.DiscountValue, p.VATEnabled, p.VATRate, p.VATInclusive, p.WithholdingRate,
		t.Subtotal, t.DiscountAmount, t.AfterDiscount, t.PreVATAmount, t.VATAmount, t.Total,
		t.WithholdingAmount, t.NetPayable, input.Notes,
	)
	if err != nil {
		return nil, wrapDBError(err, "update quotation %d", quotationID)
	}
	if err := replaceItems(ctx, tx, quotationItems, quotationID, calc.Lines); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetQuotation(ctx, companyID, quotationID)
}

func (s *quotationService) DeleteQuotation(ctx context.Context, companyID, quotationID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getQuotation(ctx, tx, companyID, quotationID, true)
	if err != nil {
		return err
	}
	if !current.Editable() {
		return invalidStatef("quotation %s is %s and cannot be deleted", current.Number, current.Status)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quotations WHERE company_id = $1 AND id = $2`, companyID, quotationID); err != nil {
		return wrapDBError(err, "delete quotation %d", quotationID)
	}
	return tx.Commit(ctx)
}

func (s *quotationService) SetQuotationStatus(ctx context.Context, companyID, quotationID int, status QuotationStatus) (*Quotation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getQuotation(ctx, tx, companyID, quotationID, true)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}
	if !CanTransitionQuotation(current.Status, status) {
		return nil, invalidStatef("quotation %s cannot move from %s to %s", current.Number, current.Status, status)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE quotations SET status = $3, updated_at = now() WHERE company_id = $1 AND id = $2`,
		companyID, quotationID, status,
	); err != nil {
		return nil, fmt.Errorf("update quotation status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetQuotation(ctx, companyID, quotationID)
}

func (s *quotationService) ConvertToInvoice(ctx context.Context, companyID, quotationID int, userID string) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	quo, err := getQuotation(ctx, tx, companyID, quotationID, true)
	if err != nil {
		return nil, err
	}
	if !quo.Convertible() {
		if quo.InvoiceID != nil {
			return nil, invalidStatef("quotation %s was already converted to invoice %d", quo.Number, *quo.InvoiceID)
		}
		return nil, invalidStatef("quotation %s is %s and cannot be converted", quo.Number, quo.Status)
	}

	_, dueDays, err := companyTerms(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	issue, due, err := documentDates(DocumentInput{}, dueDays, s.now())
	if err != nil {
		return nil, err
	}
	calc := &Calculation{Lines: quo.Items, Totals: quo.Totals}
	invoiceID, err := insertInvoice(ctx, tx, newInvoiceRow{
		companyID:   companyID,
		customerID:  quo.Customer.ID,
		quotationID: &quo.ID,
		issue:       issue,
		due:         due,
		pricing:     quo.PricingConfig,
		calc:        calc,
		notes:       quo.Notes,
		createdBy:   userID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE quotations SET status = $3, invoice_id = $4, updated_at = now()
		WHERE company_id = $1 AND id = $2`,
		companyID, quotationID, QuotationAccepted, invoiceID,
	); err != nil {
		return nil, fmt.Errorf("mark quotation converted: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return getInvoice(ctx, s.pool, companyID, invoiceID, false)
}

func (s *quotationService) ExpireQuotations(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE quotations
		SET status = $1, updated_at = now()
		WHERE status IN ($2, $3) AND invoice_id IS NULL AND valid_until < $4`,
		QuotationExpired, QuotationDraft, QuotationSent, dateOnly(asOf),
	)
	if err != nil {
		return 0, fmt.Errorf("expire quotations: %w", err)
	}
	return tag.RowsAffected(), nil
}
