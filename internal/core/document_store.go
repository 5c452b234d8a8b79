package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sme-billing/internal/thaitext"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FormatDocumentNumber renders a document number such as QT-2026-00001.
func FormatDocumentNumber(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}

// nextDocumentNumber allocates the next number in the company's per-prefix, per-year
// sequence. The upsert row lock serializes concurrent callers until the tx ends.
func nextDocumentNumber(ctx context.Context, q querier, companyID int, prefix string, year int) (string, error) {
	var n int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (company_id, prefix, year, last_number)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (company_id, prefix, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`,
		companyID, prefix, year,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", prefix, err)
	}
	return FormatDocumentNumber(prefix, year, n), nil
}

// itemTable names the line-item table and its parent key for a document kind.
type itemTable struct {
	table  string
	parent string
}

var (
	quotationItems = itemTable{table: "quotation_items", parent: "quotation_id"}
	invoiceItems   = itemTable{table: "invoice_items", parent: "invoice_id"}
)

// replaceItems deletes the document's lines and inserts the priced lines in order.
func replaceItems(ctx context.Context, q querier, t itemTable, docID int, lines []LineItem) error {
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.table, t.parent), docID); err != nil {
		return fmt.Errorf("clear %s: %w", t.table, err)
	}
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, line_number, product_id, description, quantity, unit, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, t.table, t.parent)
	for _, l := range lines {
		if _, err := q.Exec(ctx, insert,
			docID, l.LineNumber, l.ProductID, l.Description, l.Quantity, l.Unit, l.UnitPrice, l.Amount,
		); err != nil {
			return wrapDBError(err, "insert line %d", l.LineNumber)
		}
	}
	return nil
}

func loadItems(ctx context.Context, q querier, t itemTable, docID int) ([]LineItem, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT id, line_number, product_id, description, quantity, unit, unit_price, amount
		FROM %s
		WHERE %s = $1
		ORDER BY line_number`, t.table, t.parent), docID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.table, err)
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.LineNumber, &l.ProductID, &l.Description,
			&l.Quantity, &l.Unit, &l.UnitPrice, &l.Amount); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

// prepareLines trims descriptions and rejects blank lines before pricing.
func prepareLines(items []LineItem) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, validationErrorf("at least one line item is required")
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		it.Description = strings.TrimSpace(it.Description)
		it.Unit = strings.TrimSpace(it.Unit)
		if it.Description == "" {
			return nil, validationErrorf("line %d: description is required", i+1)
		}
		if !thaitext.FitsDigits(it.Quantity, quantityDigits) {
			return nil, validationErrorf("line %d: quantity is out of range", i+1)
		}
		if !it.Quantity.Round(quantityPlaces).IsPositive() {
			return nil, validationErrorf("line %d: quantity must be greater than zero", i+1)
		}
		out[i] = it
	}
	return out, nil
}

// resolveDocumentCustomer returns the customer a document is saved against, running the
// resolver for inline customer data.
func resolveDocumentCustomer(ctx context.Context, tx pgx.Tx, companyID int, in DocumentInput) (*Customer, error) {
	if in.CustomerID != 0 {
		c, err := scanCustomer(tx.QueryRow(ctx, `
			SELECT `+customerColumns+` FROM customers WHERE company_id = $1 AND id = $2`,
			companyID, in.CustomerID,
		))
		if err != nil {
			return nil, wrapDBError(err, "customer %d", in.CustomerID)
		}
		return c, nil
	}
	if in.Customer == nil {
		return nil, validationErrorf("customer is required")
	}
	normalized := in.Customer.Normalize()
	if normalized.IsEmpty() {
		return nil, validationErrorf("customer is required")
	}
	res, err := resolveCustomerTx(ctx, tx, companyID, normalized)
	if err != nil {
		return nil, err
	}
	return res.Customer, nil
}

// companyTerms loads the day counts used to default valid-until and due dates.
func companyTerms(ctx context.Context, q querier, companyID int) (validityDays, dueDays int, err error) {
	err = q.QueryRow(ctx, `
		SELECT quotation_validity_days, invoice_due_days FROM companies WHERE id = $1`,
		companyID,
	).Scan(&validityDays, &dueDays)
	if err != nil {
		return 0, 0, wrapDBError(err, "company %d", companyID)
	}
	return validityDays, dueDays, nil
}

// dateOnly truncates t to midnight UTC of its calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// documentDates fills the issue date and computes the valid-until/due date.
func documentDates(in DocumentInput, defaultDays int, now time.Time) (issue, due time.Time, err error) {
	issue = in.IssueDate
	if issue.IsZero() {
		issue = now
	}
	issue = dateOnly(issue)
	if in.DueDate != nil {
		due = dateOnly(*in.DueDate)
		if due.Before(issue) {
			return issue, due, validationErrorf("due date %s is before issue date %s",
				due.Format(time.DateOnly), issue.Format(time.DateOnly))
		}
		return issue, due, nil
	}
	return issue, issue.AddDate(0, 0, defaultDays), nil
}

// documentFilterSQL builds the WHERE clause shared by quotation and invoice listings.
// alias is the document table alias; c is the joined customers alias.
func documentFilterSQL(alias string, companyID int, f DocumentListFilter) (string, []any) {
	args := []any{companyID}
	conds := []string{alias + ".company_id = $1"}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add(alias+".status = $%d", f.Status)
	}
	if f.CustomerID != 0 {
		add(alias+".customer_id = $%d", f.CustomerID)
	}
	if f.From != nil {
		add(alias+".issue_date >= $%d", dateOnly(*f.From))
	}
	if f.To != nil {
		add(alias+".issue_date <= $%d", dateOnly(*f.To))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(%s.number ILIKE $%d OR c.name ILIKE $%d)", alias, n, n))
	}
	return strings.Join(conds, " AND "), args
}

// pageSQL appends LIMIT/OFFSET placeholders for the filter.
func pageSQL(f DocumentListFilter, args []any) (string, []any) {
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, clampLimit(f.Limit), offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}
