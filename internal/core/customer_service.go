package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService manages the customer master and the find-or-create resolver used
// when documents are saved.
type CustomerService interface {
	// ResolveCustomer finds a customer by (tax ID, branch) then (name key, branch), merges
	// the non-empty input fields into it, and creates a new record when nothing matches.
	ResolveCustomer(ctx context.Context, companyID int, input CustomerInput) (*ResolveResult, error)

	// GetCustomer returns one customer scoped to the company.
	GetCustomer(ctx context.Context, companyID, customerID int) (*Customer, error)

	// ListCustomers returns customers whose name, tax ID or name key contains search.
	ListCustomers(ctx context.Context, companyID int, search string, limit, offset int) ([]Customer, error)

	// UpdateCustomer replaces every editable field of a customer.
	UpdateCustomer(ctx context.Context, companyID, customerID int, input CustomerInput) (*Customer, error)

	// DeleteCustomer removes a customer that no document references.
	DeleteCustomer(ctx context.Context, companyID, customerID int) error
}

const customerColumns = `id, company_id, name, name_key, tax_id, branch_code, address, phone, email,
	contact_person, created_at, updated_at`

type customerService struct {
	pool *pgxpool.Pool
}

// NewCustomerService constructs a CustomerService backed by PostgreSQL.
func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	c := &Customer{}
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.NameKey, &c.TaxID, &c.BranchCode,
		&c.Address, &c.Phone, &c.Email, &c.ContactPerson, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *customerService) ResolveCustomer(ctx context.Context, companyID int, input CustomerInput) (*ResolveResult, error) {
	in := input.Normalize()
	if in.IsEmpty() {
		return nil, validationErrorf("customer data is empty")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	result, err := resolveCustomerTx(ctx, tx, companyID, in)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// resolveCustomerTx runs the find-merge-or-create step inside the caller's transaction.
// The input must already be normalized.
func resolveCustomerTx(ctx context.Context, tx pgx.Tx, companyID int, in CustomerInput) (*ResolveResult, error) {
	existing, err := findCustomerMatch(ctx, tx, companyID, in)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		merged, changed := MergeCustomer(*existing, in)
		if !changed {
			return &ResolveResult{Customer: existing, Outcome: ResolveUnchanged}, nil
		}
		updated, err := updateCustomerRow(ctx, tx, merged)
		if err != nil {
			return nil, err
		}
		return &ResolveResult{Customer: updated, Outcome: ResolveUpdated}, nil
	}

	if in.Name == "" {
		return nil, validationErrorf("customer name is required to create a customer")
	}
	created, err := insertCustomerRow(ctx, tx, companyID, in)
	if err != nil {
		return nil, err
	}
	return &ResolveResult{Customer: created, Outcome: ResolveCreated}, nil
}

// findCustomerMatch returns nil, nil when no customer matches.
func findCustomerMatch(ctx context.Context, tx pgx.Tx, companyID int, in CustomerInput) (*Customer, error) {
	if in.TaxID != "" {
		c, err := scanCustomer(tx.QueryRow(ctx, `
			SELECT `+customerColumns+`
			FROM customers
			WHERE company_id = $1 AND tax_id = $2 AND branch_code = $3
			ORDER BY id
			LIMIT 1
			FOR UPDATE`,
			companyID, in.TaxID, in.BranchCode,
		))
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find customer by tax id: %w", err)
		}
	}

	if key := NameKey(in.Name); key != "" {
		c, err := scanCustomer(tx.QueryRow(ctx, `
			SELECT `+customerColumns+`
			FROM customers
			WHERE company_id = $1 AND name_key = $2 AND branch_code = $3
			ORDER BY id
			LIMIT 1
			FOR UPDATE`,
			companyID, key, in.BranchCode,
		))
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find customer by name: %w", err)
		}
	}
	return nil, nil
}

func insertCustomerRow(ctx context.Context, q pgx.Tx, companyID int, in CustomerInput) (*Customer, error) {
	c, err := scanCustomer(q.QueryRow(ctx, `
		INSERT INTO customers (company_id, name, name_key, tax_id, branch_code, address, phone, email, contact_person)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+customerColumns,
		companyID, in.Name, NameKey(in.Name), in.TaxID, in.BranchCode,
		in.Address, in.Phone, in.Email, in.ContactPerson,
	))
	if err != nil {
		return nil, wrapDBError(err, "create customer %q", in.Name)
	}
	return c, nil
}

func updateCustomerRow(ctx context.Context, q pgx.Tx, c Customer) (*Customer, error) {
	updated, err := scanCustomer(q.QueryRow(ctx, `
		UPDATE customers
		SET name = $3, name_key = $4, tax_id = $5, branch_code = $6, address = $7,
		    phone = $8, email = $9, contact_person = $10, updated_at = now()
		WHERE company_id = $1 AND id = $2
		RETURNING `+customerColumns,
		c.CompanyID, c.ID, c.Name, NameKey(c.Name), c.TaxID, c.BranchCode,
		c.Address, c.Phone, c.Email, c.ContactPerson,
	))
	if err != nil {
		return nil, wrapDBError(err, "update customer %d", c.ID)
	}
	return updated, nil
}

func (s *customerService) GetCustomer(ctx context.Context, companyID, customerID int) (*Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE company_id = $1 AND id = $2`,
		companyID, customerID,
	))
	if err != nil {
		return nil, wrapDBError(err, "customer %d", customerID)
	}
	return c, nil
}

func (s *customerService) ListCustomers(ctx context.Context, companyID int, search string, limit, offset int) ([]Customer, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	pattern := "%" + search + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE company_id = $1
		  AND ($2 = '' OR name ILIKE $3 OR tax_id LIKE $3 OR name_key LIKE lower($3))
		ORDER BY name, id
		LIMIT $4 OFFSET $5`,
		companyID, search, pattern, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *customerService) UpdateCustomer(ctx context.Context, companyID, customerID int, input CustomerInput) (*Customer, error) {
	in := input.Normalize()
	if in.Name == "" {
		return nil, validationErrorf("customer name is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	updated, err := updateCustomerRow(ctx, tx, Customer{
		ID:            customerID,
		CompanyID:     companyID,
		Name:          in.Name,
		TaxID:         in.TaxID,
		BranchCode:    in.BranchCode,
		Address:       in.Address,
		Phone:         in.Phone,
		Email:         in.Email,
		ContactPerson: in.ContactPerson,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, companyID, customerID int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE company_id = $1 AND id = $2`, companyID, customerID)
	if err != nil {
		return wrapDBError(err, "delete customer %d", customerID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", customerID, ErrNotFound)
	}
	return nil
}

// clampLimit bounds list page sizes to 1..200, defaulting to 50.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 200:
		return 200
	}
	return limit
}
