package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sme-billing/internal/thaitext"
)

// ProductService provides the product catalog.
type ProductService interface {
	CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error)
	GetProduct(ctx context.Context, companyID, productID int) (*Product, error)
	// ListProducts returns products matching search on code or name. Inactive products
	// are included only when includeInactive is set.
	ListProducts(ctx context.Context, companyID int, search string, includeInactive bool) ([]Product, error)
	UpdateProduct(ctx context.Context, companyID, productID int, input ProductInput) (*Product, error)
	// DeactivateProduct hides a product from pickers without breaking document lines that reference it.
	DeactivateProduct(ctx context.Context, companyID, productID int) error
}

const productColumns = `id, company_id, code, name, description, unit, unit_price, vatable, is_active,
	created_at, updated_at`

type productService struct {
	pool *pgxpool.Pool
}

// NewProductService constructs a ProductService backed by PostgreSQL.
func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	if err := row.Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Description, &p.Unit,
		&p.UnitPrice, &p.VATable, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return p, nil
}

func (in ProductInput) validate() (ProductInput, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Code == "" {
		return in, validationErrorf("product code is required")
	}
	if in.Name == "" {
		return in, validationErrorf("product name is required")
	}
	if in.UnitPrice.IsNegative() {
		return in, validationErrorf("unit price cannot be negative")
	}
	if !thaitext.FitsDigits(in.UnitPrice, moneyDigits) {
		return in, validationErrorf("unit price is out of range")
	}
	in.UnitPrice = round2(in.UnitPrice)
	return in, nil
}

func (s *productService) CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error) {
	in, err := input.validate()
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, code, name, description, unit, unit_price, vatable)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		companyID, in.Code, in.Name, in.Description, in.Unit, in.UnitPrice, in.VATable,
	))
	if err != nil {
		return nil, wrapDBError(err, "create product %q", in.Code)
	}
	return p, nil
}

func (s *productService) GetProduct(ctx context.Context, companyID, productID int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE company_id = $1 AND id = $2`,
		companyID, productID,
	))
	if err != nil {
		return nil, wrapDBError(err, "product %d", productID)
	}
	return p, nil
}

func (s *productService) ListProducts(ctx context.Context, companyID int, search string, includeInactive bool) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE company_id = $1
		  AND ($2 OR is_active)
		  AND ($3 = '' OR code ILIKE $4 OR name ILIKE $4)
		ORDER BY code`,
		companyID, includeInactive, search, "%"+search+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *productService) UpdateProduct(ctx context.Context, companyID, productID int, input ProductInput) (*Product, error) {
	in, err := input.validate()
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET code = $3, name = $4, description = $5, unit = $6, unit_price = $7, vatable = $8,
		    updated_at = now()
		WHERE company_id = $1 AND id = $2
		RETURNING `+productColumns,
		companyID, productID, in.Code, in.Name, in.Description, in.Unit, in.UnitPrice, in.VATable,
	))
	if err != nil {
		return nil, wrapDBError(err, "update product %d", productID)
	}
	return p, nil
}

func (s *productService) DeactivateProduct(ctx context.Context, companyID, productID int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products SET is_active = false, updated_at = now()
		WHERE company_id = $1 AND id = $2`,
		companyID, productID,
	)
	if err != nil {
		return fmt.Errorf("deactivate product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return nil
}
