package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sme-billing/internal/thaitext"
)

// CompanyService provides company settings and membership lookups.
type CompanyService interface {
	GetCompany(ctx context.Context, companyID int) (*Company, error)
	// UpdateCompany saves the company's own settings. The AI quota is not changed.
	UpdateCompany(ctx context.Context, companyID int, settings CompanySettings) (*Company, error)

	// SetAIQuota sets the monthly AI extraction quota. 0 means unlimited.
	SetAIQuota(ctx context.Context, companyID, quota int) (*Company, error)

	// CreateCompany creates a company and makes userID its owner.
	CreateCompany(ctx context.Context, userID string, settings CompanySettings) (*Company, error)

	// GetMembership returns ErrForbidden when userID is not a member of the company.
	GetMembership(ctx context.Context, companyID int, userID string) (*Membership, error)

	// ListCompaniesForUser returns every company the user belongs to.
	ListCompaniesForUser(ctx context.Context, userID string) ([]Membership, error)

	// AddMember grants userID access to the company. Adding an existing member updates the role.
	AddMember(ctx context.Context, companyID int, userID, role string) (*Membership, error)
}

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

const companyColumns = `id, name, tax_id, branch_code, address, phone, email, default_vat_rate,
	quotation_validity_days, invoice_due_days, ai_monthly_quota, created_at, updated_at`

type companyService struct {
	pool *pgxpool.Pool
}

// NewCompanyService constructs a CompanyService backed by PostgreSQL.
func NewCompanyService(pool *pgxpool.Pool) CompanyService {
	return &companyService{pool: pool}
}

func scanCompany(row pgx.Row) (*Company, error) {
	c := &Company{}
	if err := row.Scan(
		&c.ID, &c.Name, &c.TaxID, &c.BranchCode, &c.Address, &c.Phone, &c.Email,
		&c.DefaultVATRate, &c.QuotationValidityDays, &c.InvoiceDueDays, &c.AIMonthlyQuota,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}

func (cs CompanySettings) normalize() (CompanySettings, error) {
	cs.Name = strings.TrimSpace(cs.Name)
	cs.TaxID = NormalizeTaxID(cs.TaxID)
	cs.BranchCode = NormalizeBranchCode(cs.BranchCode)
	cs.Address = strings.TrimSpace(cs.Address)
	cs.Phone = strings.TrimSpace(cs.Phone)
	cs.Email = strings.TrimSpace(cs.Email)

	if cs.Name == "" {
		return cs, validationErrorf("company name is required")
	}
	if cs.TaxID != "" && len(cs.TaxID) != 13 {
		return cs, validationErrorf("tax id must have 13 digits, got %d", len(cs.TaxID))
	}
	if !thaitext.FitsDigits(cs.DefaultVATRate, rateDigits) || cs.DefaultVATRate.IsNegative() || cs.DefaultVATRate.GreaterThan(hundred) {
		return cs, validationErrorf("default vat rate must be between 0 and 100")
	}
	if cs.QuotationValidityDays <= 0 {
		cs.QuotationValidityDays = 30
	}
	if cs.InvoiceDueDays < 0 {
		return cs, validationErrorf("invoice due days cannot be negative")
	}
	if cs.AIMonthlyQuota < 0 {
		return cs, validationErrorf("ai monthly quota cannot be negative")
	}
	return cs, nil
}

func (s *companyService) GetCompany(ctx context.Context, companyID int) (*Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, companyID))
	if err != nil {
		return nil, wrapDBError(err, "company %d", companyID)
	}
	return c, nil
}

func (s *companyService) UpdateCompany(ctx context.Context, companyID int, settings CompanySettings) (*Company, error) {
	cs, err := settings.normalize()
	if err != nil {
		return nil, err
	}
	c, err := scanCompany(s.pool.QueryRow(ctx, `
		UPDATE companies
		SET name = $2, tax_id = $3, branch_code = $4, address = $5, phone = $6, email = $7,
		    default_vat_rate = $8, quotation_validity_days = $9, invoice_due_days = $10,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+companyColumns,
		companyID, cs.Name, cs.TaxID, cs.BranchCode, cs.Address, cs.Phone, cs.Email,
		cs.DefaultVATRate, cs.QuotationValidityDays, cs.InvoiceDueDays,
	))
	if err != nil {
		return nil, wrapDBError(err, "update company %d", companyID)
	}
	return c, nil
}

func (s *companyService) SetAIQuota(ctx context.Context, companyID, quota int) (*Company, error) {
	if quota < 0 {
		return nil, validationErrorf("ai monthly quota cannot be negative")
	}
	c, err := scanCompany(s.pool.QueryRow(ctx, `
		UPDATE companies SET ai_monthly_quota = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+companyColumns,
		companyID, quota,
	))
	if err != nil {
		return nil, wrapDBError(err, "set ai quota for company %d", companyID)
	}
	return c, nil
}

func (s *companyService) CreateCompany(ctx context.Context, userID string, settings CompanySettings) (*Company, error) {
	if userID == "" {
		return nil, validationErrorf("owner user id is required")
	}
	cs, err := settings.normalize()
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	c, err := scanCompany(tx.QueryRow(ctx, `
		INSERT INTO companies (name, tax_id, branch_code, address, phone, email, default_vat_rate,
		                       quotation_validity_days, invoice_due_days, ai_monthly_quota)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+companyColumns,
		cs.Name, cs.TaxID, cs.BranchCode, cs.Address, cs.Phone, cs.Email,
		cs.DefaultVATRate, cs.QuotationValidityDays, cs.InvoiceDueDays, cs.AIMonthlyQuota,
	))
	if err != nil {
		return nil, wrapDBError(err, "create company %q", cs.Name)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO company_members (company_id, user_id, role) VALUES ($1, $2, $3)`,
		c.ID, userID, RoleOwner,
	); err != nil {
		return nil, wrapDBError(err, "add company owner")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return c, nil
}

func (s *companyService) GetMembership(ctx context.Context, companyID int, userID string) (*Membership, error) {
	m := &Membership{}
	err := s.pool.QueryRow(ctx, `
		SELECT m.company_id, c.name, m.user_id, m.role
		FROM company_members m
		JOIN companies c ON c.id = m.company_id
		WHERE m.company_id = $1 AND m.user_id = $2`,
		companyID, userID,
	).Scan(&m.CompanyID, &m.CompanyName, &m.UserID, &m.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user is not a member of company %d: %w", companyID, ErrForbidden)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (s *companyService) ListCompaniesForUser(ctx context.Context, userID string) ([]Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.company_id, c.name, m.user_id, m.role
		FROM company_members m
		JOIN companies c ON c.id = m.company_id
		WHERE m.user_id = $1
		ORDER BY c.name, c.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.CompanyID, &m.CompanyName, &m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (s *companyService) AddMember(ctx context.Context, companyID int, userID, role string) (*Membership, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationErrorf("user id is required")
	}
	switch role {
	case "":
		role = RoleMember
	case RoleOwner, RoleMember:
	default:
		return nil, validationErrorf("unknown role %q", role)
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO company_members (company_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (company_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		companyID, userID, role,
	); err != nil {
		return nil, wrapDBError(err, "add member to company %d", companyID)
	}
	return s.GetMembership(ctx, companyID, userID)
}
