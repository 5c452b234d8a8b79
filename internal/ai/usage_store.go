package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sme-billing/internal/core"
)

type pgUsageStore struct {
	pool *pgxpool.Pool
}

// NewUsageStore returns a UsageStore backed by ai_usage_logs.
func NewUsageStore(pool *pgxpool.Pool) UsageStore {
	return &pgUsageStore{pool: pool}
}

func (s *pgUsageStore) MonthlyQuota(ctx context.Context, companyID int) (int, error) {
	var quota int
	err := s.pool.QueryRow(ctx, `SELECT ai_monthly_quota FROM companies WHERE id = $1`, companyID).Scan(&quota)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("company %d: %w", companyID, core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read ai quota: %w", err)
	}
	return quota, nil
}

func (s *pgUsageStore) CountSuccessful(ctx context.Context, companyID int, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM ai_usage_logs
		WHERE company_id = $1 AND status = $2 AND created_at >= $3`,
		companyID, StatusSuccess, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ai usage: %w", err)
	}
	return n, nil
}

func (s *pgUsageStore) RecordUsage(ctx context.Context, rec UsageRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ai_usage_logs
			(company_id, user_id, kind, status, error_message, model, prompt_tokens, completion_tokens, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.CompanyID, rec.UserID, string(rec.Kind), rec.Status, rec.ErrorMessage, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record ai usage: %w", err)
	}
	return nil
}
