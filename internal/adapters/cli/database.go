package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"sme-billing/internal/config"
	"sme-billing/internal/db"
	"sme-billing/internal/logger"
)

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.Database)
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply the SQL migrations embedded in the binary. Migrations already applied
are skipped; a migration whose file changed after it was applied is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd.Context(), rt.cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All migrations applied.")
			return nil
		},
	}
}

func newVerifyDBCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-db",
		Short: "Check database connectivity and migration state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.WithComponent("verify-db")
			out := cmd.OutOrStdout()

			pool, err := openPool(ctx, rt.cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			start := time.Now()
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := pool.Ping(pingCtx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			log.Info().Dur("latency", time.Since(start)).Msg("database reachable")
			fmt.Fprintln(out, "[CONNECT] ok")

			embedded, err := db.Migrations()
			if err != nil {
				return err
			}
			applied := make(map[string]string)
			rows, err := pool.Query(ctx, "SELECT version, checksum FROM schema_migrations")
			if err != nil {
				return fmt.Errorf("read schema_migrations (has migrate run?): %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var version, checksum string
				if err := rows.Scan(&version, &checksum); err != nil {
					return fmt.Errorf("scan schema_migrations: %w", err)
				}
				applied[version] = checksum
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("read schema_migrations: %w", err)
			}

			var pending int
			for _, m := range embedded {
				checksum, ok := applied[m.Version]
				switch {
				case !ok:
					pending++
					fmt.Fprintf(out, "[PENDING]  %s\n", m.Filename)
				case checksum != m.Checksum:
					fmt.Fprintf(out, "[MISMATCH] %s\n", m.Filename)
					return fmt.Errorf("checksum mismatch for %s", m.Filename)
				default:
					fmt.Fprintf(out, "[APPLIED]  %s\n", m.Filename)
				}
			}

			var companies, invoices int
			if err := pool.QueryRow(ctx, "SELECT (SELECT count(*) FROM companies), (SELECT count(*) FROM invoices)").
				Scan(&companies, &invoices); err == nil {
				fmt.Fprintf(out, "companies: %d, invoices: %d\n", companies, invoices)
			}
			if pending > 0 {
				return fmt.Errorf("%d migration(s) pending", pending)
			}
			return nil
		},
	}
}

func newExpireQuotationsCommand(rt *runtime) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "expire-quotations",
		Short: "Mark open quotations past their validity date as expired",
		Long: `Move draft and sent quotations whose valid-until date is before the given day
to expired. Intended to run once a day from cron.`,
		Example: `  billing expire-quotations
  billing expire-quotations --as-of 2025-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if asOf != "" {
				t, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				day = t
			}

			pool, err := openPool(cmd.Context(), rt.cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			svc, err := NewApplication(rt.cfg, pool)
			if err != nil {
				return err
			}
			n, err := svc.ExpireQuotations(cmd.Context(), day)
			if err != nil {
				return err
			}
			log := logger.WithComponent("expire-quotations")
			log.Info().Int64("expired", n).Time("as_of", day).Msg("done")
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d quotation(s).\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "expire quotations valid until before this date (default today, UTC)")
	return cmd
}

func newSetQuotaCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "set-quota <company-id> <quota>",
		Short: "Set a company's monthly AI extraction quota",
		Long: `Set how many successful AI extractions a company may run per calendar month.
A quota of 0 removes the limit. Company owners cannot change this through the API.`,
		Example: `  billing set-quota 12 500
  billing set-quota 12 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, err := strconv.Atoi(args[0])
			if err != nil || companyID <= 0 {
				return fmt.Errorf("invalid company id %q", args[0])
			}
			quota, err := strconv.Atoi(args[1])
			if err != nil || quota < 0 {
				return fmt.Errorf("quota must be a non-negative integer, got %q", args[1])
			}

			pool, err := openPool(cmd.Context(), rt.cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			svc, err := NewApplication(rt.cfg, pool)
			if err != nil {
				return err
			}
			c, err := svc.SetAIQuota(cmd.Context(), companyID, quota)
			if err != nil {
				return err
			}
			log := logger.WithComponent("set-quota")
			log.Info().Int("company_id", c.ID).Int("quota", c.AIMonthlyQuota).Msg("done")
			if c.AIMonthlyQuota == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: AI quota unlimited.\n", c.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: AI quota %d per month.\n", c.Name, c.AIMonthlyQuota)
			}
			return nil
		},
	}
}
