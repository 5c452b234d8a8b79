package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"sme-billing/internal/adapters/web"
	"sme-billing/internal/ai"
	"sme-billing/internal/app"
	"sme-billing/internal/config"
	"sme-billing/internal/core"
	"sme-billing/internal/db"
	"sme-billing/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(rt *runtime) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the JSON API until interrupted. In-flight requests are given a short
grace period to finish on shutdown.

Required environment variables:
  DATABASE_URL     - Postgres connection string
  AUTH_JWT_SECRET  - HS256 secret of the identity provider

AI extraction is enabled only when OPENAI_API_KEY is set.`,
		Example: `  billing serve
  billing serve --migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Serve(cmd.Context(), rt.cfg, migrate || rt.cfg.Server.MigrateOnStart)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

// NewApplication wires the stores and the AI gateway into an ApplicationService.
func NewApplication(cfg *config.Config, pool *pgxpool.Pool) (app.ApplicationService, error) {
	var extractor app.Extractor
	if cfg.AI.APIKey != "" {
		completer, err := ai.NewOpenAICompleter(cfg.AI)
		if err != nil {
			return nil, err
		}
		extractor = ai.NewGateway(completer, ai.NewUsageStore(pool), cfg.AI.Timeout)
	} else {
		log := logger.WithComponent("wire")
		log.Warn().Msg("OPENAI_API_KEY is not set; AI extraction is disabled")
	}
	return app.NewAppService(
		core.NewCompanyService(pool),
		core.NewCustomerService(pool),
		core.NewProductService(pool),
		core.NewQuotationService(pool),
		core.NewInvoiceService(pool),
		extractor,
	), nil
}

// Serve runs the HTTP API until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	log := logger.WithComponent("server")

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	svc, err := NewApplication(cfg, pool)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           web.NewHandler(svc, cfg.Server, cfg.Auth),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
