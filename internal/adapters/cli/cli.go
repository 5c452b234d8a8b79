package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sme-billing/internal/config"
	"sme-billing/internal/logger"
)

var version = "dev"

// runtime is filled in by the root command before any subcommand runs.
type runtime struct {
	cfg *config.Config
}

// NewRootCommand builds the billing command tree.
func NewRootCommand() *cobra.Command {
	rt := &runtime{}
	root := &cobra.Command{
		Use:   "billing",
		Short: "SME billing API server and operator tools",
		Long: `billing runs the quotation and invoice API for Thai SMEs and provides
operator commands for migrations, health checks and quick calculations.

Configuration is read from the environment, optionally via a .env file in the
working directory.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			rt.cfg = config.Load()
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				rt.cfg.Log.Level = level
			}
			return logger.Setup(rt.cfg.Log)
		},
	}
	root.PersistentFlags().String("log-level", "", "override LOG_LEVEL (trace, debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newVerifyDBCommand(rt),
		newVerifyAICommand(rt),
		newExpireQuotationsCommand(rt),
		newSetQuotaCommand(rt),
		newBahtTextCommand(),
		newCalcCommand(),
	)
	return root
}

// Execute runs the root command until it finishes or the process receives SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
