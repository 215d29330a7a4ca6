package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/clinic_booking/internal/app"
	"github.com/Freeeeeet/clinic_booking/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API, Telegram bot and background sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(a *app.App, cfg *config.Config, logger *zap.Logger) error {
				logger.Info("Starting clinic booking",
					zap.String("environment", cfg.Environment),
					zap.String("http_addr", cfg.HTTPAddr))

				if migrate {
					if err := runMigrations(ctx, a, cfg, logger); err != nil {
						return err
					}
				}

				return a.Run(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before start")

	return cmd
}

func runMigrations(ctx context.Context, a *app.App, cfg *config.Config, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(a.Pool(), cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}
