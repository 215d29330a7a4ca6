package main

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/app"
	"github.com/Freeeeeet/clinic_booking/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "clinic",
		Short:         "Doctor appointment booking with payment reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSweepCommand())

	return root
}

// bootstrap загружает конфиг и создаёт логгер
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogFile)
	return cfg, logger, nil
}

// withApp собирает приложение, выполняет fn и закрывает ресурсы
func withApp(ctx context.Context, fn func(*app.App, *config.Config, *zap.Logger) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer application.Close()

	return fn(application, cfg, logger)
}
