package main

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/app"
	"github.com/Freeeeeet/clinic_booking/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSweepCommand() *cobra.Command {
	var (
		passes   int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Release slots left reserved by failed bookings and cancellations",
		Long: `Finds reserved slots with no appointment holding them and releases them.
A slot is released only when it is still orphaned on the next pass.
Passes are separated by --interval to let in-flight bookings finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passes < 1 {
				return fmt.Errorf("passes must be >= 1")
			}

			return withApp(cmd.Context(), func(a *app.App, _ *config.Config, logger *zap.Logger) error {
				for i := 1; i <= passes; i++ {
					if i > 1 {
						select {
						case <-time.After(interval):
						case <-cmd.Context().Done():
							return cmd.Context().Err()
						}
					}
					report, err := a.Reconcile.Sweep(cmd.Context())
					if err != nil {
						return err
					}
					logger.Info("Sweep pass finished",
						zap.Int("pass", i),
						zap.Int("checked", report.Checked),
						zap.Int("suspected", report.Suspected),
						zap.Int("released", report.Released))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&passes, "passes", 2, "Number of sweep passes")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Pause between passes")

	return cmd
}
