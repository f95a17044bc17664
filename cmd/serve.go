package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petrijr/orderdesk"
)

func newServeCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recovery, notify and purge sweeps until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			// Orders left unclaimed by a previous run are handed back first.
			if n, err := orderdesk.RecoverStuckOrders(ctx, a.svc, a.cfg.Sweeps.StuckThreshold); err != nil {
				a.logger.Error("startup recovery failed", slog.Any("error", err))
			} else if n > 0 {
				a.logger.Info("startup recovery", slog.Int("recovered", n))
			}

			if err := a.worker.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("orderdesk running", slog.String("database", a.cfg.Database.Driver), slog.String("messaging", a.cfg.Messaging.Driver))

			<-ctx.Done()
			a.worker.Stop()

			snap := a.metrics.Snapshot()
			a.logger.Info("orderdesk stopped",
				slog.Int64("orders_recovered", snap.OrdersRecovered),
				slog.Int64("notifications_sent", snap.NotificationsSent),
				slog.Int64("notifications_failed", snap.NotificationsFailed),
				slog.Int64("orders_purged", snap.OrdersPurged),
				slog.Int64("sweeps_failed", snap.SweepsFailed),
			)
			if ctx.Err() == context.Canceled {
				return nil
			}
			return ctx.Err()
		},
	}
}
