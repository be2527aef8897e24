package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bed-alerts/internal/infrastructure/dynamo"
	"github.com/bed-alerts/internal/logger"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the DynamoDB notifications table if it does not exist.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		if err := dynamo.Bootstrap(ctx, client, cfg.NotificationsTable); err != nil {
			return err
		}
		logger.InfoKV(ctx, "bootstrap complete", "table", cfg.NotificationsTable)
		return nil
	},
}
