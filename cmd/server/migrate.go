package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/omi/internal/config"
)

// newMigrateCmd applies the schema and exits. Both backends migrate on open,
// so this is openStore followed by Close; it lets deploy pipelines run the
// DDL before new replicas start.
func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := cfg.Log.NewLogger()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			logger.Info("schema applied", slog.String("backend", store.Backend()))
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", store.Backend())
			return nil
		},
	}
}
