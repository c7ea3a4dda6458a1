package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/autoclean-api/internal/database"
)

func newDBCommand(a *app) *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	var timeout time.Duration
	ping := &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured database and report its version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			m := database.NewManager(a.cfg.Database, database.WithLogger(a.logger))
			defer m.Release(context.Background())

			res, err := m.Check(ctx)
			if err != nil {
				return fmt.Errorf("ping %s database: %w", a.cfg.Database.Driver, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", res.Dialect, res.Version, res.Latency.Round(time.Microsecond))
			return nil
		},
	}
	ping.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall time allowed for the check")

	db.AddCommand(ping)
	return db
}
