package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldops/maintenance-service/internal/persistence"
)

// MigrateCmd applies the SQL schema.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := persistence.RunMigrationsFrom(cmd.Context(), env.pg.PoolHandle(), dir, env.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Migrations applied")
			return nil
		},
	}
	cmd.Flags().String("dir", persistence.DefaultMigrationsDir, "directory containing .sql migrations")
	return cmd
}
