package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldops/maintenance-service/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "maintctl",
		Short: "Administration tool for the maintenance service",
		Long: `maintctl applies migrations, provisions accounts and equipment,
and inspects tickets directly against the service database.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.UserCmd())
	rootCmd.AddCommand(cli.EquipmentCmd())
	rootCmd.AddCommand(cli.TicketCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
