package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/service"
)

// EquipmentCmd groups asset administration.
func EquipmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equipment",
		Short: "Manage equipment",
	}
	cmd.AddCommand(equipmentCreateCmd(), equipmentDueCmd())
	return cmd
}

func equipmentCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Register equipment and print its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("type")
			serial, _ := cmd.Flags().GetString("serial")
			supplier, _ := cmd.Flags().GetString("supplier")
			building, _ := cmd.Flags().GetString("building")
			floor, _ := cmd.Flags().GetString("floor")
			room, _ := cmd.Flags().GetString("room")
			interval, _ := cmd.Flags().GetInt("service-interval-days")

			input := service.CreateEquipmentInput{
				Name:         args[0],
				Type:         kind,
				SerialNumber: serial,
				SupplierName: supplier,
				Location:     domain.Location{Building: building, Floor: floor, Room: room},
			}
			if interval > 0 {
				input.ServiceIntervalDays = &interval
			}

			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			equipment, err := env.services.Equipment.Create(cmd.Context(), operator, input)
			if err != nil {
				return fmt.Errorf("failed to register equipment: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s: %s\n", equipment.Code, equipment.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", equipment.ID)
			return nil
		},
	}
	cmd.Flags().String("type", "", "equipment type")
	cmd.Flags().String("serial", "", "serial number")
	cmd.Flags().String("supplier", "", "supplier name")
	cmd.Flags().String("building", "", "building")
	cmd.Flags().String("floor", "", "floor")
	cmd.Flags().String("room", "", "room")
	cmd.Flags().Int("service-interval-days", 0, "preventive service interval")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func equipmentDueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List equipment due for preventive maintenance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")

			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			due, err := env.services.Equipment.DueForMaintenance(cmd.Context(), operator, days)
			if err != nil {
				return fmt.Errorf("failed to load maintenance schedule: %w", err)
			}
			return printMaintenanceDue(cmd.OutOrStdout(), due)
		},
	}
	cmd.Flags().Int("days", service.DefaultMaintenanceWindowDays, "lookahead window in days")
	return cmd
}

func printMaintenanceDue(out io.Writer, due []domain.MaintenanceDue) error {
	if len(due) == 0 {
		fmt.Fprintln(out, "No equipment due for maintenance.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tDUE\tDAYS")
	for _, item := range due {
		days := fmt.Sprintf("%d", item.DaysUntilDue)
		if item.Overdue {
			days += " (overdue)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.Equipment.Code, item.Equipment.Name, item.DueDate.Format("2006-01-02"), days)
	}
	return w.Flush()
}
