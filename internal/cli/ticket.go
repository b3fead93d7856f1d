package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/maintenance-service/internal/domain"
)

// TicketCmd groups ticket inspection.
func TicketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Inspect tickets",
	}
	cmd.AddCommand(ticketShowCmd())
	return cmd
}

func ticketShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [ticket-id]",
		Short: "Show a ticket and its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			ticket, err := env.services.Lifecycle.Get(cmd.Context(), operator, args[0])
			if err != nil {
				return err
			}
			return printTicket(cmd.OutOrStdout(), ticket)
		},
	}
}

func printTicket(out io.Writer, ticket *domain.Ticket) error {
	fmt.Fprintf(out, "%s  [%s]  %s\n", ticket.TicketNumber, ticket.Status, ticket.IssueType)
	fmt.Fprintf(out, "  Equipment: %s\n", ticket.EquipmentID)
	fmt.Fprintf(out, "  Priority:  %s\n", ticket.Priority)
	fmt.Fprintf(out, "  Raised by: %s\n", ticket.RaisedBy)
	if ticket.AssignedTo != nil {
		fmt.Fprintf(out, "  Assigned:  %s\n", *ticket.AssignedTo)
	}
	if ticket.ReopenCount > 0 {
		fmt.Fprintf(out, "  Reopened:  %d\n", ticket.ReopenCount)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSTATUS\tACTOR\tNOTES")
	for _, entry := range ticket.Timeline {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.Timestamp.Format(time.RFC3339), entry.Status, entry.ActorID, entry.Notes)
	}
	return w.Flush()
}
