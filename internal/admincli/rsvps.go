package admincli

import (
	"context"
	"fmt"
	"time"

	service "github.com/okian/rsvp/internal/app"
	"github.com/spf13/cobra"
)

func (c *cli) rsvpsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rsvps",
		Short: "Inspect stored RSVPs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List RSVPs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				rsvps, err := svc.ListRSVPs(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.asJSON {
					return c.printJSON(out, rsvps)
				}
				for _, r := range rsvps {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", r.CreatedAt.Format(time.RFC3339), r.GroupID, r.GuestName, r.DinnerChoice)
				}
				fmt.Fprintf(out, "%d rsvps\n", len(rsvps))
				return nil
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print guest and dinner totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				st, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.asJSON {
					return c.printJSON(out, st)
				}
				fmt.Fprintf(out, "guests: %d\nparties: %d\nvegetarian: %d\nfish: %d\nmeat: %d\n",
					st.TotalGuests, st.TotalParties, st.VegetarianCount, st.FishCount, st.MeatCount)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every RSVP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.checkConfirm(); err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				n, err := svc.DeleteAllRSVPs(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rsvps\n", n)
				return nil
			})
		},
	}
	c.confirmFlag(clearCmd)

	cmd.AddCommand(listCmd, statsCmd, clearCmd)
	return cmd
}
