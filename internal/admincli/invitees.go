package admincli

import (
	"context"
	"fmt"
	"os"

	service "github.com/okian/rsvp/internal/app"
	"github.com/spf13/cobra"
)

func (c *cli) inviteesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitees",
		Short: "Manage the guest list",
	}

	importCmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import invitees from a CSV file with a name column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				res, err := svc.ImportCSV(ctx, f)
				if err != nil {
					return err
				}
				if err := c.printImport(cmd, res); err != nil {
					return err
				}
				if res.Failed > 0 {
					return fmt.Errorf("%w: %d of %d", ErrImportFailures, res.Failed, res.Total)
				}
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List normalized invitee names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				invitees, err := svc.ListInvitees(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.asJSON {
					return c.printJSON(out, invitees)
				}
				for _, inv := range invitees {
					fmt.Fprintf(out, "%d\t%s\n", inv.ID, inv.NameNormalized)
				}
				fmt.Fprintf(out, "%d invitees\n", len(invitees))
				return nil
			})
		},
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of invitees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				n, err := svc.InviteeCount(ctx)
				if err != nil {
					return err
				}
				if c.asJSON {
					return c.printJSON(cmd.OutOrStdout(), map[string]int64{"count": n})
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every invitee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.checkConfirm(); err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				n, err := svc.DeleteAllInvitees(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d invitees\n", n)
				return nil
			})
		},
	}
	c.confirmFlag(clearCmd)

	cmd.AddCommand(importCmd, listCmd, countCmd, clearCmd)
	return cmd
}

func (c *cli) printImport(cmd *cobra.Command, res service.ImportResult) error {
	out := cmd.OutOrStdout()
	if c.asJSON {
		return c.printJSON(out, res)
	}
	fmt.Fprintf(out, "total: %d, successful: %d, failed: %d\n", res.Total, res.Successful, res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  row %d %q: %s\n", e.Row, e.Name, e.Error)
	}
	return nil
}
