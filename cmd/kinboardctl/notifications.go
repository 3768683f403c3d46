package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rpggio/kinboard/internal/bootstrap"
	"github.com/rpggio/kinboard/internal/export"
	"github.com/spf13/cobra"
)

func newNotificationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"n"},
		Short:   "Work with the notification log",
	}
	cmd.AddCommand(
		newNotificationsListCmd(opts),
		newNotificationsExportCmd(opts),
		newNotificationsImportCmd(opts),
	)
	return cmd
}

func newNotificationsListCmd(opts *rootOptions) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				entries, err := app.Notifications.ListNewestFirst(ctx)
				if err != nil {
					return err
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(entries)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIMESTAMP\tKIND\tPHONE\tFILE\tDESCRIPTION")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Kind, e.Phone, e.File, e.Description)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most N entries (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newNotificationsExportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export notifications to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				entries, err := app.Notifications.ListNewestFirst(ctx)
				if err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := export.WriteXLSX(f, entries); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d notifications to %s\n", len(entries), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "notifications.xlsx", "output file")
	return cmd
}

func newNotificationsImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-legacy FILE",
		Short: "Append entries from a legacy notifications.json array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.ImportLegacyFile(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d notifications\n", n)
				return nil
			})
		},
	}
}
