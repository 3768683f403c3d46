package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/kinboard/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newWhatsAppCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatsapp",
		Short: "WhatsApp provider tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "send TO TEXT...",
		Short: "Send a message synchronously and print the provider result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res := app.Sender.Send(ctx, args[0], strings.Join(args[1:], " "))
				fmt.Fprintf(cmd.OutOrStdout(), "delivered=%t detail=%s\n", res.Delivered, res.Detail)
				if !res.Delivered {
					return fmt.Errorf("message not delivered: %s", res.Detail)
				}
				return nil
			})
		},
	})
	return cmd
}
