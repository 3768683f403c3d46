package main

import (
	"fmt"

	"github.com/rpggio/kinboard/internal/domain/index"
	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect filename indices",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "next DIR PREFIX",
		Short: "Print the next index for PREFIX in DIR",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := index.NextIndex(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	})
	return cmd
}
