package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"whorl/internal/ipc"
)

func newFlushCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Delete all visitor data from the daemon's store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("flush permanently deletes all visitor data; re-run with --yes to confirm")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Flush()
				if err != nil {
					return fmt.Errorf("flush: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d visitors\n", resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm deletion of all visitor data")
	return cmd
}
