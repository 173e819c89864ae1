package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "requestctl",
		Short:         "Staff tools for client service requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newListCmd(),
		newReviewCmd(),
		newTypesCmd(),
	)
	return cmd
}
