package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/modules/servicerequests/presentation/controllers/dtos"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Print the service type definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), dtos.ToDefinitions(servicetype.All()))
		},
	}
}
