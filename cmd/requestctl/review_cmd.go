package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/modules/servicerequests/presentation/controllers/dtos"
)

func newReviewCmd() *cobra.Command {
	var (
		status string
		notes  string
	)
	cmd := &cobra.Command{
		Use:   "review <service-type> <id>",
		Short: "Move a request to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := servicetype.Parse(args[0])
			if err != nil {
				return err
			}
			to, err := servicerequest.ParseStatus(status)
			if err != nil {
				return err
			}
			var notesPtr *string
			if cmd.Flags().Changed("notes") {
				notesPtr = &notes
			}

			svc, closeStore, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			sr, err := svc.Review(cmd.Context(), t, args[1], to, notesPtr)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dtos.ToServiceRequest(sr))
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "New status (in-progress|completed|rejected)")
	cmd.Flags().StringVar(&notes, "notes", "", "Staff notes shown to the client")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}
