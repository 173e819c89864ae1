package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/modules/servicerequests/presentation/controllers/dtos"
)

func newListCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list <service-type>",
		Short: "List requests of a service type, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := servicetype.Parse(args[0])
			if err != nil {
				return err
			}
			params := &servicerequest.FindParams{Limit: limit}
			if status != "" {
				if params.Status, err = servicerequest.ParseStatus(status); err != nil {
					return err
				}
			}

			svc, closeStore, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			items, err := svc.List(cmd.Context(), t, params)
			if err != nil {
				return err
			}
			out := dtos.ListResponse{Items: make([]dtos.ServiceRequest, 0, len(items))}
			for _, sr := range items {
				out.Items = append(out.Items, dtos.ToServiceRequest(sr))
			}
			out.Total = len(out.Items)
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only requests with this status (pending|in-progress|completed|rejected)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of requests (0 = all)")
	return cmd
}
