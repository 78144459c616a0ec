package main

import (
	"encoding/json"
	"fmt"

	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/internal/storage"
	"github.com/marcelsud/webhook-relay/routes"
	"github.com/spf13/cobra"
)

func newMissedCmd() *cobra.Command {
	var source string
	var undefined bool
	var limit int

	cmd := &cobra.Command{
		Use:   "missed",
		Short: "Print recorded failed deliveries as JSON, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, err := storage.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close(ctx)
			service := failure.NewService(repo)

			var result any
			if undefined {
				result, err = service.QueryUndefined(ctx, limit)
			} else {
				result, err = service.Query(ctx, failure.Filter{Source: routes.Canonical(source)})
			}
			if err != nil {
				return fmt.Errorf("querying failure store: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "only records of this source")
	cmd.Flags().BoolVar(&undefined, "undefined", false, "list requests that matched no route instead")
	cmd.Flags().IntVar(&limit, "limit", 100, "with --undefined, most recent N entries (0 = all)")
	return cmd
}
