package main

import (
	"fmt"
	"strings"

	"github.com/marcelsud/webhook-relay/routes"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [sources.yaml]",
		Short: "Validate a source policy file and show where each source forwards",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "sources.yaml"
			if len(args) == 1 {
				file = args[0]
			}

			loader := routes.NewLoader(routes.Defaults{Mode: webhook.Synchronous, Policy: webhook.Honest})
			if err := loader.Load(file); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			sources := loader.List()
			fmt.Fprintf(out, "%s: %d source(s)\n", file, len(sources))
			for _, s := range sources {
				fmt.Fprintf(out, "\n%s\n", s.Name)
				fmt.Fprintf(out, "  mode:       %s\n", s.Mode)
				fmt.Fprintf(out, "  response:   %s\n", s.Policy)
				fmt.Fprintf(out, "  verify:     %t\n", s.Verify)
				fmt.Fprintf(out, "  signed:     %t\n", !s.SigningSecret.IsZero())
				fmt.Fprintf(out, "  target key: %s\n", s.TargetKey(""))

				variants := make([]string, 0, len(s.Variants))
				for name := range s.Variants {
					variants = append(variants, name+" -> "+s.TargetKey(name))
				}
				if len(variants) > 0 {
					fmt.Fprintf(out, "  variants:   %s\n", strings.Join(variants, ", "))
				}
			}
			return nil
		},
	}
}
