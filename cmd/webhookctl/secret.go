package main

import (
	"fmt"

	"github.com/marcelsud/webhook-relay/webhook/signature"
	"github.com/spf13/cobra"
)

func newSecretCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate a whsec_ signing secret for a source's signing_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := signature.GenerateSecret(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", 32, fmt.Sprintf("secret size in bytes (%d-%d)", signature.MinSecretBytes, signature.MaxSecretBytes))
	return cmd
}
