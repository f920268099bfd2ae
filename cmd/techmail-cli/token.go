package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vrsandeep/techmail/internal/auth"
)

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Hash an admin API token for api.token_hash",
		Long:  `Prints the bcrypt hash of the token. Without an argument a random token is generated and printed too.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				generated, err := auth.GenerateToken(24)
				if err != nil {
					return err
				}
				token = generated
				fmt.Fprintf(out, "Token: %s\n", token)
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return fmt.Errorf("failed to hash token: %w", err)
			}
			fmt.Fprintf(out, "Hash: %s\n", hash)
			return nil
		},
	}
}
