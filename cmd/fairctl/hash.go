package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/provably_fair"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <server-seed>",
		Short: "Print the SHA-256 commitment of a server seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), provably_fair.Commit(args[0]))

			return err
		},
	}
}
