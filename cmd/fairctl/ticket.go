package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/provably_fair"
)

func newTicketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Derive the ticket for a client seed, server seed and nonce",
		Example: `  fairctl ticket --client-seed lucky --server-seed 3kX9... --nonce 0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()

			clientSeed, _ := f.GetString("client-seed")
			serverSeed, _ := f.GetString("server-seed")
			nonce, _ := f.GetInt64("nonce")

			ticket, err := provably_fair.DeriveTicket(clientSeed, serverSeed, nonce)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), ticket)

			return err
		},
	}

	f := cmd.Flags()
	f.String("client-seed", "", "client seed")
	f.String("server-seed", "", "revealed server seed")
	f.Int64("nonce", 0, "round nonce")

	_ = cmd.MarkFlagRequired("client-seed")
	_ = cmd.MarkFlagRequired("server-seed")

	return cmd
}
