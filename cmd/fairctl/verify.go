package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/provably_fair"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay a revealed round against its published commitment",
		Long: `Replay a revealed round. The server seed is checked against the hash that was
published before the round, then the ticket is recomputed and compared with the claim.

Exits non-zero when either check fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()

			var record model.RoundRecord

			record.ClientSeed, _ = f.GetString("client-seed")
			record.ServerSeed, _ = f.GetString("server-seed")
			record.ServerSeedHash, _ = f.GetString("server-seed-hash")
			record.Nonce, _ = f.GetInt64("nonce")
			record.ClaimedTicket, _ = f.GetInt("ticket")

			result, err := provably_fair.Verify(record)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "computed hash:   %s\n", result.ComputedHash)

			if result.ComputedTicket != 0 {
				fmt.Fprintf(out, "computed ticket: %d\n", result.ComputedTicket)
			}

			fmt.Fprintf(out, "claimed ticket:  %d\n", result.ClaimedTicket)

			if !result.Valid {
				fmt.Fprintf(out, "result:          INVALID (%s)\n", result.Reason)

				return fmt.Errorf("%w: %s", errIntegrity, result.Reason)
			}

			fmt.Fprintln(out, "result:          VALID")

			return nil
		},
	}

	f := cmd.Flags()
	f.String("client-seed", "", "client seed used for the round")
	f.String("server-seed", "", "revealed server seed")
	f.String("server-seed-hash", "", "hash published before the round")
	f.Int64("nonce", 0, "round nonce")
	f.Int("ticket", 0, "ticket the operator reported")

	for _, name := range []string{"client-seed", "server-seed", "server-seed-hash", "ticket"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
