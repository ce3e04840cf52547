package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errIntegrity marks a verification that ran but did not hold.
var errIntegrity = errors.New("round failed verification")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fairctl",
		Short: "Offline tooling for provably fair rounds and box allocations",
		Long: `fairctl recomputes commitments and tickets from seeds, replays revealed rounds and
solves tier probabilities for a box definition. It needs no server and no database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newHashCmd(),
		newTicketCmd(),
		newVerifyCmd(),
		newSolveCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
