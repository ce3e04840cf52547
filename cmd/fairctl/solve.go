package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/converter"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/rtp"
)

// Box is the file format read by solve.
type Box struct {
	Name      string             `yaml:"name"`
	BoxPrice  decimal.Decimal    `yaml:"box_price"`
	TargetRTP float64            `yaml:"target_rtp"`
	Items     []model.ConfigItem `yaml:"items"`
	Bands     []rtp.Band         `yaml:"bands"`
}

func loadBox(path string) (Box, error) {
	var box Box

	data, err := os.ReadFile(path)
	if err != nil {
		return box, err
	}

	if err = yaml.Unmarshal(data, &box); err != nil {
		return box, fmt.Errorf("parse %s: %w", path, err)
	}

	return box, nil
}

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Assign tier probabilities for a box so it returns a target RTP",
		Example: `  fairctl solve --file box.yaml
  fairctl solve --file box.yaml --target-rtp 0.9 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()

			path, _ := f.GetString("file")
			asJSON, _ := f.GetBool("json")

			box, err := loadBox(path)
			if err != nil {
				return err
			}

			if f.Changed("target-rtp") {
				box.TargetRTP, _ = f.GetFloat64("target-rtp")
			}

			cfg := rtp.DefaultConfig()
			if len(box.Bands) > 0 {
				cfg.Bands = box.Bands
			}

			result := rtp.NewSolver(cfg).Solve(box.Items, box.BoxPrice, box.TargetRTP)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				if err = enc.Encode(result); err != nil {
					return err
				}
			} else if result.Success {
				if err = printAllocation(cmd, box, result); err != nil {
					return err
				}
			}

			if !result.Success {
				return fmt.Errorf("%s", result.Error)
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.String("file", "", "box definition (yaml)")
	f.Float64("target-rtp", 0, "override the file's target_rtp")
	f.Bool("json", false, "print the full result as JSON")

	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func printAllocation(cmd *cobra.Command, box Box, result model.AutoConfigResult) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "box\t%s\tprice %s\ttarget rtp %.4f\n", box.Name, box.BoxPrice, box.TargetRTP)
	fmt.Fprintln(w, "TIER\tITEMS\tAVG VALUE\tPROBABILITY\tTICKETS\tEV")

	for _, tier := range result.Tiers {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\t%d\t%.4f\n",
			tier.DisplayName,
			tier.ItemCount,
			tier.AvgValue,
			converter.ConvertProbabilityToPercentString(tier.Probability),
			converter.ConvertProbabilityToTickets(tier.Probability),
			tier.EVContribution)
	}

	fmt.Fprintf(w, "total ev %.4f\tactual rtp %.6f\thouse edge %.6f\n", result.TotalEV, result.ActualRTP, result.HouseEdge)

	return w.Flush()
}
