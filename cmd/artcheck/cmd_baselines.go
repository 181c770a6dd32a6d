package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBaselinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "baselines",
		Short: "Show the baseline table and tolerance in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			table := cfg.Comparison.Baselines

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"tolerance": cfg.Comparison.Tolerance,
					"baselines": table,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tolerance: ±%.0f%%\n\n", cfg.Comparison.Tolerance*100)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tIN CARE\tSUPPRESSED VL\tIN CARE WITHIN 30 DAYS")
			for _, y := range table.Years() {
				t := table[y]
				fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\n", y, t.InCare, t.Suppressed, t.Within30)
			}
			return tw.Flush()
		},
	}
}
