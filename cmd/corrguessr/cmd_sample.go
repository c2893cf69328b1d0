package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print one generated sample with its correlations",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				format = "json"
			}

			sample := generatorFromFlags(cmd).Generate()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sample)
			case "csv":
				w := csv.NewWriter(out)
				if err := w.Write([]string{"x", "y"}); err != nil {
					return err
				}
				for i := range sample.X {
					row := []string{
						strconv.FormatFloat(sample.X[i], 'f', -1, 64),
						strconv.FormatFloat(sample.Y[i], 'f', -1, 64),
					}
					if err := w.Write(row); err != nil {
						return err
					}
				}
				w.Flush()
				if err := w.Error(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "target=%.2f realized=%.4f\n", sample.Target, sample.Realized)
				return nil
			default:
				return fmt.Errorf("unknown format %q (valid: json, csv)", format)
			}
		},
	}

	cmd.Flags().String("format", "json", "Output format: json or csv")

	return cmd
}
