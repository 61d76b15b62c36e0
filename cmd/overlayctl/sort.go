package main

import (
	"fmt"
	"os"
	"strings"

	"comment-overlay/internal/overlay"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var sortOutput string

var sortCmd = &cobra.Command{
	Use:   "sort <file> [file...]",
	Short: "Sort comment records in overlay files by time",
	Long: `Sort the <d> records between <i> and </i> by their time parameter.
Each input is written to <name>_sorted.xml unless --output is given, which
is only allowed with a single input. Files are processed concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sortOutput != "" && len(args) > 1 {
			return fmt.Errorf("--output can only be used with a single input file")
		}

		summaries := make([]overlay.SortSummary, len(args))
		outputs := make([]string, len(args))
		var g errgroup.Group
		for i, in := range args {
			outputs[i] = sortedName(in)
			if sortOutput != "" {
				outputs[i] = sortOutput
			}
			g.Go(func() error {
				sum, err := sortFile(in, outputs[i])
				if err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				summaries[i] = sum
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, in := range args {
			sum := summaries[i]
			fmt.Fprintf(out, "Sorted %s -> %s\n", in, outputs[i])
			fmt.Fprintf(out, "  Total records: %d\n", sum.Records)
			if sum.MaxTime > 0 {
				fmt.Fprintf(out, "  Time range: %.1fs - %.1fs\n", sum.MinTime, sum.MaxTime)
			}
		}
		return nil
	},
}

func init() {
	sortCmd.Flags().StringVarP(&sortOutput, "output", "o", "", "output file (single input only)")
}

func sortFile(in, out string) (overlay.SortSummary, error) {
	src, err := os.Open(in)
	if err != nil {
		return overlay.SortSummary{}, err
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return overlay.SortSummary{}, err
	}
	sum, err := overlay.SortWire(src, dst)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return sum, err
}

func sortedName(in string) string {
	if strings.HasSuffix(in, ".xml") {
		return strings.TrimSuffix(in, ".xml") + "_sorted.xml"
	}
	return in + "_sorted.xml"
}
