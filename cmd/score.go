package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crm-enrich/internal/scorer"
)

var (
	scoreDecay  float64
	scoreDryRun bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute recency priority scores for all contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		decay := scoreDecay
		if !cmd.Flags().Changed("decay-factor") {
			decay = cfg.Scorer.DecayPerDay
		}

		startedAt := time.Now().UTC()
		upd := scorer.NewUpdater(st, decay, scoreDryRun)
		stats, err := upd.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "score")
		}
		if !scoreDryRun {
			recordRun(ctx, st, "score", startedAt, stats.Total, stats.Updated, stats.Errors)
		}

		printScoreStats(cmd, stats, scoreDryRun)
		return nil
	},
}

func printScoreStats(cmd *cobra.Command, stats *scorer.Stats, dryRun bool) {
	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 50)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Priority Score Calculation Results")
	if dryRun {
		fmt.Fprintln(out, "(dry run: no scores were written)")
	}
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Total Records: %d\n", stats.Total)
	fmt.Fprintf(out, "Successfully Updated: %d\n", stats.Updated)
	fmt.Fprintf(out, "Errors: %d\n", stats.Errors)
	d := stats.Distribution
	fmt.Fprintln(out, "\nScore Distribution:")
	fmt.Fprintf(out, "  90-100 (Hot Leads):     %4d contacts\n", d.Hot)
	fmt.Fprintf(out, "  75-89  (High Priority): %4d contacts\n", d.High)
	fmt.Fprintf(out, "  50-74  (Medium):        %4d contacts\n", d.Medium)
	fmt.Fprintf(out, "  25-49  (Low):           %4d contacts\n", d.Low)
	fmt.Fprintf(out, "  1-24   (Very Low):      %4d contacts\n", d.VeryLow)
	fmt.Fprintf(out, "  0      (Expired):       %4d contacts\n", d.Expired)
	fmt.Fprintln(out, rule)
}

func init() {
	scoreCmd.Flags().Float64Var(&scoreDecay, "decay-factor", 5.0, "score points lost per day since signup")
	scoreCmd.Flags().BoolVar(&scoreDryRun, "dry-run", false, "compute scores without writing them")
	rootCmd.AddCommand(scoreCmd)
}
