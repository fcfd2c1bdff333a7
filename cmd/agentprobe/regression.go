package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentprobe/internal/regression"
)

var regressionFailOnRegression bool

func init() {
	rootCmd.AddCommand(regressionCmd)
	regressionCmd.AddCommand(regressionCompareCmd)

	regressionCompareCmd.Flags().BoolVar(&regressionFailOnRegression, "fail-on-regression", false,
		"exit with a non-zero status when regressions are found")
}

var regressionCmd = &cobra.Command{
	Use:   "regression",
	Short: "Compare test runs against baselines",
}

var regressionCompareCmd = &cobra.Command{
	Use:   "compare <baseline> <current>",
	Short: "Compare two stored baselines and report regressions",
	Long: `Compare the test scores of one stored baseline against another.
The first argument is the reference run, the second the candidate.

Examples:
  # Compare the current release candidate against v1
  agentprobe regression compare v1 rc2

  # Fail CI on any regression
  agentprobe regression compare v1 rc2 --fail-on-regression`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		baseline, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		current, err := store.Load(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		detector := regression.NewDetector(cfg.Regression.Threshold, logger)
		report, err := detector.Compare(baseline.Name, baseline.Results, current.Results)
		if err != nil {
			return err
		}

		if err := printReport(report); err != nil {
			return err
		}
		if regressionFailOnRegression && report.HasRegressions() {
			return fmt.Errorf("%d regression(s) detected", report.Regressions)
		}
		return nil
	},
}

func printReport(report *regression.RegressionReport) error {
	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEST\tBASELINE\tCURRENT\tDELTA\tCHANGE")
	for _, cmp := range report.Comparisons {
		change := ""
		switch {
		case cmp.IsRegression:
			change = "REGRESSION"
		case cmp.IsImprovement:
			change = "improvement"
		case cmp.IsNew:
			change = "new"
		case cmp.IsRemoved:
			change = "removed"
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%+.3f\t%s\n",
			cmp.TestName, cmp.BaselineScore, cmp.CurrentScore, cmp.Delta, change)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d tests: %d regressions, %d improvements, %d unchanged, %d new, %d removed (threshold %.2f)\n",
		report.TotalTests, report.Regressions, report.Improvements,
		report.Unchanged, report.New, report.Removed, report.Threshold)
	return nil
}
