package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(baselineCmd)
	baselineCmd.AddCommand(baselineListCmd)
	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselineDeleteCmd)
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage stored baselines",
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored baseline names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		if outputJSON {
			return json.NewEncoder(os.Stdout).Encode(names)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a baseline's test results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		baseline, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if outputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(baseline)
		}

		fmt.Printf("Baseline: %s\n", baseline.Name)
		if baseline.Description != "" {
			fmt.Printf("Description: %s\n", baseline.Description)
		}
		fmt.Printf("Created: %s\n\n", baseline.CreatedAt.Format("2006-01-02 15:04:05"))

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TEST\tSTATUS\tSCORE\tDURATION")
		for _, res := range baseline.Results {
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%dms\n", res.TestName, res.Status, res.Score, res.DurationMS)
		}
		return w.Flush()
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted baseline %q\n", args[0])
		return nil
	},
}
