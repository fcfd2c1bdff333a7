package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.AddCommand(traceListCmd)
	traceCmd.AddCommand(traceShowCmd)
	traceCmd.AddCommand(traceDiffCmd)
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect stored traces",
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored trace IDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.ListTraces(cmd.Context())
		if err != nil {
			return err
		}

		if outputJSON {
			return json.NewEncoder(os.Stdout).Encode(ids)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var traceShowCmd = &cobra.Command{
	Use:   "show <trace-id>",
	Short: "Show a trace's timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		tr, err := store.GetTrace(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if outputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tr)
		}

		fmt.Printf("Trace: %s\n", tr.TraceID)
		fmt.Printf("Agent: %s", tr.AgentName)
		if tr.Model != "" {
			fmt.Printf(" (%s)", tr.Model)
		}
		fmt.Printf("\nTokens: %d in / %d out, Latency: %dms\n\n",
			tr.TotalInputTokens, tr.TotalOutputTokens, tr.TotalLatencyMS)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tTYPE\tDETAIL\tLATENCY")
		for _, turn := range tr.Turns {
			switch turn.Type {
			case trace.TurnLLMCall:
				fmt.Fprintf(w, "%d\tllm_call\t%s (%d/%d tok)\t%dms\n",
					turn.Seq, turn.LLMCall.Model, turn.LLMCall.InputTokens,
					turn.LLMCall.OutputTokens, turn.LLMCall.LatencyMS)
			case trace.TurnToolCall:
				status := "ok"
				if !turn.ToolCall.Success {
					status = "FAILED"
				}
				fmt.Fprintf(w, "%d\ttool_call\t%s (%s)\t%dms\n",
					turn.Seq, turn.ToolCall.ToolName, status, turn.ToolCall.LatencyMS)
			}
		}
		return w.Flush()
	},
}

var traceDiffCmd = &cobra.Command{
	Use:   "diff <trace-id-a> <trace-id-b>",
	Short: "Structurally compare two stored traces",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		a, err := store.GetTrace(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		b, err := store.GetTrace(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		report := trace.NewDiffer(nil, logger).Diff(a, b)

		if outputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("Output matches: %v\n", report.OutputMatches)
		fmt.Printf("Tool sequence matches: %v\n", report.ToolSequenceMatch)
		fmt.Printf("Token delta: %+d\n", report.TokenDelta)
		fmt.Printf("Latency delta: %+dms\n", report.LatencyDeltaMS)
		fmt.Printf("Overall similarity: %.4f\n", report.OverallSimilarity)

		if len(report.ToolCallDiffs) > 0 {
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DIMENSION\tEXPECTED\tACTUAL\tSIMILARITY")
			for _, item := range report.ToolCallDiffs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n",
					item.Dimension, item.Expected, item.Actual, item.Similarity)
			}
			return w.Flush()
		}
		return nil
	},
}
