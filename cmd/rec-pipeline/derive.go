package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshintel/rec-pipeline/internal/jsonl"
	"github.com/meshintel/rec-pipeline/internal/outcome"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive normalized outcomes from exported events",
	Long: `Derive streams an events JSONL file through the outcome rules and writes
one outcome per qualifying event. Events that carry no signal (impressions,
unparseable dwell, unknown types) are dropped. The same event always yields
the same outcome, so rerunning is safe.`,
	RunE: runDerive,
}

func init() {
	deriveCmd.Flags().String("events", "data/events.jsonl", "input events JSONL file")
	deriveCmd.Flags().String("out", "data/outcomes.jsonl", "output outcomes JSONL file")

	rootCmd.AddCommand(deriveCmd)
}

func runDerive(cmd *cobra.Command, args []string) error {
	eventsPath, _ := cmd.Flags().GetString("events")
	outPath, _ := cmd.Flags().GetString("out")

	w, err := jsonl.NewWriter(outPath)
	if err != nil {
		return err
	}

	derived := 0
	stats, err := jsonl.ReadFile(eventsPath, func(ev types.InteractionEvent) error {
		o, ok := outcome.Derive(ev)
		if !ok {
			return nil
		}
		derived++
		return w.Write(o)
	})
	if err != nil {
		w.Abort()
		return err
	}
	if err := w.Commit(); err != nil {
		return err
	}

	fmt.Printf("Derived %d outcomes from %d events (%d malformed lines skipped) -> %s\n",
		derived, stats.Read, stats.Skipped, outPath)
	return nil
}
