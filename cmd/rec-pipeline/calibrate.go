package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/rec-pipeline/internal/blend"
	"github.com/meshintel/rec-pipeline/internal/jsonl"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Suggest per-source blend multipliers from impressions and outcomes",
	Long: `Calibrate compares each traffic source's objective rate (a weighted blend
of like, watchlist, dwell_long, and watch rates over impressions) to the
overall rate, shrinks the ratio toward 1, clamps it, and writes a suggestion
document. The suggestion is advisory: review it, then merge the multipliers
into the online blending configuration by hand.`,
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().String("impressions", "data/impressions.jsonl", "input impressions JSONL file")
	calibrateCmd.Flags().String("outcomes", "data/outcomes.jsonl", "input outcomes JSONL file")
	calibrateCmd.Flags().String("objective", "like:0.7,watchlist:0.3", "weighted objective spec")
	calibrateCmd.Flags().Float64("alpha", 0.5, "shrinkage exponent in [0, 1]")
	calibrateCmd.Flags().Float64("min", 0.7, "multiplier clamp floor")
	calibrateCmd.Flags().Float64("max", 1.3, "multiplier clamp ceiling")
	calibrateCmd.Flags().String("out", "data/suggested_source_multipliers.json", "output suggestion file")

	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	imprPath, _ := cmd.Flags().GetString("impressions")
	outcomesPath, _ := cmd.Flags().GetString("outcomes")
	outPath, _ := cmd.Flags().GetString("out")

	aliases := viper.GetStringMapString("calibrate.source_aliases")
	if len(aliases) == 0 {
		aliases = blend.DefaultSourceAliases()
	}

	cfg := types.CalibrationConfig{
		Objective:     flagOrConfigString(cmd, "objective", "calibrate.objective"),
		Alpha:         flagOrConfigFloat(cmd, "alpha", "calibrate.alpha"),
		ClampMin:      flagOrConfigFloat(cmd, "min", "calibrate.clamp_min"),
		ClampMax:      flagOrConfigFloat(cmd, "max", "calibrate.clamp_max"),
		SourceAliases: aliases,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	acc := blend.NewAccumulator(cfg.SourceAliases)

	imprStats, err := jsonl.ReadFile(imprPath, func(imp types.Impression) error {
		acc.AddImpression(imp.Source)
		return nil
	})
	if err != nil {
		return err
	}
	outStats, err := jsonl.ReadFile(outcomesPath, func(o types.Outcome) error {
		acc.AddOutcome(o.Source, string(o.OutcomeType))
		return nil
	})
	if err != nil {
		return err
	}

	inputs := types.CalibrationInputs{
		ImpressionsFile: absPath(imprPath),
		OutcomesFile:    absPath(outcomesPath),
		Objective:       cfg.Objective,
		Alpha:           cfg.Alpha,
		Clamp:           [2]float64{cfg.ClampMin, cfg.ClampMax},
	}
	suggestion, err := acc.Suggest(cfg, inputs, time.Now())
	if err != nil {
		return err
	}
	if err := jsonl.WriteJSONAtomic(outPath, suggestion); err != nil {
		return err
	}

	fmt.Printf("Done. Read %d impressions, %d outcomes.\n", imprStats.Read, outStats.Read)
	fmt.Printf("Wrote: %s\n", outPath)
	return nil
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
