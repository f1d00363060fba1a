package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshintel/rec-pipeline/internal/covisit"
	"github.com/meshintel/rec-pipeline/internal/jsonl"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the co-visitation model from derived outcomes",
	Long: `Train reads an outcomes JSONL file, keeps positive outcomes inside the
lookback window, and builds the item-item co-visitation model. The model
is rebuilt from scratch on every run and written atomically, so a crashed
run never leaves a corrupt model behind.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().String("outcomes", "data/outcomes.jsonl", "input outcomes JSONL file")
	trainCmd.Flags().Int("days", 90, "training lookback window in days")
	trainCmd.Flags().Int("topk", 200, "neighbors kept per item")
	trainCmd.Flags().Int("max-user-items", 500, "per-user distinct item cap (0 disables)")
	trainCmd.Flags().Float64("rating-threshold", 7, "minimum 0-10 rating counted as positive")
	trainCmd.Flags().String("out", "data/covisit_model.json", "output model file")

	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	outcomesPath, _ := cmd.Flags().GetString("outcomes")
	days, _ := cmd.Flags().GetInt("days")
	topK, _ := cmd.Flags().GetInt("topk")
	maxUserItems, _ := cmd.Flags().GetInt("max-user-items")
	outPath, _ := cmd.Flags().GetString("out")

	cfg := types.TrainingConfig{
		WindowDays:   days,
		TopK:         topK,
		MaxUserItems: maxUserItems,
		Positive:     types.PositivePolicy{RatingThreshold: ratingThreshold(cmd)},
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -cfg.WindowDays)

	var outcomes []types.Outcome
	readStats, err := jsonl.ReadFile(outcomesPath, func(o types.Outcome) error {
		if o.CreatedAt.Before(cutoff) {
			return nil
		}
		outcomes = append(outcomes, o)
		return nil
	})
	if err != nil {
		return err
	}

	model, stats := covisit.Train(outcomes, cfg, now)
	if err := covisit.SaveModel(model, outPath); err != nil {
		return err
	}

	fmt.Printf("Read %d outcomes (%d malformed lines skipped), %d in window\n",
		readStats.Read, readStats.Skipped, stats.Outcomes)
	fmt.Printf("Positives: %d across %d users (%d capped at %d items)\n",
		stats.Positives, stats.Users, stats.CappedUsers, cfg.MaxUserItems)
	fmt.Printf("Model: %d items with neighbors, top-%d -> %s\n",
		len(model.ItemTop), cfg.TopK, outPath)
	return nil
}
