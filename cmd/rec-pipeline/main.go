// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rec-pipeline CLI.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the rec-pipeline CLI.
var rootCmd = &cobra.Command{
	Use:   "rec-pipeline",
	Short: "Offline recommendation pipeline for the movie swipe deck",
	Long: `rec-pipeline trains and evaluates the co-visitation recommender offline,
from the application's interaction logs. Each stage is a subcommand: export
pulls events, impressions, and item metadata out of the log store; derive
normalizes events into outcomes; train builds the co-visitation model;
evaluate scores a model (or the popularity baseline) on a temporal holdout;
calibrate suggests per-source blend multipliers.

Stages communicate through JSONL and JSON files, so any stage can be rerun
in isolation and every artifact can be inspected by hand.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./rec-pipeline.yaml or ~/.config/rec-pipeline/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rec-pipeline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rec-pipeline"))
		}
	}

	viper.SetEnvPrefix("REC_PIPELINE")
	viper.AutomaticEnv()

	viper.SetDefault("positive.rating_threshold", 7.0)
	viper.SetDefault("export.page_size", 2000)
	viper.SetDefault("calibrate.objective", "like:0.7,watchlist:0.3")
	viper.SetDefault("calibrate.alpha", 0.5)
	viper.SetDefault("calibrate.clamp_min", 0.7)
	viper.SetDefault("calibrate.clamp_max", 1.3)

	// Config file is optional; defaults and env cover the common case.
	_ = viper.ReadInConfig()
}

// flagOrConfigString resolves a setting: an explicitly set flag wins,
// otherwise the viper config/env/default chain.
func flagOrConfigString(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	return viper.GetString(key)
}

func flagOrConfigFloat(cmd *cobra.Command, flag, key string) float64 {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetFloat64(flag)
		return v
	}
	return viper.GetFloat64(key)
}

func flagOrConfigInt(cmd *cobra.Command, flag, key string) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	return viper.GetInt(key)
}

// ratingThreshold resolves the positive-label rating cutoff for
// commands that apply the positive policy.
func ratingThreshold(cmd *cobra.Command) float64 {
	return flagOrConfigFloat(cmd, "rating-threshold", "positive.rating_threshold")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
