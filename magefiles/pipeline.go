//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// run invokes the built CLI binary with args, streaming its output.
func run(args ...string) error {
	bin := filepath.Join(binDir, binName)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Export pulls events, impressions, and items from the log store named
// by REC_PIPELINE_DB into data/.
func Export() error {
	mg.Deps(Build)
	db := os.Getenv("REC_PIPELINE_DB")
	if db == "" {
		return fmt.Errorf("set REC_PIPELINE_DB to the log store database path")
	}
	return run("export", "--db", db, "--out-dir", "data")
}

// Derive normalizes exported events into outcomes.
func Derive() error {
	mg.Deps(Build)
	return run("derive")
}

// Train builds the co-visitation model from derived outcomes.
func Train() error {
	mg.Deps(Build)
	return run("train")
}

// Evaluate scores the trained model against the popularity baseline on
// the same holdout and writes both reports under reports/.
func Evaluate() error {
	mg.Deps(Build)
	if err := run("evaluate", "--items", "data/items.jsonl",
		"--report", "reports/baseline.yaml"); err != nil {
		return err
	}
	return run("evaluate", "--items", "data/items.jsonl",
		"--model", "data/covisit_model.json",
		"--report", "reports/covisit.yaml")
}

// Calibrate suggests per-source blend multipliers from impressions and
// outcomes.
func Calibrate() error {
	mg.Deps(Build)
	return run("calibrate")
}
