// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/rec-pipeline/internal/jsonl"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

// WriteSummary prints the human-readable report to w.
func WriteSummary(w io.Writer, r types.EvaluationReport) {
	fmt.Fprintf(w, "\nOffline eval: %s\n", r.CandidateSource)
	fmt.Fprintf(w, "Input rows: %d (%d skipped)\n", r.RowsRead, r.RowsSkipped)
	fmt.Fprintf(w, "Users evaluated: %d\n", r.UsersEvaluated)
	fmt.Fprintf(w, "Test points per user (max): %d\n", r.TestPoints)
	fmt.Fprintf(w, "Total test interactions: %d\n", r.TestPointCount)
	fmt.Fprintf(w, "HitRate@%d: %.4f\n", r.K, r.HitRate)
	fmt.Fprintf(w, "MRR@%d: %.4f\n", r.K, r.MRR)
	fmt.Fprintf(w, "NDCG@%d: %.4f\n", r.K, r.NDCG)
	fmt.Fprintf(w, "MAP@%d: %.4f\n", r.K, r.MAP)
	fmt.Fprintf(w, "Catalog coverage (over train items): %.4f\n", r.CatalogCoverage)
	fmt.Fprintf(w, "Avg novelty (1/log pop): %.4f\n", r.Novelty)
	fmt.Fprintf(w, "Avg intra-list diversity (genre): %.4f\n", r.Diversity)
	fmt.Fprintf(w, "Genre distribution drift (JSD vs catalog): %.4f\n", r.GenreDrift)
}

// WriteJSON prints the report as indented JSON to w.
func WriteJSON(w io.Writer, r types.EvaluationReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteReportFile writes the report as a YAML document, atomically.
func WriteReportFile(path string, r types.EvaluationReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := jsonl.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
