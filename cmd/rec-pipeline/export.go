package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshintel/rec-pipeline/internal/export"
	"github.com/meshintel/rec-pipeline/internal/jsonl"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export interaction logs from the application's log store",
	Long: `Export pulls media events, recommendation impressions, and item metadata
out of the log store (a SQLite database file) into JSONL files under the
output directory. Events and impressions are bounded by --days; items are
exported in full. Each file is written atomically.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("db", "", "path to the interaction-log SQLite database")
	exportCmd.Flags().String("out-dir", "data", "directory for exported JSONL files")
	exportCmd.Flags().Int("days", 30, "export rows created within the last N days")
	exportCmd.Flags().Int("page-size", 2000, "rows per paginated query")
	exportCmd.Flags().String("tables", "events,impressions,items", "comma-separated subset: events, impressions, items")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	outDir, _ := cmd.Flags().GetString("out-dir")
	days, _ := cmd.Flags().GetInt("days")
	pageSize := flagOrConfigInt(cmd, "page-size", "export.page_size")
	tables, _ := cmd.Flags().GetString("tables")

	cfg := types.ExportConfig{
		DBPath:   dbPath,
		OutDir:   outDir,
		Days:     days,
		PageSize: pageSize,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	selected := make(map[string]bool)
	for _, t := range strings.Split(tables, ",") {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" {
			continue
		}
		switch t {
		case "events", "impressions", "items":
			selected[t] = true
		default:
			return fmt.Errorf("unknown table %q (want events, impressions, or items)", t)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("no tables selected")
	}

	store, err := export.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	since := time.Now().UTC().AddDate(0, 0, -cfg.Days)

	type job struct {
		name string
		file string
		run  func(w *jsonl.Writer) (export.Stats, error)
	}
	jobs := []job{
		{"events", "events.jsonl", func(w *jsonl.Writer) (export.Stats, error) {
			return store.ExportEvents(ctx, w, since, cfg.PageSize, os.Stderr)
		}},
		{"impressions", "impressions.jsonl", func(w *jsonl.Writer) (export.Stats, error) {
			return store.ExportImpressions(ctx, w, since, cfg.PageSize, os.Stderr)
		}},
		{"items", "items.jsonl", func(w *jsonl.Writer) (export.Stats, error) {
			return store.ExportItems(ctx, w, cfg.PageSize, os.Stderr)
		}},
	}

	for _, j := range jobs {
		if !selected[j.name] {
			continue
		}
		dest := filepath.Join(cfg.OutDir, j.file)
		w, err := jsonl.NewWriter(dest)
		if err != nil {
			return err
		}
		stats, err := j.run(w)
		if err != nil {
			w.Abort()
			return fmt.Errorf("exporting %s: %w", j.name, err)
		}
		if err := w.Commit(); err != nil {
			return err
		}
		fmt.Printf("%s: %d rows (%d skipped) -> %s\n", j.name, stats.Rows, stats.Skipped, dest)
	}
	return nil
}
