// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonl streams newline-delimited JSON records and writes
// pipeline artifacts atomically. Malformed lines are skipped and
// counted, never fatal; I/O failures are.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Lines longer than this abort the scan; a multi-megabyte "line" means
// the input is not JSONL at all.
const maxLineBytes = 8 * 1024 * 1024

// ReadStats reports raw versus usable input volume for a read pass.
type ReadStats struct {
	// Read is the number of non-blank lines seen.
	Read int

	// Skipped is the number of lines dropped as malformed JSON.
	Skipped int
}

// Read decodes one record per non-blank line from r, calling fn for
// each. Lines that fail to decode are counted and skipped. An error
// from fn aborts the read.
func Read[T any](r io.Reader, fn func(T) error) (ReadStats, error) {
	var stats ReadStats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	for sc.Scan() {
		line := sc.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}
		stats.Read++

		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			stats.Skipped++
			continue
		}
		if err := fn(row); err != nil {
			return stats, err
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("scanning input: %w", err)
	}
	return stats, nil
}

// ReadFile opens path and streams it through Read.
func ReadFile[T any](path string, fn func(T) error) (ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReadStats{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	stats, err := Read(f, fn)
	if err != nil {
		return stats, fmt.Errorf("reading %s: %w", path, err)
	}
	return stats, nil
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t' || b[start] == '\r' || b[start] == '\n') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r' || b[end-1] == '\n') {
		end--
	}
	return b[start:end]
}

// Writer streams records to a temporary file and publishes the result
// with a rename on Commit, so a partially written artifact is never
// observable at the destination path.
type Writer struct {
	dest    string
	tmpPath string
	f       *os.File
	bw      *bufio.Writer
	rows    int
}

// NewWriter creates a Writer targeting dest. The destination directory
// is created if missing; the temporary file lives alongside dest so the
// final rename stays on one filesystem.
func NewWriter(dest string) (*Writer, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return &Writer{
		dest:    dest,
		tmpPath: f.Name(),
		f:       f,
		bw:      bufio.NewWriter(f),
	}, nil
}

// Write appends one record as a JSON line.
func (w *Writer) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := w.bw.Write(data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of records written so far.
func (w *Writer) Rows() int { return w.rows }

// Commit flushes, closes, and renames the temporary file onto the
// destination path.
func (w *Writer) Commit() error {
	if err := w.bw.Flush(); err != nil {
		w.Abort()
		return fmt.Errorf("flushing %s: %w", w.dest, err)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("closing %s: %w", w.dest, err)
	}
	if err := os.Rename(w.tmpPath, w.dest); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Abort discards the temporary file. Safe to call after Commit.
func (w *Writer) Abort() {
	w.f.Close()
	os.Remove(w.tmpPath)
}

// WriteFileAtomic writes data to path via a temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// WriteJSONAtomic marshals v (indented) and writes it atomically.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}
