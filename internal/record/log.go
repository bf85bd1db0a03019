// internal/record/log.go
//
// Append-only JSONL persistence for game records.
// One self-contained JSON object per line; the log is the sole durable
// interface consumed by reporting and archival tooling. Records written
// here must re-parse into structurally identical values.

package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxLineSize bounds a single serialized record. Long games with verbose
// raw model output can exceed bufio's 64K default comfortably.
const maxLineSize = 16 * 1024 * 1024

// Writer appends game records to a JSONL log file.
type Writer struct {
	f   *os.File
	enc *json.Encoder
}

// NewWriter opens (creating parent directories and the file as needed)
// a log file for appending.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return &Writer{f: f, enc: json.NewEncoder(f)}, nil
}

// Append writes one record as a single line and syncs it to disk, so a
// crashed batch loses at most the in-flight game.
func (w *Writer) Append(rec GameRecord) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return w.f.Sync()
}

// Close closes the underlying file.
func (w *Writer) Close() error { return w.f.Close() }

// ReadLog parses every record from a JSONL log file. Blank lines are
// skipped; a malformed line is an error rather than silently dropped,
// because downstream stats would be quietly wrong otherwise.
func ReadLog(path string) ([]GameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []GameRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec GameRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// ReadLogs loads records from every file matching the given glob
// patterns, in pattern order then lexical file order.
func ReadLogs(patterns ...string) ([]GameRecord, error) {
	var out []GameRecord
	for _, p := range patterns {
		files, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, file := range files {
			recs, err := ReadLog(file)
			if err != nil {
				return nil, err
			}
			out = append(out, recs...)
		}
	}
	return out, nil
}
