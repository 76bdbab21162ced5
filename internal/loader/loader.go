// Package loader reads trace files into fragments the extractor can
// parse. Two formats are supported: plain text with one scan-query
// fragment per line, and JSONL where each record carries the fragment
// plus its optional cost metrics.
package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/scanlens/internal/lineage"
)

// Fragment is one scan-query text with its optional metrics record.
type Fragment struct {
	Text    string                `json:"text"`
	Metrics *lineage.QueryMetrics `json:"metrics,omitempty"`
}

// jsonlRecord is the on-disk JSONL shape: the fragment text plus the
// metrics fields inlined, matching what the tracing subsystem emits.
type jsonlRecord struct {
	Text string `json:"text"`
	lineage.QueryMetrics
}

// maxLineSize bounds one trace line; scan text beyond this is
// malformed output from the tracer, not a real fragment.
const maxLineSize = 1 << 20

// ReadFile loads fragments from path, choosing the format by
// extension: .jsonl and .ndjson parse as JSONL, everything else as
// plain text lines.
func ReadFile(path string) ([]Fragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	default:
		return ReadText(f)
	}
}

// ReadText reads one fragment per non-blank line.
func ReadText(r io.Reader) ([]Fragment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var fragments []Fragment
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fragments = append(fragments, Fragment{Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return fragments, nil
}

// ReadJSONL reads one JSON record per line. Blank lines are skipped;
// a malformed line is an error naming its line number.
func ReadJSONL(r io.Reader) ([]Fragment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var fragments []Fragment
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("malformed trace record on line %d: %w", lineNo, err)
		}

		frag := Fragment{Text: rec.Text}
		if rec.QueryMetrics != (lineage.QueryMetrics{}) {
			m := rec.QueryMetrics
			frag.Metrics = &m
		}
		fragments = append(fragments, frag)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return fragments, nil
}
