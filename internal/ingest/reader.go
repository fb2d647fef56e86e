// Package ingest loads a preprocessed corpus export into the document store.
// Reader → channel(Record) → N workers → embed missing vectors → Put.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Record is one document with its chunks in the JSONL export.
type Record struct {
	DocID         string        `json:"doc_id"`
	ArxivID       string        `json:"arxiv_id"`
	Title         string        `json:"title"`
	Summary       string        `json:"document_summary"`
	SummaryVector []float32     `json:"document_summary_embedding,omitempty"`
	Chunks        []ChunkRecord `json:"chunks"`
}

// ChunkRecord is one chunk inside a Record.
type ChunkRecord struct {
	Content    string    `json:"content"`
	Vector     []float32 `json:"embedding,omitempty"`
	Section    string    `json:"section,omitempty"`
	Subsection string    `json:"subsection,omitempty"`
}

// maxLineSize bounds a single JSONL line. A document with ~200 chunks of
// embedded vectors stays well under this.
const maxLineSize = 64 * 1024 * 1024

// ReadRecords streams records from a JSONL export, invoking fn per record.
// Blank lines are skipped. fn returning false stops the scan early.
func ReadRecords(ctx context.Context, r io.Reader, fn func(rec Record, line int) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++

		if err := ctx.Err(); err != nil {
			return err
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return fmt.Errorf("line %d: parse record: %w", line, err)
		}

		if !fn(rec, line) {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read corpus file: %w", err)
	}
	return nil
}
