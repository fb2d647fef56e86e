package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/scholarlab/paperqa/internal/domain"
	"github.com/scholarlab/paperqa/internal/domain/chunk"
	"github.com/scholarlab/paperqa/internal/domain/document"
)

// Writer persists a document and its chunks. Delete must return
// domain.ErrDocumentNotFound for absent documents.
type Writer interface {
	Put(ctx context.Context, doc document.Document, chunks []chunk.Chunk) error
	Delete(ctx context.Context, id string) error
}

// Ingester is a worker pool that loads corpus records into the store.
type Ingester struct {
	writer   Writer
	embedder domain.BatchEmbedder
	workers  int
	logger   *zap.Logger
}

// Result holds the totals of one ingestion run.
type Result struct {
	Documents     int64
	Failed        int64
	Chunks        int64
	ChunksDropped int64
	Duration      time.Duration
}

// NewIngester creates an ingester. embedder may be nil when the export
// already carries all vectors.
func NewIngester(writer Writer, embedder domain.BatchEmbedder, workers int, logger *zap.Logger) *Ingester {
	if workers <= 0 {
		workers = 4
	}
	return &Ingester{
		writer:   writer,
		embedder: embedder,
		workers:  workers,
		logger:   logger,
	}
}

// Run streams records from r through the worker pool until EOF or ctx is
// done. Per-record failures are logged and counted, not fatal.
func (ing *Ingester) Run(ctx context.Context, r io.Reader) (Result, error) {
	records := make(chan Record, ing.workers*2)

	var wg sync.WaitGroup
	var res Result
	var docs, failed, chunks, dropped atomic.Int64

	start := time.Now()

	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range records {
				nChunks, nDropped, err := ing.processRecord(ctx, rec)
				chunks.Add(nChunks)
				dropped.Add(nDropped)
				if err != nil {
					failed.Add(1)
					ing.logger.Warn("record failed",
						zap.String("doc_id", rec.DocID),
						zap.Error(err))
					continue
				}
				docs.Add(1)
			}
		}()
	}

	readErr := ReadRecords(ctx, r, func(rec Record, _ int) bool {
		select {
		case records <- rec:
			return true
		case <-ctx.Done():
			return false
		}
	})
	close(records)
	wg.Wait()

	res.Documents = docs.Load()
	res.Failed = failed.Load()
	res.Chunks = chunks.Load()
	res.ChunksDropped = dropped.Load()
	res.Duration = time.Since(start)

	if readErr != nil {
		return res, readErr
	}
	return res, ctx.Err()
}

func (ing *Ingester) processRecord(ctx context.Context, rec Record) (int64, int64, error) {
	summary := sanitize(rec.Summary)

	kept := make([]ChunkRecord, 0, len(rec.Chunks))
	var dropped int64
	for _, c := range rec.Chunks {
		c.Content = sanitize(c.Content)
		if !chunk.LooksLikeProse(c.Content) {
			dropped++
			continue
		}
		kept = append(kept, c)
	}

	if err := ing.fillVectors(ctx, summary, &rec, kept); err != nil {
		return 0, dropped, err
	}

	doc, err := document.New(rec.DocID, rec.ArxivID, sanitize(rec.Title), summary, rec.SummaryVector)
	if err != nil {
		return 0, dropped, fmt.Errorf("build document: %w", err)
	}

	chunks := make([]chunk.Chunk, 0, len(kept))
	for seq, c := range kept {
		ch, err := chunk.New(rec.DocID, seq, c.Content, c.Vector, c.Section, c.Subsection)
		if err != nil {
			return 0, dropped, fmt.Errorf("build chunk %d: %w", seq, err)
		}
		chunks = append(chunks, ch)
	}

	// Re-ingest must not leave stale chunk hashes behind when the new record
	// carries fewer chunks than the stored one.
	if err := ing.writer.Delete(ctx, rec.DocID); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return 0, dropped, fmt.Errorf("replace document: %w", err)
	}

	if err := ing.writer.Put(ctx, doc, chunks); err != nil {
		return 0, dropped, fmt.Errorf("store document: %w", err)
	}
	return int64(len(chunks)), dropped, nil
}

// fillVectors embeds the summary and any chunks the export shipped without
// vectors, one batch call per record.
func (ing *Ingester) fillVectors(ctx context.Context, summary string, rec *Record, kept []ChunkRecord) error {
	var texts []string
	var targets []*[]float32

	if len(rec.SummaryVector) == 0 {
		texts = append(texts, summary)
		targets = append(targets, &rec.SummaryVector)
	}
	for i := range kept {
		if len(kept[i].Vector) == 0 {
			texts = append(texts, kept[i].Content)
			targets = append(targets, &kept[i].Vector)
		}
	}

	if len(texts) == 0 {
		return nil
	}
	if ing.embedder == nil {
		return fmt.Errorf("record has %d missing vectors and no embedder is configured", len(texts))
	}

	res, err := ing.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed record: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return fmt.Errorf("embed record: got %d vectors for %d texts", len(res.Embeddings), len(texts))
	}

	for i, t := range targets {
		*t = res.Embeddings[i]
	}
	return nil
}

// sanitize strips control characters that break FT.SEARCH tokenization.
// Newlines and tabs collapse to single spaces.
func sanitize(s string) string {
	if !strings.ContainsFunc(s, unicode.IsControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
