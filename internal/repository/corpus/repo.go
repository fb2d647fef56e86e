// Package corpus stores papers and their chunks as Redis hashes under the
// paperqa: key prefix and manages the FT index over paper summaries.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/scholarlab/paperqa/internal/db"
	"github.com/scholarlab/paperqa/internal/domain"
	"github.com/scholarlab/paperqa/internal/domain/chunk"
	"github.com/scholarlab/paperqa/internal/domain/document"
)

// IndexName is the FT index over paper hashes.
const IndexName = domain.KeyPrefix + "paper:idx"

// store is the consumer interface for corpus storage (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements paper and chunk persistence.
type Repo struct {
	store store
}

// New creates a corpus repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the paper FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, dims int) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(IndexName).
		Prefix(domain.KeyPrefix + "paper:").
		Tag("arxiv_id").
		Text("title").
		Text("summary").
		VectorHNSW("summary_vector", dims, db.DistanceCosine, 0, 0).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Put stores a paper and its chunks. The chunk hashes and the chunk count go
// out in one pipelined round-trip after the paper hash.
func (r *Repo) Put(ctx context.Context, doc document.Document, chunks []chunk.Chunk) error {
	if err := r.store.HSet(ctx, paperKey(doc.ID()), buildPaperFields(&doc)); err != nil {
		return fmt.Errorf("store paper %s: %w", doc.ID(), err)
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		items = append(items, db.HashSetItem{
			Key:    chunkKey(doc.ID(), c.Seq()),
			Fields: buildChunkFields(c),
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store chunks for %s: %w", doc.ID(), err)
	}

	count := strconv.Itoa(len(chunks))
	if err := r.store.Set(ctx, chunkCountKey(doc.ID()), []byte(count)); err != nil {
		return fmt.Errorf("store chunk count for %s: %w", doc.ID(), err)
	}
	return nil
}

// Get returns a paper by ID.
func (r *Repo) Get(ctx context.Context, id string) (document.Document, error) {
	m, err := r.store.HGetAll(ctx, paperKey(id))
	if err != nil {
		return document.Document{}, fmt.Errorf("hgetall paper %s: %w", id, err)
	}
	if len(m) == 0 {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	return parsePaperFields(id, m), nil
}

// GetMulti returns papers for the given IDs in one pipelined round-trip.
// Missing papers are skipped, not errored.
func (r *Repo) GetMulti(ctx context.Context, ids []string) ([]document.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = paperKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall papers: %w", err)
	}

	docs := make([]document.Document, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		docs = append(docs, parsePaperFields(ids[i], m))
	}
	return docs, nil
}

// ListByDocument returns all chunks of a paper ordered by sequence number.
func (r *Repo) ListByDocument(ctx context.Context, docID string) ([]chunk.Chunk, error) {
	count, err := r.chunkCount(ctx, docID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	keys := make([]string, count)
	for i := 0; i < count; i++ {
		keys[i] = chunkKey(docID, i)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall chunks for %s: %w", docID, err)
	}

	chunks := make([]chunk.Chunk, 0, count)
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		chunks = append(chunks, parseChunkFields(docID, i, m))
	}
	return chunks, nil
}

// Delete removes a paper, its chunks and the chunk count. Chunk keys are
// scanned rather than derived from the stored count, so chunks left behind by
// a partial write are removed too.
func (r *Repo) Delete(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, paperKey(id))
	if err != nil {
		return fmt.Errorf("check paper %s: %w", id, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	keys, err := r.store.Scan(ctx, domain.KeyPrefix+"chunk:"+id+":*")
	if err != nil {
		return fmt.Errorf("scan chunks for %s: %w", id, err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del chunk %s: %w", key, err)
		}
	}
	if err := r.store.Del(ctx, chunkCountKey(id)); err != nil {
		return fmt.Errorf("del chunk count %s: %w", id, err)
	}
	if err := r.store.Del(ctx, paperKey(id)); err != nil {
		return fmt.Errorf("del paper %s: %w", id, err)
	}
	return nil
}

// ResetIndex drops the paper FT index so EnsureIndex can rebuild it with new
// settings. Stored hashes are untouched; an absent index is not an error.
func (r *Repo) ResetIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

// Count returns the number of indexed papers.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

func (r *Repo) chunkCount(ctx context.Context, docID string) (int, error) {
	raw, err := r.store.Get(ctx, chunkCountKey(docID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get chunk count for %s: %w", docID, err)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse chunk count for %s: %w", docID, err)
	}
	return n, nil
}

func paperKey(id string) string {
	return domain.KeyPrefix + "paper:" + id
}

func chunkKey(docID string, seq int) string {
	return domain.KeyPrefix + "chunk:" + docID + ":" + strconv.Itoa(seq)
}

func chunkCountKey(docID string) string {
	return domain.KeyPrefix + "paper:" + docID + ":chunks"
}
