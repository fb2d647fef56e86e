package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scholarlab/paperqa/internal/db"
	"github.com/scholarlab/paperqa/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	// GET → ErrKeyNotFound (cache miss)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	var setTTL time.Duration
	ms.setFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		setTTL = ttl
		return nil
	}

	result, err := ce.Embed(ctx, "what is attention")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if setTTL != DefaultTTL {
		t.Fatalf("expected default TTL on cache put, got %v", setTTL)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	result, err := ce.Embed(ctx, "what is attention")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Fatalf("inner embedder called %d times on cache hit", inner.calls)
	}
	// A hit slides the TTL forward.
	if ms.expireCalls != 1 {
		t.Fatalf("expected 1 Expire call on hit, got %d", ms.expireCalls)
	}
	if ms.expireTTL != DefaultTTL {
		t.Fatalf("expected TTL %v, got %v", DefaultTTL, ms.expireTTL)
	}
}

func TestEmbed_CacheMissDoesNotRefreshTTL(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	if _, err := ce.Embed(context.Background(), "fresh query"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.expireCalls != 0 {
		t.Fatalf("expected no Expire calls on miss, got %d", ms.expireCalls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	_, err := ce.Embed(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbed_CorruptCacheFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.7, 0.8},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	// Misaligned payload cannot be parsed as float32s.
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("abc"), nil
	}

	result, err := ce.Embed(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embedding[0] != 0.7 {
		t.Fatalf("expected inner result, got %v", result.Embedding)
	}
	if inner.calls != 1 {
		t.Fatalf("expected inner call on corrupt cache, got %d", inner.calls)
	}
}

func TestEmbed_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.9},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("connection reset")
	}

	// Cache failures must not fail the request.
	result, err := ce.Embed(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embedding[0] != 0.9 {
		t.Fatalf("expected inner result, got %v", result.Embedding)
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{})

	k1 := ce.cacheKey("same text")
	k2 := ce.cacheKey("same text")
	k3 := ce.cacheKey("other text")

	if k1 != k2 {
		t.Error("same text produced different keys")
	}
	if k1 == k3 {
		t.Error("different texts produced the same key")
	}
	if !strings.HasPrefix(k1, "paperqa:query_emb:") {
		t.Errorf("unexpected key prefix: %s", k1)
	}
}

func TestVectorCacheRoundTrip(t *testing.T) {
	v := []float32{1.5, -2.25, 0}
	got, err := bytesToVector(vectorToCacheBytes(v))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: got %f, want %f", i, got[i], v[i])
		}
	}
}
