// Package pipeline orchestrates the staged retrieval flow: hybrid document
// search, rank fusion, reranked selection and chunk scoring.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scholarlab/paperqa/internal/domain"
	"github.com/scholarlab/paperqa/internal/domain/chunk"
	"github.com/scholarlab/paperqa/internal/domain/question"
	"github.com/scholarlab/paperqa/internal/domain/ranking"
	"github.com/scholarlab/paperqa/internal/logger"
	"github.com/scholarlab/paperqa/internal/metrics"
	"github.com/scholarlab/paperqa/internal/usecase/chunkrank"
	"github.com/scholarlab/paperqa/internal/usecase/fusion"
	"github.com/scholarlab/paperqa/internal/usecase/selection"
)

// Config holds pipeline tuning parameters.
type Config struct {
	// RRFK is the Reciprocal Rank Fusion constant.
	RRFK int
	// RerankTimeout bounds the single batched rerank call per request.
	RerankTimeout time.Duration
	// RetryBackoff is the pause before the one rerank retry.
	RetryBackoff time.Duration
	// WeightNorm rescales document weights before chunk scoring.
	WeightNorm chunkrank.WeightNorm
}

// ApplyDefaults fills zero fields with default values.
func (c *Config) ApplyDefaults() {
	if c.RRFK <= 0 {
		c.RRFK = fusion.DefaultK
	}
	if c.RerankTimeout <= 0 {
		c.RerankTimeout = 5 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.WeightNorm == "" {
		c.WeightNorm = chunkrank.WeightNormMax
	}
}

// Service sequences the retrieval stages. All working data is request-scoped;
// the service itself holds only immutable collaborators and is safe for
// concurrent use.
type Service struct {
	search    DocumentSearcher
	corpus    CorpusReader
	embedder  domain.Embedder
	selector  Selector
	generator Generator
	cfg       Config
}

// New creates a pipeline service.
func New(
	search DocumentSearcher,
	corpus CorpusReader,
	embedder domain.Embedder,
	selector Selector,
	generator Generator,
	cfg Config,
) *Service {
	cfg.ApplyDefaults()
	return &Service{
		search:    search,
		corpus:    corpus,
		embedder:  embedder,
		selector:  selector,
		generator: generator,
		cfg:       cfg,
	}
}

// Retrieval is the query-scoped outcome of the retrieval stages.
type Retrieval struct {
	State State
	// Degraded is set when reranking failed and the kept set fell back to
	// fused-score ordering.
	Degraded  bool
	Documents []ranking.Document
	Chunks    []ranking.ScoredChunk
}

// Answered extends a Retrieval with the generated answer.
type Answered struct {
	Retrieval
	Answer string
}

// RetrieveDocuments runs hybrid search, fusion and reranked selection,
// returning the kept document set ordered by rerank score. The kept set may
// be empty (State = NoEvidence) for queries the corpus cannot ground.
func (s *Service) RetrieveDocuments(ctx context.Context, q question.Question) (Retrieval, error) {
	ret, _, err := s.retrieveDocuments(ctx, q)
	if err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("retrieve_documents", "error").Inc()
		return Retrieval{}, err
	}
	metrics.PipelineRequestsTotal.WithLabelValues("retrieve_documents", outcome(ret)).Inc()
	return ret, nil
}

// RetrieveChunks scores the chunks of the given weighted documents against
// the query and returns the global top-k evidence set. Documents arrive with
// Weight already set (the document_score of the retrieval contract).
func (s *Service) RetrieveChunks(
	ctx context.Context, query string, docs []ranking.Document, topK int,
) (Retrieval, error) {
	if topK <= 0 {
		topK = question.DefaultTopChunks
	}

	if len(docs) == 0 {
		metrics.PipelineRequestsTotal.WithLabelValues("retrieve_chunks", "no_evidence").Inc()
		return Retrieval{State: StateNoEvidence}, nil
	}

	// The document set is caller-supplied; reject unknown IDs before paying
	// for the embedding call.
	if err := s.checkDocumentsExist(ctx, docs); err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("retrieve_chunks", "error").Inc()
		return Retrieval{}, err
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("retrieve_chunks", "error").Inc()
		return Retrieval{}, fmt.Errorf("embed query: %w", err)
	}

	ret, err := s.scoreChunks(ctx, docs, emb.Embedding, topK)
	if err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("retrieve_chunks", "error").Inc()
		return Retrieval{}, err
	}
	metrics.PipelineRequestsTotal.WithLabelValues("retrieve_chunks", outcome(ret)).Inc()
	return ret, nil
}

// Answer runs the full pipeline and invokes generation. Generation is called
// even when retrieval yields no evidence: the model then answers from its
// parametric knowledge with an empty context.
func (s *Service) Answer(ctx context.Context, q question.Question) (Answered, error) {
	ret, queryVector, err := s.retrieveDocuments(ctx, q)
	if err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("answer", "error").Inc()
		return Answered{}, err
	}

	if ret.State != StateNoEvidence {
		// When the semantic source failed the query embedding is missing;
		// chunk scoring still needs it, so try the provider again.
		if len(queryVector) == 0 {
			emb, err := s.embedder.Embed(ctx, q.Text())
			if err != nil {
				metrics.PipelineRequestsTotal.WithLabelValues("answer", "error").Inc()
				return Answered{}, fmt.Errorf("embed query: %w", err)
			}
			queryVector = emb.Embedding
		}
		scored, err := s.scoreChunks(ctx, ret.Documents, queryVector, q.TopChunks())
		if err != nil {
			metrics.PipelineRequestsTotal.WithLabelValues("answer", "error").Inc()
			return Answered{}, err
		}
		ret.Chunks = scored.Chunks
		ret.State = StateReady
	}

	// A cancelled caller must not trigger the generation call.
	if err := ctx.Err(); err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("answer", "error").Inc()
		return Answered{}, fmt.Errorf("request cancelled before generation: %w", err)
	}

	passages := make([]string, len(ret.Chunks))
	for i, c := range ret.Chunks {
		passages[i] = c.Chunk.Content()
	}

	answer, err := s.generator.Generate(ctx, q.Text(), passages)
	if err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("answer", "error").Inc()
		return Answered{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	metrics.PipelineRequestsTotal.WithLabelValues("answer", outcome(ret)).Inc()
	return Answered{Retrieval: ret, Answer: answer}, nil
}

// retrieveDocuments runs the stages up to and including selection. It also
// returns the query embedding so Answer can reuse it for chunk scoring.
func (s *Service) retrieveDocuments(
	ctx context.Context, q question.Question,
) (Retrieval, []float32, error) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With(zap.String("run_id", runID))
	log.Debug("pipeline state", zap.String("state", string(StateStarted)))

	semantic, lexical, queryVector, err := s.searchBothSources(ctx, q, log)
	if err != nil {
		return Retrieval{}, nil, err
	}
	log.Debug("pipeline state", zap.String("state", string(StateDocumentsRetrieved)),
		zap.Int("semantic", len(semantic)), zap.Int("lexical", len(lexical)))

	fused := fusion.Fuse(semantic, lexical, s.cfg.RRFK)
	if len(fused) > q.Candidates() {
		fused = fused[:q.Candidates()]
	}
	log.Debug("pipeline state", zap.String("state", string(StateDocumentsFused)),
		zap.Int("candidates", len(fused)))

	kept, degraded, err := s.selectDocuments(ctx, q.Text(), fused, log)
	if err != nil {
		return Retrieval{}, nil, err
	}

	if len(kept) == 0 {
		log.Debug("pipeline state", zap.String("state", string(StateNoEvidence)))
		return Retrieval{State: StateNoEvidence, Degraded: degraded}, queryVector, nil
	}

	log.Debug("pipeline state", zap.String("state", string(StateDocumentsSelected)),
		zap.Int("kept", len(kept)), zap.Bool("degraded", degraded))
	return Retrieval{State: StateDocumentsSelected, Degraded: degraded, Documents: kept}, queryVector, nil
}

// searchBothSources issues the semantic and lexical searches concurrently and
// joins them. One failed source degrades fusion to a single ranking; both
// failing is fatal for the request.
func (s *Service) searchBothSources(
	ctx context.Context, q question.Question, log *zap.Logger,
) (semantic, lexical []ranking.Candidate, queryVector []float32, err error) {
	type semOutcome struct {
		hits   []ranking.Candidate
		vector []float32
		err    error
	}
	type lexOutcome struct {
		hits []ranking.Candidate
		err  error
	}

	semCh := make(chan semOutcome, 1)
	lexCh := make(chan lexOutcome, 1)

	textSearch := s.search.SupportsTextSearch(ctx)

	go func() {
		emb, err := s.embedder.Embed(ctx, q.Text())
		if err != nil {
			semCh <- semOutcome{err: fmt.Errorf("embed query: %w", err)}
			return
		}
		hits, err := s.search.SearchSemantic(ctx, emb.Embedding, q.Candidates())
		semCh <- semOutcome{hits: hits, vector: emb.Embedding, err: err}
	}()

	go func() {
		if !textSearch {
			lexCh <- lexOutcome{}
			return
		}
		hits, err := s.search.SearchLexical(ctx, q.Text(), q.Candidates())
		lexCh <- lexOutcome{hits: hits, err: err}
	}()

	sem := <-semCh
	lex := <-lexCh

	if sem.err != nil && lex.err != nil {
		return nil, nil, nil, fmt.Errorf("%w: semantic: %w; lexical: %w",
			domain.ErrSearchUnavailable, sem.err, lex.err)
	}
	if sem.err != nil && !textSearch {
		// The semantic ranking was the only source available.
		return nil, nil, nil, fmt.Errorf("%w: semantic: %w; lexical: unsupported by backend",
			domain.ErrSearchUnavailable, sem.err)
	}
	if !textSearch {
		log.Debug("backend has no text search, fusing semantic ranking alone")
	}
	if sem.err != nil {
		log.Warn("semantic search failed, continuing with lexical ranking only", zap.Error(sem.err))
		metrics.SearchSourceFailuresTotal.WithLabelValues("semantic").Inc()
	}
	if lex.err != nil {
		log.Warn("lexical search failed, continuing with semantic ranking only", zap.Error(lex.err))
		metrics.SearchSourceFailuresTotal.WithLabelValues("lexical").Inc()
	}

	return sem.hits, lex.hits, sem.vector, nil
}

// selectDocuments calls the reranking selector with a timeout, retrying once
// after a backoff. When both attempts fail it falls back to fused-score
// ordering: reranking is skipped and every candidate is kept with its fused
// score as weight. The fallback is observable, never silent.
func (s *Service) selectDocuments(
	ctx context.Context, query string, fused []ranking.Document, log *zap.Logger,
) (kept []ranking.Document, degraded bool, err error) {
	if len(fused) == 0 {
		return nil, false, nil
	}

	kept, err = s.selectOnce(ctx, query, fused)
	if err == nil {
		return kept, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, fmt.Errorf("select documents: %w", ctx.Err())
	}

	log.Warn("rerank failed, retrying once", zap.Error(err))
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("select documents: %w", ctx.Err())
	case <-time.After(s.cfg.RetryBackoff):
	}

	kept, err = s.selectOnce(ctx, query, fused)
	if err == nil {
		return kept, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, fmt.Errorf("select documents: %w", ctx.Err())
	}

	log.Warn("rerank failed twice, falling back to fused-score ordering", zap.Error(err))
	metrics.RerankFallbacksTotal.Inc()

	fallback := make([]ranking.Document, len(fused))
	copy(fallback, fused)
	for i := range fallback {
		fallback[i].Weight = fallback[i].FusedScore
	}
	return fallback, true, nil
}

func (s *Service) selectOnce(
	ctx context.Context, query string, fused []ranking.Document,
) ([]ranking.Document, error) {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RerankTimeout)
	defer cancel()
	return s.selector.Select(rctx, query, fused)
}

func (s *Service) checkDocumentsExist(ctx context.Context, docs []ranking.Document) error {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	found, err := s.corpus.GetMulti(ctx, ids)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if len(found) == len(ids) {
		return nil
	}

	present := make(map[string]struct{}, len(found))
	for i := range found {
		present[found[i].ID()] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
	}
	return nil
}

// scoreChunks loads the kept documents' chunks and pools them into the final
// evidence ranking.
func (s *Service) scoreChunks(
	ctx context.Context, docs []ranking.Document, queryVector []float32, topK int,
) (Retrieval, error) {
	chunksByDoc := make(map[string][]chunk.Chunk, len(docs))
	for _, d := range docs {
		cs, err := s.corpus.ListByDocument(ctx, d.ID)
		if err != nil {
			return Retrieval{}, fmt.Errorf("list chunks for %s: %w", d.ID, err)
		}
		chunksByDoc[d.ID] = cs
	}

	weighted := chunkrank.Normalize(docs, s.cfg.WeightNorm)
	scored := chunkrank.Score(weighted, chunksByDoc, queryVector, topK)

	return Retrieval{State: StateChunksScored, Documents: docs, Chunks: scored}, nil
}

func outcome(r Retrieval) string {
	if r.State == StateNoEvidence {
		return "no_evidence"
	}
	if r.Degraded {
		return "degraded"
	}
	return "ready"
}

// Compile-time check: selection.Service satisfies the pipeline contract.
var _ Selector = (*selection.Service)(nil)
