// Package cohere provides a minimal client for the Cohere v2 rerank API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scholarlab/paperqa/internal/domain"
	"github.com/scholarlab/paperqa/internal/metrics"
)

const (
	providerName   = "cohere"
	defaultBaseURL = "https://api.cohere.com"
	rerankPath     = "/v2/rerank"
)

// Reranker scores documents against a query via POST /v2/rerank.
type Reranker struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// RerankerConfig holds the rerank provider settings.
type RerankerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewReranker creates a Cohere rerank client.
func NewReranker(cfg *RerankerConfig) *Reranker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Reranker{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     cfg.Logger,
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Meta struct {
		BilledUnits struct {
			SearchUnits int `json:"search_units"`
		} `json:"billed_units"`
	} `json:"meta"`
}

type rerankErrorResponse struct {
	Message string `json:"message"`
}

// Rerank implements selection.Reranker. Scores are returned positionally, one
// per input text, regardless of the order the API ranks them in.
func (r *Reranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+rerankPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	start := time.Now()

	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(providerName, r.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, r.model, "network").Inc()
		return nil, fmt.Errorf("rerank request failed: %w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequestsTotal.WithLabelValues(providerName, r.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, r.model, "api_error").Inc()
		return nil, r.parseError(resp)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(providerName, r.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, r.model, "decode").Inc()
		return nil, fmt.Errorf("decode rerank response: %w: %w", domain.ErrProviderUnavailable, err)
	}

	scores := make([]float64, len(texts))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(texts) {
			metrics.ProviderRequestsTotal.WithLabelValues(providerName, r.model, "error").Inc()
			metrics.ProviderErrorsTotal.WithLabelValues(providerName, r.model, "bad_index").Inc()
			return nil, fmt.Errorf("rerank result index %d out of range: %w", res.Index, domain.ErrProviderUnavailable)
		}
		scores[res.Index] = res.RelevanceScore
	}

	metrics.ProviderRequestsTotal.WithLabelValues(providerName, r.model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(providerName, r.model).Observe(duration.Seconds())

	r.logger.Debug("rerank completed",
		zap.Int("documents", len(texts)),
		zap.Duration("duration", duration))

	return scores, nil
}

// HealthCheck verifies the API is reachable with the configured key.
func (r *Reranker) HealthCheck(ctx context.Context) error {
	_, err := r.Rerank(ctx, "ping", []string{"pong"})
	if err != nil {
		return fmt.Errorf("cohere health check failed: %w", err)
	}
	return nil
}

func (r *Reranker) parseError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("rerank API error (status %d): %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var apiErr rerankErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("rerank API error (status %d): %s: %w",
			resp.StatusCode, apiErr.Message, domain.ErrProviderUnavailable)
	}

	return fmt.Errorf("rerank API error (status %d): %w", resp.StatusCode, domain.ErrProviderUnavailable)
}
