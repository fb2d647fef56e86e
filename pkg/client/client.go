// Package client is a small Go SDK for the paperqa HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	httpClient *http.Client
}

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the default HTTP client (60s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// Client talks to a paperqa server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client for the given base URL (scheme://host[:port]).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("paperqa: base URL required")
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.apiKey,
		httpClient: cfg.httpClient,
	}, nil
}

// RetrieveDocuments runs hybrid retrieval and returns the kept document set.
func (c *Client) RetrieveDocuments(ctx context.Context, req RetrieveDocumentsRequest) (RetrieveDocumentsResponse, error) {
	var resp RetrieveDocumentsResponse
	err := c.post(ctx, "/v1/retrieve/documents", req, &resp)
	return resp, err
}

// RetrieveChunks scores chunks of pre-weighted documents against a query.
func (c *Client) RetrieveChunks(ctx context.Context, req RetrieveChunksRequest) (RetrieveChunksResponse, error) {
	var resp RetrieveChunksResponse
	err := c.post(ctx, "/v1/retrieve/chunks", req, &resp)
	return resp, err
}

// Answer runs the full pipeline and returns the generated answer with its
// evidence.
func (c *Client) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	var resp AnswerResponse
	err := c.post(ctx, "/v1/answer", req, &resp)
	return resp, err
}

// Health reports the server's component health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return resp, fmt.Errorf("paperqa: build request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return resp, fmt.Errorf("paperqa: health request: %w", err)
	}
	defer httpResp.Body.Close()

	// /health responds with the report body on 200 and 503 alike.
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("paperqa: decode health response: %w", err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("paperqa: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("paperqa: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("paperqa: request %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return parseAPIError(httpResp)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("paperqa: decode response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "unreadable error body"}
	}

	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       apiErr.Code,
		Message:    apiErr.Message,
	}
}
