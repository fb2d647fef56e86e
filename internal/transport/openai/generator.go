package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/scholarlab/paperqa/internal/domain"
	"github.com/scholarlab/paperqa/internal/metrics"
)

const systemPrompt = "You are a research assistant answering questions about " +
	"scientific papers. Ground your answer in the provided passages when they " +
	"are relevant and say so when they are not. Be concise and factual."

// Generator produces answers via the chat completions API.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

// Generate implements pipeline.Generator. An empty passage list is valid: the
// prompt then states that no corpus evidence was found.
func (g *Generator) Generate(ctx context.Context, query string, passages []string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(query, passages)},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, g.model, "api_error").Inc()
		return "", parseAPIError("generation", err)
	}

	if len(resp.Choices) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, g.model, "empty_response").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrProviderUnavailable)
	}

	metrics.ProviderRequestsTotal.WithLabelValues(providerName, g.model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(providerName, g.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues(providerName, g.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ProviderTokensTotal.WithLabelValues(providerName, g.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

func buildUserPrompt(query string, passages []string) string {
	var b strings.Builder

	if len(passages) == 0 {
		b.WriteString("No passages from the corpus matched this question.\n\n")
	} else {
		b.WriteString("Passages:\n\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s\n\n", i+1, p)
		}
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
