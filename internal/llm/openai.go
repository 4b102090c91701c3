package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"clarifyai/internal/apperr"
)

// Well-known OpenAI-compatible endpoints.
const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// OpenAIProvider generates text through any OpenAI-compatible chat
// completions API (Groq, Gemini, OpenAI).
type OpenAIProvider struct {
	name    string
	model   string
	client  *openai.Client
	limiter *rate.Limiter
}

// ProviderConfig configures an OpenAIProvider.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	// RequestsPerSecond caps outgoing calls; 0 disables the limit.
	RequestsPerSecond float64
}

// NewOpenAIProvider returns a provider, or an ErrConfiguration error when
// the API key or model is missing.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s: API key not set", apperr.ErrConfiguration, cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: %s: model not set", apperr.ErrConfiguration, cfg.Name)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &OpenAIProvider{
		name:    cfg.Name,
		model:   cfg.Model,
		client:  openai.NewClientWithConfig(clientCfg),
		limiter: limiter,
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return p.name }

// Generate implements Generator.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedder creates an embedder for model returning dim-sized vectors.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dim int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dim,
	}
}

// Dimension implements Embedder.
func (e *OpenAIEmbedder) Dimension() int { return e.dim }

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e.EmbedBatch, text)
}

// EmbedBatch implements Embedder.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, apperr.Classify(apperr.ErrEmbedding, err, "create embeddings")
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vecs := make([][]float32, len(data))
	for i, d := range data {
		vecs[i] = d.Embedding
	}

	if err := checkVectors(vecs, len(texts), e.dim); err != nil {
		return nil, err
	}
	return vecs, nil
}
