package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"clarifyai/internal/apperr"
)

// EmbeddingsClient calls an OpenAI-compatible /v1/embeddings endpoint such
// as a llama.cpp or text-embeddings-inference server.
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Every returned vector must have this many dimensions
	client       *http.Client
}

// NewEmbeddingsClient creates a new embeddings client.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       newHTTPClient(),
	}
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// Dimension implements Embedder.
func (c *EmbeddingsClient) Dimension() int { return c.ExpectedSize }

// Embed implements Embedder.
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, c.EmbedBatch, text)
}

// EmbedBatch implements Embedder. Results are ordered by the index field of
// the response, falling back to response order.
func (c *EmbeddingsClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)

	body, err := json.Marshal(EmbeddingsRequest{
		Model: c.Model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrEmbedding, err, "failed to send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: bad status %d: %s", apperr.ErrEmbedding, resp.StatusCode, string(raw))
	}

	var embeddingsResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, apperr.Classify(apperr.ErrEmbedding, err, "failed to decode response")
	}

	data := embeddingsResp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	result := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	if err := checkVectors(result, len(texts), c.ExpectedSize); err != nil {
		return nil, err
	}
	return result, nil
}
