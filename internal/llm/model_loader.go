package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ModelLoader asks a llama.cpp server running in router mode to load a model
// through its /models endpoints, so the embedding model is resident before
// the first request.
type ModelLoader struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// NewModelLoader creates a new model loader.
func NewModelLoader(baseURL string) *ModelLoader {
	return &ModelLoader{
		baseURL:      baseURL,
		client:       newHTTPClient(),
		pollInterval: time.Second,
		maxPolls:     30,
	}
}

// LoadModelRequest represents the request payload for loading a model.
type LoadModelRequest struct {
	Model     string   `json:"model"`
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// LoadModelResponse represents the response from the load model endpoint.
type LoadModelResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ModelStatus represents the status of a model from the /models endpoint.
type ModelStatus struct {
	ID      string `json:"id"`
	InCache bool   `json:"in_cache"`
	Status  struct {
		Value    string `json:"value"`
		ExitCode *int   `json:"exit_code,omitempty"`
		Failed   *bool  `json:"failed,omitempty"`
	} `json:"status"`
}

// ModelsResponse represents the response from the /models endpoint.
type ModelsResponse struct {
	Data []ModelStatus `json:"data"`
}

// status fetches the state of modelName; found is false when the server
// does not list it.
func (ml *ModelLoader) status(ctx context.Context, modelName string) (ModelStatus, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ml.baseURL+"/models", nil)
	if err != nil {
		return ModelStatus{}, false, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := ml.client.Do(req)
	if err != nil {
		return ModelStatus{}, false, fmt.Errorf("failed to check model status: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return ModelStatus{}, false, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var models ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return ModelStatus{}, false, fmt.Errorf("failed to decode models response: %w", err)
	}
	for _, m := range models.Data {
		if m.ID == modelName {
			return m, true, nil
		}
	}
	return ModelStatus{}, false, nil
}

// IsModelLoaded reports whether modelName is resident on the server.
func (ml *ModelLoader) IsModelLoaded(ctx context.Context, modelName string) (bool, error) {
	m, found, err := ml.status(ctx, modelName)
	if err != nil {
		return false, err
	}
	return found && m.InCache, nil
}

// LoadModel loads modelName unless it is already resident, then polls until
// the server reports it loaded, failed, or the poll budget runs out.
func (ml *ModelLoader) LoadModel(ctx context.Context, modelName string, extraArgs []string) error {
	if loaded, err := ml.IsModelLoaded(ctx, modelName); err == nil && loaded {
		return nil
	}

	body, err := json.Marshal(LoadModelRequest{Model: modelName, ExtraArgs: extraArgs})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ml.baseURL+"/models/load", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ml.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var loadResp LoadModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&loadResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !loadResp.Success {
		return fmt.Errorf("model load failed: %s", loadResp.Error)
	}

	// /models/load returns before the model is up; the outcome shows in /models.
	ticker := time.NewTicker(ml.pollInterval)
	defer ticker.Stop()
	for i := 0; i < ml.maxPolls; i++ {
		m, found, err := ml.status(ctx, modelName)
		if err == nil && found {
			if m.InCache {
				return nil
			}
			if m.Status.Failed != nil && *m.Status.Failed {
				exitCode := 0
				if m.Status.ExitCode != nil {
					exitCode = *m.Status.ExitCode
				}
				return fmt.Errorf("model load failed with exit code %d", exitCode)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return fmt.Errorf("model %s did not load within %s", modelName, time.Duration(ml.maxPolls)*ml.pollInterval)
}
