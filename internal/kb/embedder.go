// Package kb provides embeddings-based retrieval over a CSV knowledge base.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	terrors "github.com/fleettriage/fleettriage/internal/errors"
)

const (
	openaiEmbeddingsURL    = "https://api.openai.com/v1/embeddings"
	defaultEmbedderTimeout = 60 * time.Second
	defaultEmbeddingModel  = "text-embedding-3-small"
	maxEmbeddingBatchSize  = 256
)

// Embedder converts texts into dense vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder implements Embedder against an OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIEmbedder creates a new embeddings client. Empty baseURL and
// model fall back to the hosted OpenAI endpoint and default model.
func NewOpenAIEmbedder(apiKey, model, baseURL string, timeout time.Duration) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = openaiEmbeddingsURL
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	if timeout <= 0 {
		timeout = defaultEmbedderTimeout
	}
	return &OpenAIEmbedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []embeddingDatum `json:"data"`
}

type embeddingDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed sends texts to the embeddings endpoint in batches.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbeddingBatchSize {
		end := start + maxEmbeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, terrors.Dependency("embed", "embedder", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, terrors.Dependency("embed", "embedder", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp embeddingError
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, terrors.Dependency("embed", "embedder",
				fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message))
		}
		return nil, terrors.Dependency("embed", "embedder",
			fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, terrors.Dependency("embed", "embedder",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data)))
	}

	// The API documents input order but carries an index field anyway.
	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, terrors.Dependency("embed", "embedder",
				fmt.Errorf("embedding index %d out of range", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
