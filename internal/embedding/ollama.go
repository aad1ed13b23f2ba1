package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaProvider implements Provider using Ollama's simpler single-prompt
// dialect (spec §4.9), adapted from the host's OllamaEmbedder to the
// single-prompt shape (POST /api/embeddings with one prompt at a time,
// processed sequentially with a small inter-call delay).
type OllamaProvider struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// NewOllamaProvider builds an OllamaProvider calling baseURL (default
// http://localhost:11434) for model, with a 60s timeout per spec §5's
// "60s for local Ollama" default.
func NewOllamaProvider(baseURL, model string, knownDims int) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		dims:    knownDims,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OllamaProvider) Name() string    { return "ollama" }
func (p *OllamaProvider) Model() string   { return p.model }
func (p *OllamaProvider) Dimensions() int { return p.dims }

type ollamaSingleRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaSingleResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed calls Ollama's single-prompt /api/embeddings endpoint.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaSingleRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/ollama: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/ollama: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/ollama: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/ollama: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apprentice/embedding/ollama: HTTP %d: %s", resp.StatusCode, raw)
	}

	var out ollamaSingleResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("apprentice/embedding/ollama: unmarshal: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("apprentice/embedding/ollama: empty embedding")
	}
	if p.dims == 0 {
		p.dims = len(out.Embedding)
	}
	return out.Embedding, nil
}

// EmbedBatch processes texts sequentially with a small inter-call delay,
// per spec §4.9's description of the single-prompt dialect.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("apprentice/embedding/ollama: item %d: %w", i, err)
		}
		out = append(out, vec)
		if i < len(texts)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
		}
	}
	return out, nil
}
