package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"
)

// OpenAIProvider implements Provider using the OpenAI-compatible
// POST /embeddings endpoint (array input, response items sorted by
// index per spec §4.9). The request/response shapes mirror
// openai/openai-go's embedding types closely enough to swap in that
// client later without touching callers, but are hand-rolled here to
// keep the transport a plain *http.Client like the rest of the codebase.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	model   string
	dims    int
	client  *http.Client
}

// NewOpenAIProvider builds an OpenAIProvider calling baseURL (default
// https://api.openai.com/v1) for model, with a 30s timeout per spec §5.
func NewOpenAIProvider(baseURL, model string, knownDims int) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		baseURL: baseURL,
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		model:   model,
		dims:    knownDims,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string    { return "openai" }
func (p *OpenAIProvider) Model() string   { return p.model }
func (p *OpenAIProvider) Dimensions() int { return p.dims }

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type openAIEmbedResponse struct {
	Data []openAIEmbedItem `json:"data"`
}

// Embed embeds a single text via EmbedBatch.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch posts all texts as one array-input request and re-orders the
// response by its index field (spec §4.9: "array input, sorted by index").
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/openai: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/openai: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding/openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apprentice/embedding/openai: HTTP %d: %s", resp.StatusCode, raw)
	}

	var out openAIEmbedResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("apprentice/embedding/openai: unmarshal: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("apprentice/embedding/openai: expected %d embeddings, got %d", len(texts), len(out.Data))
	}

	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vecs := make([][]float32, len(out.Data))
	for i, item := range out.Data {
		vecs[i] = item.Embedding
	}
	if p.dims == 0 && len(vecs) > 0 {
		p.dims = len(vecs[0])
	}
	return vecs, nil
}
