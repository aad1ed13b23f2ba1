// Package embedding implements the embedding provider capability set and
// batcher (spec C9, §4.9). Two wire dialects are supported: the
// OpenAI-compatible /embeddings endpoint and the simpler single-prompt
// dialect used by local Ollama, directly adapted from the host's
// ollama.go OllamaEmbedder.
package embedding

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the embedding capability set (spec §4.9):
// {name, dimensions, model, embed, embed_batch}.
type Provider interface {
	Name() string
	Model() string
	// Dimensions returns the last known vector width, or 0 if unknown
	// until the first successful embed call.
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// knownDimensions is a fallback table of model -> vector width, consulted
// before the first embed call reveals the provider's actual dimension
// (spec §4.9: "known dimensions table exists for fallback").
var knownDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// ParseModelRef splits a "provider/model" string (spec §4.9: "Provider
// selection parses provider/model").
func ParseModelRef(ref string) (provider, model string, err error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("apprentice/embedding: invalid model ref %q, want provider/model", ref)
	}
	return parts[0], parts[1], nil
}

// New builds a Provider for ref ("provider/model"), honouring the known
// ollama and openai dialects; baseURL configures the HTTP endpoint.
func New(ref, baseURL string) (Provider, error) {
	providerName, model, err := ParseModelRef(ref)
	if err != nil {
		return nil, err
	}
	dims := knownDimensions[model]

	switch providerName {
	case "ollama":
		return NewOllamaProvider(baseURL, model, dims), nil
	case "openai":
		return NewOpenAIProvider(baseURL, model, dims), nil
	default:
		return nil, fmt.Errorf("apprentice/embedding: unknown provider %q in %q", providerName, ref)
	}
}
