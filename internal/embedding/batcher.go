package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
)

// maxEventOutputPreview is the fixed cap on metadata.shell.output_preview
// folded into an event's embedding text (spec §4.9).
const maxEventOutputPreview = 500

// maxAssetEmbedText is the fixed cap on text composed for an asset's
// embedding, whether drawn from stored content or extracted metadata
// fields (spec §4.9).
const maxAssetEmbedText = 4000

// Batcher selects rows lacking an embedding, composes their text per spec
// §4.9, and upserts the resulting vectors (spec C9 batch half).
type Batcher struct {
	store    *dbstore.Store
	provider Provider
}

// NewBatcher builds a Batcher using provider for all embed calls.
func NewBatcher(store *dbstore.Store, provider Provider) *Batcher {
	return &Batcher{store: store, provider: provider}
}

// PassResult tallies one embedding pass.
type PassResult struct {
	Embedded int
	Errors   []error
}

// GenerateAssetEmbeddings embeds up to limit assets lacking a vector row
// (spec §4.14 indexing tick: "generateAssetEmbeddings(100)").
func (b *Batcher) GenerateAssetEmbeddings(ctx context.Context, limit int) (*PassResult, error) {
	result := &PassResult{}
	ids, err := b.store.NeedingAssetEmbedding(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding: select assets: %w", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	assets, err := b.store.GetAssetsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding: fetch assets: %w", err)
	}

	var texts []string
	var kept []string
	for _, a := range assets {
		text, err := b.assetEmbedText(ctx, a)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("apprentice/embedding: asset %s: %w", a.ID, err))
			continue
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
		kept = append(kept, a.ID)
	}
	if len(texts) == 0 {
		return result, nil
	}

	vecs, err := b.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("apprentice/embedding: embed batch: %w", err)
	}
	if err := b.recordDimensions(ctx, vecs); err != nil {
		result.Errors = append(result.Errors, err)
	}

	for i, id := range kept {
		if err := b.store.SetAssetEmbedding(ctx, id, vecs[i], b.provider.Model()); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("apprentice/embedding: store asset %s: %w", id, err))
			continue
		}
		result.Embedded++
	}
	return result, nil
}

// GenerateEventEmbeddings embeds up to limit events lacking a vector row.
func (b *Batcher) GenerateEventEmbeddings(ctx context.Context, limit int) (*PassResult, error) {
	result := &PassResult{}
	ids, err := b.store.NeedingEventEmbedding(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding: select events: %w", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	events, err := b.store.GetEventsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("apprentice/embedding: fetch events: %w", err)
	}

	texts := make([]string, 0, len(events))
	kept := make([]string, 0, len(events))
	for _, e := range events {
		text := eventEmbedText(e.Message, e.Metadata.GetString("shell.output_preview"))
		if text == "" {
			continue
		}
		texts = append(texts, text)
		kept = append(kept, e.ID)
	}
	if len(texts) == 0 {
		return result, nil
	}

	vecs, err := b.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("apprentice/embedding: embed batch: %w", err)
	}
	if err := b.recordDimensions(ctx, vecs); err != nil {
		result.Errors = append(result.Errors, err)
	}

	for i, id := range kept {
		if err := b.store.SetEventEmbedding(ctx, id, vecs[i], b.provider.Model()); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("apprentice/embedding: store event %s: %w", id, err))
			continue
		}
		result.Embedded++
	}
	return result, nil
}

// eventEmbedText composes an event's embedding input: message concatenated
// with the first 500 chars of metadata.shell.output_preview when present
// (spec §4.9).
func eventEmbedText(message, outputPreview string) string {
	if outputPreview == "" {
		return message
	}
	if len(outputPreview) > maxEventOutputPreview {
		outputPreview = outputPreview[:maxEventOutputPreview]
	}
	return strings.TrimSpace(message + " " + outputPreview)
}

// assetEmbedText composes an asset's embedding input: the first 4000 chars
// of stored content if any, else a concatenation of extracted metadata
// fields up to 4000 chars (spec §4.9).
func (b *Batcher) assetEmbedText(ctx context.Context, a model.Asset) (string, error) {
	if a.ContentHash != "" {
		blob, err := b.store.GetContent(ctx, a.ContentHash)
		if err != nil {
			return "", err
		}
		if blob != nil {
			text := string(blob.Content)
			if len(text) > maxAssetEmbedText {
				text = text[:maxAssetEmbedText]
			}
			return text, nil
		}
	}

	var parts []string
	for _, path := range []string{
		"script.description", "script.usage",
		"frontmatter.title", "frontmatter.description",
		"content.summary",
	} {
		if v := a.Metadata.GetString(path); v != "" {
			parts = append(parts, v)
		}
	}
	text := strings.Join(parts, " ")
	if len(text) > maxAssetEmbedText {
		text = text[:maxAssetEmbedText]
	}
	return text, nil
}

// recordDimensions records the provider's model dimension the first time a
// batch reveals it (spec §4.9).
func (b *Batcher) recordDimensions(ctx context.Context, vecs [][]float32) error {
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil
	}
	if err := b.store.RecordEmbeddingDimensions(ctx, b.provider.Model(), len(vecs[0])); err != nil {
		return fmt.Errorf("apprentice/embedding: record dimensions: %w", err)
	}
	return nil
}
