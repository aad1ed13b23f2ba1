// Package ingest implements the asset upserter (spec C6, §4.6) and the
// event log ingester (spec C8, §4.8): the two passes that turn discovered
// files and append-only log lines into rows in the store.
package ingest

import (
	"context"
	"os"
	"time"
	"unicode/utf8"

	"github.com/AprovanLabs/apprentice/internal/apperr"
	"github.com/AprovanLabs/apprentice/internal/discover"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/extract"
	"github.com/AprovanLabs/apprentice/internal/model"
)

// maxReadableContentBytes is the fixed threshold from spec §4.6 step 2:
// "Stat the file; if size <= 500,000 bytes, read as UTF-8 and run metadata
// extraction; otherwise leave content null and metadata empty." This is a
// literal constant in the algorithm text, distinct from the configurable
// indexer.maxFileSize / indexer.maxContentStore keys in spec §6 — see
// DESIGN.md's Open Question Decisions for how the three thresholds compose.
const maxReadableContentBytes = 500_000

// Upserter reconciles discovered files with the assets table (spec C6).
type Upserter struct {
	store      *dbstore.Store
	extractors *extract.Registry
}

// NewUpserter builds an Upserter using registry for metadata extraction.
func NewUpserter(store *dbstore.Store, registry *extract.Registry) *Upserter {
	return &Upserter{store: store, extractors: registry}
}

// UpsertResult tallies the outcome of an upsert pass (spec §4.6, S1).
type UpsertResult struct {
	Added   int
	Updated int
	Skipped int
	Errors  []error
}

// UpsertFiles runs the spec §4.6 algorithm for each discovered file.
// Errors do not abort the pass — they're collected and counted.
func (u *Upserter) UpsertFiles(ctx context.Context, contextID string, files []discover.File) *UpsertResult {
	result := &UpsertResult{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			return result
		}
		outcome, err := u.upsertOne(ctx, contextID, f)
		if err != nil {
			result.Errors = append(result.Errors, apperr.Skipf(f.Key, err))
			continue
		}
		switch outcome {
		case outcomeAdded:
			result.Added++
		case outcomeUpdated:
			result.Updated++
		case outcomeSkipped:
			result.Skipped++
		}
	}
	return result
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeAdded
	outcomeUpdated
)

func (u *Upserter) upsertOne(ctx context.Context, contextID string, f discover.File) (outcome, error) {
	id := model.AssetID(contextID, f.Key)

	hash, size, err := discover.HashFile(f.AbsolutePath)
	if err != nil {
		return outcomeSkipped, err
	}

	existing, err := u.store.GetAsset(ctx, id)
	if err != nil {
		return outcomeSkipped, err
	}
	if existing != nil && existing.ContentHash == hash {
		return outcomeSkipped, nil
	}

	var content []byte
	metadata := model.Empty
	if size <= maxReadableContentBytes {
		raw, err := os.ReadFile(f.AbsolutePath)
		if err != nil {
			return outcomeSkipped, err
		}
		if utf8.Valid(raw) {
			content = raw
			ext := extension(f.Key)
			md, extractErrs := u.extractors.ExtractAll(ext, f.AbsolutePath, content)
			metadata = md
			_ = extractErrs // per-handler errors are swallowed into metadata gaps, not propagated (spec §4.5)
		}
	}

	asset := model.Asset{
		ID: id, ContextID: contextID, Key: f.Key, Extension: extension(f.Key),
		ContentHash: hash, IndexedAt: time.Now().UTC(), Metadata: metadata,
	}
	created, err := u.store.UpsertAsset(ctx, asset)
	if err != nil {
		return outcomeSkipped, err
	}

	if content != nil && hash != "" {
		if err := u.store.PutContent(ctx, hash, content, contextID); err != nil {
			return outcomeSkipped, err
		}
	}

	if created {
		return outcomeAdded, nil
	}
	return outcomeUpdated, nil
}

func extension(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i:]
		}
		if key[i] == '/' {
			break
		}
	}
	return ""
}
