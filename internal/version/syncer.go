package version

import (
	"context"
	"time"

	"github.com/AprovanLabs/apprentice/internal/apperr"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
)

// Syncer walks a context's version history and records refs, diffs, and
// per-ref file content (spec §4.7 sync algorithm).
type Syncer struct {
	store     *dbstore.Store
	provider  Provider
	batchSize int
}

// NewSyncer builds a Syncer using provider against store, processing refs
// in batches of batchSize.
func NewSyncer(store *dbstore.Store, provider Provider, batchSize int) *Syncer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Syncer{store: store, provider: provider, batchSize: batchSize}
}

// SyncResult summarises one sync pass.
type SyncResult struct {
	RefsProcessed int
	Errors        []error
}

// Sync runs the algorithm from spec §4.7: load last_sync_ref, list refs up
// to maxDepth, drop refs at/after last_sync_ref, reverse (oldest first),
// and process in batches, updating the cursor after each batch.
func (sy *Syncer) Sync(ctx context.Context, contextID, path string) (*SyncResult, error) {
	result := &SyncResult{}

	providerRow, err := sy.store.GetVersionProvider(ctx, contextID)
	if err != nil {
		return result, err
	}
	lastSyncRef := ""
	if providerRow != nil {
		lastSyncRef = providerRow.LastSyncRef
	}

	refs, err := sy.provider.ListRefs(ctx, path, ListRefsOpts{})
	if err != nil {
		return result, apperr.Transientf(err, "version: list refs for %s", contextID)
	}

	// ListRefs returns newest-first; drop everything at/after last_sync_ref,
	// then reverse so parents are processed before children (spec §5
	// ordering guarantee).
	if lastSyncRef != "" {
		cut := len(refs)
		for i, r := range refs {
			if r.ID == lastSyncRef {
				cut = i
				break
			}
		}
		refs = refs[:cut]
	}
	reverseRefs(refs)

	for start := 0; start < len(refs); start += sy.batchSize {
		end := min(start+sy.batchSize, len(refs))
		batch := refs[start:end]
		for _, ref := range batch {
			if err := sy.syncOneRef(ctx, contextID, path, ref); err != nil {
				result.Errors = append(result.Errors, apperr.Skipf("ref:"+ref.ID, err))
				continue
			}
			result.RefsProcessed++
		}
		if len(batch) > 0 {
			last := batch[len(batch)-1]
			if err := sy.store.UpdateSyncCursor(ctx, contextID, last.ID, time.Now().UTC()); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (sy *Syncer) syncOneRef(ctx context.Context, contextID, path string, ref Ref) error {
	mr, err := model.NewMetadata(nil)
	if err != nil {
		return err
	}
	if err := sy.store.InsertVersionRef(ctx, model.VersionRef{
		ID: ref.ID, ContextID: contextID, RefType: model.RefType(ref.Type), Name: ref.Name,
		ParentIDs: ref.ParentIDs, Timestamp: ref.Timestamp, Message: ref.Message, Metadata: mr,
	}); err != nil {
		return err
	}

	from := ""
	if len(ref.ParentIDs) > 0 {
		from = ref.ParentIDs[0]
	}
	changes, err := sy.provider.GetDiff(ctx, path, from, ref.ID)
	if err != nil {
		return err
	}

	for _, c := range changes {
		if c.Status == ChangeDeleted {
			if err := sy.store.InsertAssetVersion(ctx, model.AssetVersion{
				ContextID: contextID, Key: c.Key, VersionRefID: ref.ID, ContentHash: "",
				Status: model.StatusDeleted,
			}); err != nil {
				return err
			}
			continue
		}

		hash, err := sy.provider.GetContentHash(ctx, path, c.Key, ref.ID)
		if err != nil {
			return err
		}
		if err := sy.store.InsertAssetVersion(ctx, model.AssetVersion{
			ContextID: contextID, Key: c.Key, VersionRefID: ref.ID, ContentHash: hash,
			Status: model.AssetVersionStatus(c.Status), RenamedFrom: c.RenamedFrom,
		}); err != nil {
			return err
		}

		exists, err := sy.store.ContentExists(ctx, hash)
		if err != nil {
			return err
		}
		if !exists {
			content, err := sy.provider.GetContent(ctx, path, c.Key, ref.ID)
			if err != nil {
				return err
			}
			if err := sy.store.PutVersionedContent(ctx, hash, content, contextID, ref.ID); err != nil {
				return err
			}
		} else {
			if err := sy.store.PutVersionedContent(ctx, hash, nil, contextID, ref.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func reverseRefs(refs []Ref) {
	for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
		refs[i], refs[j] = refs[j], refs[i]
	}
}
