// Package registry implements the context registry (spec C3, §4.3):
// registered folders, include/exclude globs, mounted sub-paths, and the
// versioning-detection toggle.
package registry

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AprovanLabs/apprentice/internal/apperr"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
	"github.com/AprovanLabs/apprentice/internal/version"
)

// Registry manages Context rows, backed by the store.
type Registry struct {
	store    *dbstore.Store
	provider version.Provider // detection for the sole built-in provider, git
}

// New builds a Registry over store, using provider for version detection.
func New(store *dbstore.Store, provider version.Provider) *Registry {
	return &Registry{store: store, provider: provider}
}

// AddOpts customises Add beyond the folder path.
type AddOpts struct {
	Name            string
	Include         []string
	Exclude         []string
	NoVersioning    bool
	VersionBranches []string
}

// Add registers path as a context (spec §4.3 add).
func (r *Registry) Add(ctx context.Context, path string, opts AddOpts) (*model.Context, error) {
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, apperr.InvalidInputf("registry: path does not exist: %s", path)
	}
	canonical, err = filepath.Abs(canonical)
	if err != nil {
		return nil, apperr.InvalidInputf("registry: cannot resolve path: %s", path)
	}

	if existing, err := r.store.GetContextByPath(ctx, canonical); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperr.InvalidInputf("registry: context already registered at %s", canonical)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(canonical)
	}
	id := Slugify(name)

	c := &model.Context{
		ID:              id,
		Name:            name,
		Path:            canonical,
		Enabled:         true,
		IncludePatterns: defaultOr(opts.Include, []string{"**/*"}),
		ExcludePatterns: opts.Exclude,
		RegisteredAt:    time.Now().UTC(),
	}

	if !opts.NoVersioning && r.provider != nil {
		if r.provider.Detect(ctx, canonical) {
			c.VersionProviderType = r.provider.Name()
			if err := r.store.PutVersionProvider(ctx, id, r.provider.Name()); err != nil {
				return nil, err
			}
		}
	}

	if err := r.store.PutContext(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every registered context.
func (r *Registry) List(ctx context.Context) ([]model.Context, error) {
	return r.store.ListContexts(ctx)
}

// Get returns the context with id, or NotFound.
func (r *Registry) Get(ctx context.Context, id string) (*model.Context, error) {
	c, err := r.store.GetContext(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFoundf("registry: context %s", id)
	}
	return c, nil
}

// Update applies patch fields (non-zero-valued) to the context with id.
func (r *Registry) Update(ctx context.Context, id string, patch model.Context) (*model.Context, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != "" {
		c.Name = patch.Name
	}
	if patch.IncludePatterns != nil {
		c.IncludePatterns = patch.IncludePatterns
	}
	if patch.ExcludePatterns != nil {
		c.ExcludePatterns = patch.ExcludePatterns
	}
	if err := r.store.PutContext(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

// TouchIndexed records that a context was just fully walked by the
// indexing tick (spec §4.14), updating last_indexed_at.
func (r *Registry) TouchIndexed(ctx context.Context, id string, at time.Time) error {
	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	c.LastIndexedAt = &at
	return r.store.PutContext(ctx, *c)
}

// SetEnabled toggles a context's enabled flag.
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	c.Enabled = enabled
	return r.store.PutContext(ctx, *c)
}

// Remove deletes a context and cascades to its owned rows (spec §4.3 remove).
func (r *Registry) Remove(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return r.store.DeleteContext(ctx, id)
}

// AddMount attaches an external directory under a virtual key prefix (spec
// §4.3: mount strings are normalised by stripping leading/trailing '/';
// empty mounts are rejected; a mount must be unique within a context and
// must not duplicate the main path).
func (r *Registry) AddMount(ctx context.Context, id, path, mount string) (*model.Context, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	mount = strings.Trim(mount, "/")
	if mount == "" {
		return nil, apperr.InvalidInputf("registry: mount must not be empty")
	}

	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, apperr.InvalidInputf("registry: mount path does not exist: %s", path)
	}
	canonical, _ = filepath.Abs(canonical)
	if canonical == c.Path {
		return nil, apperr.InvalidInputf("registry: mount path duplicates the context's main path")
	}

	for _, m := range c.Mounts {
		if m.Mount == mount {
			return nil, apperr.InvalidInputf("registry: mount %q already used in context %s", mount, id)
		}
		if m.Path == canonical {
			return nil, apperr.InvalidInputf("registry: path %q already mounted in context %s", canonical, id)
		}
	}

	c.Mounts = append(c.Mounts, model.Mount{Path: canonical, Mount: mount})
	if err := r.store.PutContext(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveMount removes a mount identified by its mount string or its path.
func (r *Registry) RemoveMount(ctx context.Context, id, mountOrPath string) (*model.Context, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	kept := c.Mounts[:0]
	for _, m := range c.Mounts {
		if m.Mount != mountOrPath && m.Path != mountOrPath {
			kept = append(kept, m)
		}
	}
	c.Mounts = kept
	if err := r.store.PutContext(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

var slugCollapse = regexp.MustCompile(`-+`)
var slugInvalid = regexp.MustCompile(`[^a-z0-9/]+`)

// Slugify derives an id from name: lowercase alphanumerics and '/', with
// runs of invalid characters collapsed to a single '-' (spec §4.3 id
// generation).
func Slugify(name string) string {
	lower := strings.ToLower(name)
	replaced := slugInvalid.ReplaceAllString(lower, "-")
	collapsed := slugCollapse.ReplaceAllString(replaced, "-")
	return strings.Trim(collapsed, "-")
}

func defaultOr(v []string, fallback []string) []string {
	if len(v) == 0 {
		return fallback
	}
	return v
}
