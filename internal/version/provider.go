// Package version implements the VersionProvider capability set (spec §4.7,
// §9 "Capability polymorphism": "version providers... are capability sets.
// Express each as a trait/interface with a single built-in implementation
// (git...)").
package version

import (
	"context"
	"time"
)

// RefType mirrors model.RefType without importing the model package's
// storage concerns into the provider contract.
type RefType string

const (
	RefCommit RefType = "commit"
	RefTag    RefType = "tag"
	RefBranch RefType = "branch"
)

// Ref is a single point in a context's version history as reported by a provider.
type Ref struct {
	ID        string
	Type      RefType
	Name      string
	ParentIDs []string
	Timestamp time.Time
	Message   string
}

// ChangeStatus mirrors model.AssetVersionStatus.
type ChangeStatus string

const (
	ChangeAdded    ChangeStatus = "added"
	ChangeModified ChangeStatus = "modified"
	ChangeDeleted  ChangeStatus = "deleted"
	ChangeRenamed  ChangeStatus = "renamed"
)

// Change is one file's delta between two refs.
type Change struct {
	Key         string
	Status      ChangeStatus
	RenamedFrom string
}

// ListRefsOpts filters ListRefs.
type ListRefsOpts struct {
	Branch string
	Since  string // ref id; refs at/after this id are excluded by the caller
	Limit  int
}

// Provider is the capability set a version-control backend must implement.
// One built-in implementation is specified (git, see git.go); room is left
// for registration-time additions, matching spec §9's capability-polymorphism note.
type Provider interface {
	Name() string
	Detect(ctx context.Context, path string) bool
	GetCurrentRef(ctx context.Context, path string) (Ref, error)
	GetRef(ctx context.Context, path, id string) (Ref, error)
	ListRefs(ctx context.Context, path string, opts ListRefsOpts) ([]Ref, error)
	GetDiff(ctx context.Context, path, from, to string) ([]Change, error)
	GetContent(ctx context.Context, path, key, ref string) ([]byte, error)
	GetContentHash(ctx context.Context, path, key, ref string) (string, error)
	ListFiles(ctx context.Context, path, ref string) ([]string, error)
	CanRetrieve(ctx context.Context, path, ref string) bool
}
