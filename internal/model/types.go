// Package model defines the entities of the content-addressed asset store
// (spec §3): contexts, assets, content blobs/refs, version history, events,
// embeddings, and indexer cursor state. Types here are intentionally thin —
// storage and query logic live in internal/dbstore and friends.
package model

import "time"

// Mount maps an external directory into a virtual key prefix under a context.
type Mount struct {
	Path  string `json:"path"`
	Mount string `json:"mount"`
}

// Context is a registered folder (plus optional mounts) that Apprentice indexes.
type Context struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Path               string    `json:"path"`
	Mounts             []Mount   `json:"mounts"`
	Enabled            bool      `json:"enabled"`
	IncludePatterns    []string  `json:"includePatterns"`
	ExcludePatterns    []string  `json:"excludePatterns"`
	RegisteredAt       time.Time `json:"registeredAt"`
	LastIndexedAt      *time.Time `json:"lastIndexedAt,omitempty"`
	VersionProviderType string   `json:"versionProviderType,omitempty"`
}

// Asset is an indexed file within a context, identified by (context, key).
// ID = substring(SHA-256(context_id + ":" + key), 0, 16) — see model.AssetID.
type Asset struct {
	ID             string   `json:"id"`
	ContextID      string   `json:"contextId"`
	Key            string   `json:"key"`
	Extension      string   `json:"extension"`
	ContentHash    string   `json:"contentHash"`
	IndexedAt      time.Time `json:"indexedAt"`
	Metadata       Metadata `json:"metadata"`
	HeadVersionRef string   `json:"headVersionRef,omitempty"`
}

// ContentBlob is the bytes of a file, addressed by SHA-256 and deduplicated
// across assets and versions.
type ContentBlob struct {
	ContentHash    string    `json:"contentHash"`
	Content        []byte    `json:"-"`
	SizeBytes      int64     `json:"sizeBytes"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ContentRef is a reference from a context (optionally at a specific version
// ref) to a content blob. At most one row per (content_hash, context_id) may
// have IsHead = true.
type ContentRef struct {
	ContentHash  string `json:"contentHash"`
	ContextID    string `json:"contextId"`
	IsHead       bool   `json:"isHead"`
	VersionRefID string `json:"versionRefId,omitempty"`
}

// RefType enumerates the kinds of version ref a provider may report.
type RefType string

const (
	RefCommit RefType = "commit"
	RefTag    RefType = "tag"
	RefBranch RefType = "branch"
)

// VersionRef is a point in a context's version history.
type VersionRef struct {
	ID        string    `json:"id"`
	ContextID string    `json:"contextId"`
	RefType   RefType   `json:"refType"`
	Name      string    `json:"name"`
	ParentIDs []string  `json:"parentIds"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// AssetVersionStatus enumerates the change kind recorded for an asset at a ref.
type AssetVersionStatus string

const (
	StatusAdded    AssetVersionStatus = "added"
	StatusModified AssetVersionStatus = "modified"
	StatusDeleted  AssetVersionStatus = "deleted"
	StatusRenamed  AssetVersionStatus = "renamed"
)

// AssetVersion is an asset's content at a specific version ref.
type AssetVersion struct {
	ContextID    string             `json:"contextId"`
	Key          string             `json:"key"`
	VersionRefID string             `json:"versionRefId"`
	ContentHash  string             `json:"contentHash"`
	Status       AssetVersionStatus `json:"status"`
	RenamedFrom  string             `json:"renamedFrom,omitempty"`
}

// Event is a timestamped record with free-form message and namespaced
// metadata — the unit of the activity log.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Metadata  Metadata  `json:"metadata"`
}

// AssetEmbedding is the vector for an asset under a given model.
type AssetEmbedding struct {
	AssetID   string    `json:"assetId"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventEmbedding is the vector for an event under a given model.
type EventEmbedding struct {
	EventID   string    `json:"eventId"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// IndexerState stores per-source cursors (bash, chat, chat.import, ...) as
// opaque JSON values keyed by name.
type IndexerState struct {
	Key       string    `json:"key"`
	Value     Metadata  `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatImportCursor is the value shape stored under indexer_state key
// "chat.import": a map from source id to per-session import bookkeeping.
type ChatImportCursor struct {
	LastImportTime  time.Time            `json:"lastImportTime"`
	ImportedSessions map[string]time.Time `json:"importedSessions"`
}

// LogCursor is the value shape stored for the "bash"/"chat" event-log sources.
type LogCursor struct {
	LastProcessedLine      int       `json:"lastProcessedLine"`
	LastProcessedTimestamp time.Time `json:"lastProcessedTimestamp"`
}

// ChatToolCall is one tool invocation within a chat message, optionally
// flattened into its own event (spec §4.8, chatImport.toolCallsAsEvents).
type ChatToolCall struct {
	Name      string `json:"name"`
	Output    string `json:"output,omitempty"`
	Timestamp any    `json:"timestamp,omitempty"`
}

// ChatMessage is one turn in a ChatSession. Timestamp is left as the raw
// decoded JSON value (string or number) since sources encode it differently
// — see ParseChatTimestamp for the normalisation rule (spec §9 Open question).
type ChatMessage struct {
	Role      string         `json:"role"`
	Text      string         `json:"text"`
	Timestamp any            `json:"timestamp,omitempty"`
	ToolCalls []ChatToolCall `json:"toolCalls,omitempty"`
}

// ChatSession is what a ChatSourceAdapter's importSession(path) returns
// (spec §6 chat source adapter interface): a source-specific transcript
// flattened into a source-agnostic shape the importer can turn into events.
type ChatSession struct {
	SourceID  string        `json:"sourceId"`
	SessionID string        `json:"sessionId"`
	CreatedAt time.Time     `json:"createdAt"`
	Messages  []ChatMessage `json:"messages"`
}
