package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Metadata is a schemaless JSON object tree (spec §9: "Dynamic JSON
// metadata... a tagged tree... with helpers for dot-path lookup, flatten/
// expand round-trip, namespaced merge"). Top-level keys are conventional
// namespaces: shell, git, chat, tool, asset, relations, project, source,
// script, frontmatter, filesystem, content.
//
// We deliberately do not pre-declare every namespace as a Go struct field —
// callers reach into it with dot-paths via Get/Set, backed by gjson/sjson.
type Metadata []byte

// Empty is the canonical empty metadata object.
var Empty = Metadata([]byte("{}"))

// NewMetadata wraps an arbitrary JSON-marshalable value as Metadata.
func NewMetadata(v any) (Metadata, error) {
	if v == nil {
		return Empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("apprentice/model: marshal metadata: %w", err)
	}
	return Metadata(b), nil
}

// IsEmpty reports whether m has no meaningful content.
func (m Metadata) IsEmpty() bool {
	t := strings.TrimSpace(string(m))
	return t == "" || t == "{}" || t == "null"
}

// raw returns m, defaulting to "{}" when empty so gjson/sjson always see
// valid JSON.
func (m Metadata) raw() []byte {
	if m.IsEmpty() {
		return []byte("{}")
	}
	return []byte(m)
}

// Get performs a dot-path lookup (e.g. "chat.session_id", "relations.0.asset_id").
func (m Metadata) Get(path string) gjson.Result {
	return gjson.GetBytes(m.raw(), path)
}

// GetString is a convenience wrapper returning "" when the path is absent.
func (m Metadata) GetString(path string) string {
	r := m.Get(path)
	if !r.Exists() {
		return ""
	}
	return r.String()
}

// Set returns a copy of m with value written at the dot-path.
func (m Metadata) Set(path string, value any) (Metadata, error) {
	out, err := sjson.SetBytes(m.raw(), path, value)
	if err != nil {
		return nil, fmt.Errorf("apprentice/model: set metadata path %q: %w", path, err)
	}
	return Metadata(out), nil
}

// MergeNamespace returns a copy of m with value placed under the top-level
// namespace key, replacing any existing value there wholesale.
func (m Metadata) MergeNamespace(namespace string, value any) (Metadata, error) {
	return m.Set(namespace, value)
}

// Flatten converts a JSON object of primitive leaves (and nested objects,
// but NOT arrays — see spec §8.8) into a flat map keyed by dot-path.
//
// Testable property (spec §8.8): Flatten(Expand(x)) == x for maps of
// primitive leaves.
func Flatten(m Metadata) map[string]any {
	out := map[string]any{}
	var obj map[string]any
	if err := json.Unmarshal(m.raw(), &obj); err != nil {
		return out
	}
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch vv := v.(type) {
		case map[string]any:
			flattenInto(out, path, vv)
		default:
			out[path] = v
		}
	}
}

// Expand builds a Metadata object tree from a flat dot-path map. It is the
// inverse of Flatten for maps that contain no arrays.
//
// Testable property (spec §8.8): Expand(Flatten(x)) == x for objects without arrays.
func Expand(flat map[string]any) (Metadata, error) {
	// Deterministic key order keeps output byte-stable for tests.
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := []byte("{}")
	var err error
	for _, k := range keys {
		b, err = sjson.SetBytes(b, k, flat[k])
		if err != nil {
			return nil, fmt.Errorf("apprentice/model: expand path %q: %w", k, err)
		}
	}
	return Metadata(b), nil
}

// Conflicts returns true if a and b are both non-empty JSON objects and any
// shared top-level key has a different value. Used by supersession-style
// logic to tell whether two records come from different contexts.
func Conflicts(a, b Metadata) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	var ma, mb map[string]any
	if json.Unmarshal(a.raw(), &ma) != nil || json.Unmarshal(b.raw(), &mb) != nil {
		return false
	}
	for k, va := range ma {
		if vb, ok := mb[k]; ok {
			if fmt.Sprintf("%v", va) != fmt.Sprintf("%v", vb) {
				return true
			}
		}
	}
	return false
}

func (m Metadata) String() string { return string(m.raw()) }
