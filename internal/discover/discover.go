// Package discover enumerates a context's files into (key, absolute path,
// hash) tuples (spec C4, §4.4). Each call to Walk is a fresh, one-shot
// traversal — matching spec §9's "Iterator model" note that discovery is
// non-restartable; callers re-walk rather than resuming a prior pass.
package discover

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// defaultExcludes is the union of excludes applied to every context,
// regardless of its own exclude_patterns (spec §4.4).
var defaultExcludes = []string{"node_modules", ".git", "dist", "build", "*.log"}

// File is one discovered file, combined with a size stat and content hash
// by the caller (the upserter) into everything it needs (spec §4.4).
type File struct {
	Key          string
	AbsolutePath string
	SourcePath   string // the context main path or mount path this file was found under
}

// Root is one tree to walk: a context's main path, or one of its mounts.
type Root struct {
	Path        string // filesystem path to walk
	KeyPrefix   string // "" for the main path; "mount/" for a mount
	SourcePath  string
}

// Walk enumerates roots with the given include/exclude glob patterns,
// applying defaultExcludes unioned with excludes, and returns the
// deduplicated-by-key file set (spec §4.4: "the final discovered-file set
// is keyed by key; later entries override earlier ones when the same key
// appears under multiple roots").
//
// Symlinks to directories are skipped; broken symlinks are skipped.
func Walk(ctx context.Context, roots []Root, include, exclude []string) ([]File, error) {
	if len(include) == 0 {
		include = []string{"**/*"}
	}
	allExcludes := append(append([]string{}, defaultExcludes...), exclude...)

	byKey := map[string]File{}
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := walkRoot(root, include, allExcludes)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			byKey[f.Key] = f // later roots override earlier ones for the same key
		}
	}

	out := make([]File, 0, len(byKey))
	for _, f := range byKey {
		out = append(out, f)
	}
	return out, nil
}

func walkRoot(root Root, include, exclude []string) ([]File, error) {
	var out []File
	err := filepath.Walk(root.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		rel, relErr := filepath.Rel(root.Path, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.Mode()&os.ModeSymlink != 0 {
			target, statErr := os.Stat(path)
			if statErr != nil {
				return nil // broken symlink: skip
			}
			if target.IsDir() {
				return nil // symlinked directories are skipped, not followed
			}
		}

		if matchesAny(rel, exclude) || (info.IsDir() && matchesAny(rel+"/", exclude)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}
		if rel == "." {
			return nil
		}
		if !matchesAny(rel, include) {
			return nil
		}

		key := rel
		if root.KeyPrefix != "" {
			key = root.KeyPrefix + rel
		}
		out = append(out, File{Key: key, AbsolutePath: path, SourcePath: root.SourcePath})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchesAny reports whether rel matches any of patterns, supporting the
// "**/*" double-star convention in addition to filepath.Match's single-level
// globs.
func matchesAny(rel string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if matchGlob(p, rel) {
			return true
		}
	}
	return false
}

// matchGlob supports a pragmatic subset of glob patterns: "**/" prefix
// matches any depth, "*" matches within a path segment, and a bare name
// (no slash or star) matches any path component equal to it — the common
// case for excludes like "node_modules" or "*.log".
func matchGlob(pattern, rel string) bool {
	if !strings.ContainsAny(pattern, "*?[") && !strings.Contains(pattern, "/") {
		for _, seg := range strings.Split(rel, "/") {
			if seg == pattern {
				return true
			}
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
		return false
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if ok, _ := filepath.Match(suffix, filepath.Base(rel)); ok {
			return true
		}
		segs := strings.Split(rel, "/")
		for i := range segs {
			candidate := strings.Join(segs[i:], "/")
			if ok, _ := filepath.Match(suffix, candidate); ok {
				return true
			}
		}
		return pattern == "**/*"
	}

	if ok, _ := filepath.Match(pattern, rel); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, filepath.Base(rel))
	return ok
}

// HashFile computes the streaming SHA-256 of a file's bytes (spec §4.4:
// "Hashing is streaming SHA-256 over file bytes").
func HashFile(path string) (hash string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashContent is a convenience wrapper around model.ContentHash for callers
// that already have the bytes in memory.
func HashContent(b []byte) string { return model.ContentHash(b) }
