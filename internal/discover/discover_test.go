package discover_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/discover"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalk_ExcludesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.md"), "hello")
	writeFile(t, filepath.Join(dir, "node_modules", "pkg", "index.js"), "ignored")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ignored")

	files, err := discover.Walk(context.Background(), []discover.Root{{Path: dir}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected only notes.md, got %v", files)
	}
	if files[0].Key != "notes.md" {
		t.Fatalf("expected key notes.md, got %q", files[0].Key)
	}
}

func TestWalk_CustomExcludePattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.md"), "a")
	writeFile(t, filepath.Join(dir, "skip.log"), "b")

	files, err := discover.Walk(context.Background(), []discover.Root{{Path: dir}}, nil, []string{"*.log"})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Key != "keep.md" {
		t.Fatalf("expected only keep.md, got %v", files)
	}
}

// TestWalk_LaterRootsOverrideSameKey covers spec §4.4: the discovered-file
// set is keyed by key, and later roots override earlier ones for the same key.
func TestWalk_LaterRootsOverrideSameKey(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "shared.md"), "from first")
	writeFile(t, filepath.Join(second, "shared.md"), "from second")

	files, err := discover.Walk(context.Background(), []discover.Root{
		{Path: first},
		{Path: second},
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected exactly one file for the shared key, got %d", len(files))
	}
	if files[0].AbsolutePath != filepath.Join(second, "shared.md") {
		t.Fatalf("expected the second root's file to win, got %q", files[0].AbsolutePath)
	}
}

// TestWalk_MountKeyPrefixHasSingleSlash covers spec §4.4: a mounted root's
// keys are prefixed by the mount string followed by a single "/".
func TestWalk_MountKeyPrefixHasSingleSlash(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "file.md"), "hello")

	files, err := discover.Walk(context.Background(), []discover.Root{
		{Path: dir, KeyPrefix: "docs/"},
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %v", files)
	}
	if files[0].Key != "docs/file.md" {
		t.Fatalf("expected key %q, got %q", "docs/file.md", files[0].Key)
	}
}

func TestWalk_MissingRootIsNotAnError(t *testing.T) {
	files, err := discover.Walk(context.Background(), []discover.Root{{Path: filepath.Join(t.TempDir(), "missing")}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files for a missing root, got %v", files)
	}
}

func TestHashFile_MatchesContentHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "hello world")

	hash, size, err := discover.HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len("hello world")) {
		t.Fatalf("expected size %d, got %d", len("hello world"), size)
	}
	if want := discover.HashContent([]byte("hello world")); hash != want {
		t.Fatalf("expected hash to match HashContent, got %q != %q", hash, want)
	}
}
