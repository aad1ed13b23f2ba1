package version_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/version"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "a.txt")
	run("commit", "-q", "-m", "first")
	return dir
}

func TestGit_Detect(t *testing.T) {
	dir := initRepo(t)
	g := version.NewGit(0)
	if !g.Detect(context.Background(), dir) {
		t.Fatal("expected Detect to be true for a git repo")
	}
	if g.Detect(context.Background(), t.TempDir()) {
		t.Fatal("expected Detect to be false for a non-repo directory")
	}
}

func TestGit_GetCurrentRefAndListRefs(t *testing.T) {
	dir := initRepo(t)
	g := version.NewGit(0)

	ref, err := g.GetCurrentRef(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if ref.ID == "" {
		t.Fatal("expected a non-empty commit id")
	}
	if ref.Message != "first" {
		t.Fatalf("expected message %q, got %q", "first", ref.Message)
	}

	refs, err := g.ListRefs(context.Background(), dir, version.ListRefsOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
}

func TestGit_GetContentAndHash(t *testing.T) {
	dir := initRepo(t)
	g := version.NewGit(0)
	ref, err := g.GetCurrentRef(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	content, err := g.GetContent(context.Background(), dir, "a.txt", ref.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "one" {
		t.Fatalf("expected content %q, got %q", "one", content)
	}

	if !g.CanRetrieve(context.Background(), dir, ref.ID) {
		t.Fatal("expected CanRetrieve to be true for a known ref")
	}
	if g.CanRetrieve(context.Background(), dir, "0000000000000000000000000000000000dead") {
		t.Fatal("expected CanRetrieve to be false for an unknown ref")
	}
}

// TestGit_GetDiff_RootCommitAgainstEmptyTree covers spec §4.7: the diff for
// a root commit is taken against the empty tree.
func TestGit_GetDiff_RootCommitAgainstEmptyTree(t *testing.T) {
	dir := initRepo(t)
	g := version.NewGit(0)
	ref, err := g.GetCurrentRef(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	changes, err := g.GetDiff(context.Background(), dir, "", ref.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].Key != "a.txt" || changes[0].Status != version.ChangeAdded {
		t.Fatalf("expected a single Added change for a.txt, got %+v", changes)
	}
}
