package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/registry"
)

func openTestStore(t *testing.T) *dbstore.Store {
	t.Helper()
	store, err := dbstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRegistry_AddAndGet(t *testing.T) {
	store := openTestStore(t)
	reg := registry.New(store, nil)

	dir := t.TempDir()
	c, err := reg.Add(context.Background(), dir, registry.AddOpts{Name: "my project"})
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != "my-project" {
		t.Fatalf("expected slugified id, got %q", c.ID)
	}

	got, err := reg.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != c.Path {
		t.Fatalf("path mismatch: %q != %q", got.Path, c.Path)
	}
}

func TestRegistry_AddRejectsDuplicatePath(t *testing.T) {
	store := openTestStore(t)
	reg := registry.New(store, nil)
	dir := t.TempDir()

	if _, err := reg.Add(context.Background(), dir, registry.AddOpts{}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add(context.Background(), dir, registry.AddOpts{}); err == nil {
		t.Fatal("expected an error re-registering the same path")
	}
}

func TestRegistry_TouchIndexedUpdatesTimestamp(t *testing.T) {
	store := openTestStore(t)
	reg := registry.New(store, nil)
	dir := t.TempDir()

	c, err := reg.Add(context.Background(), dir, registry.AddOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if c.LastIndexedAt != nil {
		t.Fatal("expected no last_indexed_at before the first index pass")
	}

	at := time.Now().UTC()
	if err := reg.TouchIndexed(context.Background(), c.ID, at); err != nil {
		t.Fatal(err)
	}

	got, err := reg.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastIndexedAt == nil || !got.LastIndexedAt.Equal(at) {
		t.Fatalf("expected last_indexed_at to be %v, got %v", at, got.LastIndexedAt)
	}
}

func TestRegistry_MountsAreUniquePerContext(t *testing.T) {
	store := openTestStore(t)
	reg := registry.New(store, nil)
	dir := t.TempDir()
	mountDir := t.TempDir()

	c, err := reg.Add(context.Background(), dir, registry.AddOpts{})
	if err != nil {
		t.Fatal(err)
	}

	c, err = reg.AddMount(context.Background(), c.ID, mountDir, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Mounts) != 1 {
		t.Fatalf("expected 1 mount, got %d", len(c.Mounts))
	}

	if _, err := reg.AddMount(context.Background(), c.ID, mountDir, "other"); err == nil {
		t.Fatal("expected an error mounting the same path twice")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Project":     "my-project",
		"  leading":      "leading",
		"a/b/c":          "a/b/c",
		"weird!!chars??": "weird-chars",
	}
	for in, want := range cases {
		if got := registry.Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
