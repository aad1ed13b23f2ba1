package model_test

import (
	"reflect"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// TestAssetID_Stable covers spec §8.1: id == substring(SHA-256(contextID+":"+key), 0, 16).
func TestAssetID_Stable(t *testing.T) {
	got := model.AssetID("ctx1", "notes/a.md")
	want := model.AssetID("ctx1", "notes/a.md")
	if got != want {
		t.Fatalf("AssetID is not deterministic: %q != %q", got, want)
	}
	if len(got) != 16 {
		t.Fatalf("expected a 16-char id, got %q (%d chars)", got, len(got))
	}
	if other := model.AssetID("ctx2", "notes/a.md"); other == got {
		t.Fatal("expected different contexts to produce different ids")
	}
}

func TestContentHash_Stable(t *testing.T) {
	a := model.ContentHash([]byte("hello"))
	b := model.ContentHash([]byte("hello"))
	if a != b {
		t.Fatalf("ContentHash is not deterministic: %q != %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-char hex digest, got %d chars", len(a))
	}
}

func TestEncodeDecodeVector_RoundTrips(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.125}
	got := model.DecodeVector(model.EncodeVector(v))
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, v)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if sim := model.CosineSimilarity([]float32{1, 0}, []float32{1, 0}); sim != 1 {
		t.Fatalf("identical vectors should have similarity 1, got %v", sim)
	}
	if sim := model.CosineSimilarity([]float32{1, 0}, []float32{0, 1}); sim != 0 {
		t.Fatalf("orthogonal vectors should have similarity 0, got %v", sim)
	}
	if sim := model.CosineSimilarity([]float32{1, 2}, []float32{1}); sim != 0 {
		t.Fatalf("mismatched lengths should return 0, got %v", sim)
	}
	if sim := model.CosineSimilarity(nil, nil); sim != 0 {
		t.Fatalf("empty vectors should return 0, got %v", sim)
	}
}

func TestCosineDistance_IsOneMinusSimilarity(t *testing.T) {
	a, b := []float32{1, 0}, []float32{1, 0}
	if d := model.CosineDistance(a, b); d != 0 {
		t.Fatalf("identical vectors should have distance 0, got %v", d)
	}
}

func TestMetadata_GetSetRoundTrip(t *testing.T) {
	m, err := model.Empty.Set("chat.session_id", "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.GetString("chat.session_id"); got != "abc123" {
		t.Fatalf("expected abc123, got %q", got)
	}
	if got := m.GetString("chat.missing"); got != "" {
		t.Fatalf("expected empty string for missing path, got %q", got)
	}
}

func TestMetadata_IsEmpty(t *testing.T) {
	if !model.Empty.IsEmpty() {
		t.Fatal("expected Empty to be empty")
	}
	var zero model.Metadata
	if !zero.IsEmpty() {
		t.Fatal("expected the zero value to be treated as empty")
	}
	m, _ := model.Empty.Set("a", 1)
	if m.IsEmpty() {
		t.Fatal("expected a metadata value with a key set to be non-empty")
	}
}

// TestFlattenExpand_RoundTrips covers spec §8.8: Flatten(Expand(x)) == x and
// Expand(Flatten(x)) == x for maps of primitive leaves (no arrays).
func TestFlattenExpand_RoundTrips(t *testing.T) {
	flat := map[string]any{
		"chat.session_id": "s1",
		"chat.turn":       float64(3),
		"git.branch":      "main",
	}
	meta, err := model.Expand(flat)
	if err != nil {
		t.Fatal(err)
	}
	back := model.Flatten(meta)
	if !reflect.DeepEqual(back, flat) {
		t.Fatalf("Flatten(Expand(x)) != x: got %v, want %v", back, flat)
	}
}

func TestConflicts(t *testing.T) {
	a, _ := model.Empty.Set("source", "alpha")
	b, _ := model.Empty.Set("source", "beta")
	if !model.Conflicts(a, b) {
		t.Fatal("expected differing values for a shared key to conflict")
	}
	c, _ := model.Empty.Set("source", "alpha")
	if model.Conflicts(a, c) {
		t.Fatal("expected identical values to not conflict")
	}
	if model.Conflicts(model.Empty, a) {
		t.Fatal("expected an empty side to never conflict")
	}
}
