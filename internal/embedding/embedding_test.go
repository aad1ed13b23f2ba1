package embedding_test

import (
	"testing"

	"github.com/AprovanLabs/apprentice/internal/embedding"
)

func TestParseModelRef(t *testing.T) {
	cases := []struct {
		ref          string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{"ollama/nomic-embed-text", "ollama", "nomic-embed-text", false},
		{"openai/text-embedding-3-small", "openai", "text-embedding-3-small", false},
		{"nomic-embed-text", "", "", true},
		{"ollama/", "", "", true},
		{"/model", "", "", true},
	}
	for _, c := range cases {
		provider, model, err := embedding.ParseModelRef(c.ref)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseModelRef(%q): expected an error", c.ref)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseModelRef(%q): unexpected error: %v", c.ref, err)
			continue
		}
		if provider != c.wantProvider || model != c.wantModel {
			t.Errorf("ParseModelRef(%q) = (%q, %q), want (%q, %q)", c.ref, provider, model, c.wantProvider, c.wantModel)
		}
	}
}

func TestNew_UnknownProviderErrors(t *testing.T) {
	if _, err := embedding.New("bedrock/titan-embed", ""); err == nil {
		t.Fatal("expected an error for an unrecognised provider dialect")
	}
}

func TestNew_KnownDimensionsSeeded(t *testing.T) {
	p, err := embedding.New("ollama/nomic-embed-text", "http://localhost:11434")
	if err != nil {
		t.Fatal(err)
	}
	if p.Dimensions() != 768 {
		t.Fatalf("expected the known-dimensions fallback (768) before any embed call, got %d", p.Dimensions())
	}
}
