// Package extract implements the pluggable metadata extractor registry
// (spec C5, §4.5). Grounded on matthewjhunter/memstore's extract.go for the
// registry-with-per-handler-error-isolation shape ("Exceptions in any
// handler are caught and logged without aborting the overall extraction"),
// adapted from LLM fact extraction to per-extension file metadata extraction.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// Extractor is one pluggable metadata producer (spec §4.5).
type Extractor struct {
	Name       string
	Extensions []string
	Priority   int
	Extract    func(path string, content []byte) (map[string]any, error)
}

// Registry runs every extractor matching a file's extension, in descending
// priority order, placing each extractor's output under its Name key.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a Registry with the built-in extractors the spec
// covers (shell-script, frontmatter) pre-registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(ShellScriptExtractor())
	r.Register(FrontmatterExtractor())
	return r
}

// Register adds an extractor.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority > r.extractors[j].Priority
	})
}

// ExtractAll runs every extractor matching extension against content,
// merging their outputs under their own namespace keys. Handler panics and
// errors are caught and recorded, never aborting the overall extraction
// (spec §4.5).
func (r *Registry) ExtractAll(extension string, path string, content []byte) (model.Metadata, []error) {
	var errs []error
	flat := map[string]any{}

	for _, e := range r.extractors {
		if !hasExtension(e.Extensions, extension) {
			continue
		}
		out, err := runExtractor(e, path, content)
		if err != nil {
			errs = append(errs, fmt.Errorf("extract/%s: %w", e.Name, err))
			continue
		}
		if len(out) > 0 {
			flat[e.Name] = out
		}
	}

	md, err := model.NewMetadata(flat)
	if err != nil {
		errs = append(errs, err)
		return model.Empty, errs
	}
	return md, errs
}

// runExtractor isolates a single handler's panics as errors, matching spec
// §4.5's "exceptions in any handler are caught and logged without aborting".
func runExtractor(e Extractor, path string, content []byte) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.Extract(path, content)
}

func hasExtension(exts []string, ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
