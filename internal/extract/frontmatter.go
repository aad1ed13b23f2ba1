package extract

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontmatterExtractor parses a YAML block delimited by "---" on the first
// line and the next "---" line; returns {} on parse failure (spec §4.5).
func FrontmatterExtractor() Extractor {
	return Extractor{
		Name:       "frontmatter",
		Extensions: []string{".md", ".mdx"},
		Priority:   10,
		Extract:    extractFrontmatter,
	}
}

func extractFrontmatter(path string, content []byte) (map[string]any, error) {
	lines := strings.Split(string(content), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]any{}, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return map[string]any{}, nil
	}

	block := strings.Join(lines[1:end], "\n")
	var out map[string]any
	if err := yaml.Unmarshal([]byte(block), &out); err != nil {
		return map[string]any{}, nil
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
