package extract

import (
	"bufio"
	"bytes"
	"strings"
)

// ShellScriptExtractor parses the first shebang line and a header comment
// block for description/usage/args fields (spec §4.5 built-in extractor).
func ShellScriptExtractor() Extractor {
	return Extractor{
		Name:       "script",
		Extensions: []string{".sh", ".bash", ".zsh"},
		Priority:   10,
		Extract:    extractShellMetadata,
	}
}

var shellHeaderFields = []string{"description", "usage", "args"}

func extractShellMetadata(path string, content []byte) (map[string]any, error) {
	out := map[string]any{}
	scanner := bufio.NewScanner(bytes.NewReader(content))

	if scanner.Scan() {
		first := scanner.Text()
		if strings.HasPrefix(first, "#!") {
			out["shebang"] = strings.TrimSpace(first)
		}
	}

	var currentField string
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			break
		}
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))

		if field, rest, ok := matchHeaderField(body); ok {
			currentField = field
			out[field] = rest
			continue
		}
		if currentField != "" && body != "" {
			out[currentField] = strings.TrimSpace(out[currentField].(string) + " " + body)
		}
	}

	return out, scanner.Err()
}

// matchHeaderField matches "description:", "usage:", "args:" (case
// insensitive) at the start of a comment-body line.
func matchHeaderField(body string) (field, rest string, ok bool) {
	lower := strings.ToLower(body)
	for _, f := range shellHeaderFields {
		prefix := f + ":"
		if strings.HasPrefix(lower, prefix) {
			return f, strings.TrimSpace(body[len(prefix):]), true
		}
	}
	return "", "", false
}
