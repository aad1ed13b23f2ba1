package redact_test

import (
	"strings"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/redact"
)

func TestRedact_BearerToken(t *testing.T) {
	got := redact.Redact("Authorization: Bearer abc123.def456")
	if strings.Contains(got, "abc123") {
		t.Fatalf("expected the bearer token to be redacted, got %q", got)
	}
}

func TestRedact_OpenAIStyleKey(t *testing.T) {
	got := redact.Redact("OPENAI_API_KEY=sk-abcdefghijklmnopqrstuvwxyz012345")
	if strings.Contains(got, "sk-abcdefghijklmnopqrstuvwxyz012345") {
		t.Fatalf("expected the sk- key to be redacted, got %q", got)
	}
}

func TestRedact_EnvVarAssignment(t *testing.T) {
	got := redact.Redact("AWS_SECRET_KEY=superlongsecretvalue123")
	if strings.Contains(got, "superlongsecretvalue123") {
		t.Fatalf("expected the env assignment value to be redacted, got %q", got)
	}
}

func TestRedact_LeavesOrdinaryTextAlone(t *testing.T) {
	text := "ran `ls -la` in /home/user/project"
	if got := redact.Redact(text); got != text {
		t.Fatalf("expected ordinary text to pass through unchanged, got %q", got)
	}
}

// TestRedact_Idempotent covers spec §8.9: Redact(Redact(x)) == Redact(x).
func TestRedact_Idempotent(t *testing.T) {
	text := "Authorization: Bearer abc123.def456 and OPENAI_API_KEY=sk-abcdefghijklmnopqrstuvwxyz012345"
	once := redact.Redact(text)
	twice := redact.Redact(once)
	if once != twice {
		t.Fatalf("expected redaction to be idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}
