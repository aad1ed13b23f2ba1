// Package redact implements the secret-redaction interface specified in
// spec §6. Secret redaction rules themselves are explicitly out of scope
// (spec §1 Non-goals) — only the interface, redact(text) -> text, and its
// idempotency property (spec §8.9) are specified here. The pattern list is
// a configuration constant, not user-configurable.
package redact

import "regexp"

// rule is one pattern -> replacement substitution, applied in order.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules is the fixed sequence of pattern->replacement substitutions applied
// by Redact. Order matters: more specific patterns (JWTs, PEM blocks) run
// before generic catch-alls (bare env-var assignments) so a JWT embedded in
// an env-var value is fully masked rather than partially matched twice.
var rules = []rule{
	{regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`), "sk-***REDACTED***"},
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-_\.=]+`), "Bearer ***REDACTED***"},
	{regexp.MustCompile(`(?i)basic\s+[A-Za-z0-9+/=]{8,}`), "Basic ***REDACTED***"},
	{regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`), "***REDACTED_JWT***"},
	{regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.\-]*://[^\s:/@]+:[^\s:/@]+@`), "***REDACTED_URL_CREDS***@"},
	{regexp.MustCompile(`(?s)-----BEGIN (?:RSA |EC |OPENSSH |)PRIVATE KEY-----.*?-----END (?:RSA |EC |OPENSSH |)PRIVATE KEY-----`), "***REDACTED_PRIVATE_KEY***"},
	{regexp.MustCompile(`ssh-(?:rsa|ed25519|dss) [A-Za-z0-9+/=]+`), "***REDACTED_SSH_KEY***"},
	{regexp.MustCompile(`(?i)\b((?:AWS|API|SECRET|ACCESS|PRIVATE|TOKEN)_?(?:KEY|TOKEN)?)=([^\s]+)`), "$1=***REDACTED***"},
}

// Redact applies the fixed substitution sequence to text. It is idempotent:
// Redact(Redact(x)) == Redact(x) (spec §8.9), since every replacement string
// above is itself inert against every pattern in the list.
func Redact(text string) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}
