// Package redact masks credentials and personal data before they reach logs.
package redact

import "strings"

// Email keeps the first two characters of the local part and the domain.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	runes := []rune(local)
	if len(runes) > 2 {
		local = string(runes[:2]) + "***"
	} else {
		local = "***"
	}
	return local + "@" + domain
}

// Token hides a bearer or refresh token. Absence stays visible.
func Token(tok string) string {
	if tok == "" {
		return ""
	}
	return "[REDACTED_TOKEN]"
}
