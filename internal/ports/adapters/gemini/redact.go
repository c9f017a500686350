package gemini

import (
	"regexp"
	"strings"
)

var apiKeyFieldRE = regexp.MustCompile(`(?i)(x-goog-api-key\s*[:=]\s*|key=)([^\s&"',;]+)`)

// redactSecrets keeps API keys out of error strings that may end up in
// logs or HTTP error bodies.
func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	return apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
