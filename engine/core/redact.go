package core

import (
	"regexp"
	"strings"
)

const (
	// AuthKey is the input property that carries piece credentials.
	AuthKey = "auth"
	// RedactedMarker replaces credentials in any value handed back to callers.
	RedactedMarker = "**REDACTED**"
)

// Credential shapes that show up in provider and piece runtime errors.
var (
	authHeaderRe = regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9\-._~+/]+=*`)
	credFieldRe  = regexp.MustCompile(
		`(?i)\b(api[_-]?key|access_token|refresh_token|client_secret|secret_text|token|secret|password)["']?\s*[:=]\s*["']?[^"'\s,}]+["']?`,
	)
	providerKeyRe = regexp.MustCompile(`\b(sk-ant-[A-Za-z0-9_\-]{16,}|sk-(?:proj-)?[A-Za-z0-9_\-]{16,})\b`)
	jwtRe         = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`)
	urlUserinfoRe = regexp.MustCompile(`(?i)\b(https?|wss?)://[^/@\s]+@`)
)

// RedactString trims and truncates s after scrubbing credential shapes, so
// error text can be returned to callers and logged.
func RedactString(s string) string {
	const maxLen = 256
	s = strings.TrimSpace(s)
	s = jwtRe.ReplaceAllString(s, "[TOKEN_REDACTED]")
	s = providerKeyRe.ReplaceAllString(s, "[KEY_REDACTED]")
	s = urlUserinfoRe.ReplaceAllString(s, "$1://[REDACTED]@")
	s = authHeaderRe.ReplaceAllString(s, "$1 [REDACTED]")
	s = credFieldRe.ReplaceAllString(s, "$1=[REDACTED]")
	if len(s) > maxLen {
		s = s[:maxLen] + "…"
	}
	return s
}

// RedactError applies RedactString to an error, returning an empty string when nil.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}

// RedactAuth returns a shallow copy of input whose auth entry, when present,
// is replaced by RedactedMarker. The original input is left untouched.
func RedactAuth(input Input) Input {
	if input == nil {
		return nil
	}
	out := make(Input, len(input))
	for k, v := range input {
		out[k] = v
	}
	if _, ok := out[AuthKey]; ok {
		out[AuthKey] = RedactedMarker
	}
	return out
}
