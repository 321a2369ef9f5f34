package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace secret values.
const RedactedPlaceholder = "[REDACTED]"

// secretPatterns match the secrets this daemon actually handles: provider
// session material (bearer tokens, cookie headers), the throwaway account
// password, and cloud API keys. Compiled once at package initialization.
var secretPatterns = []*regexp.Regexp{
	// OpenAI API keys (sk-... or sk-proj-...)
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),
	// Bearer tokens scraped from provider pages or auth sessions
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),
	// JWTs appearing bare in scraped HTML or response bodies
	regexp.MustCompile(`(eyJ[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,})`),
	// Cookie header values
	regexp.MustCompile(`(?i)((?:set-)?cookie\s*[:=]\s*[^\s;]{8,})`),
	// Generic secret assignments in request/response dumps
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;"]{6,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*"?[a-zA-Z0-9._-]{16,})`),
	regexp.MustCompile(`(?i)(csrf[a-z_]*\s*[:=]\s*"?[a-zA-Z0-9._-]{16,})`),
}

// secretFieldNames are log field names whose values are always redacted
// regardless of content.
var secretFieldNames = []string{
	"OPENAI_API_KEY",
	"API_KEY",
	"APIKEY",
	"PASSWORD",
	"TOKEN",
	"COOKIE",
	"AUTHORIZATION",
	"SECRET",
}

// RedactSecrets scans a string and replaces any detected secret material.
// Pure function: safe to call on every log field.
func RedactSecrets(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSecretField returns true if the field name indicates a secret value.
func IsSecretField(fieldName string) bool {
	upper := strings.ToUpper(fieldName)
	for _, name := range secretFieldNames {
		if strings.Contains(upper, name) {
			return true
		}
	}
	return false
}

// ContainsSecrets returns true if the value matches any secret pattern.
func ContainsSecrets(value string) bool {
	if value == "" {
		return false
	}
	for _, pattern := range secretPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
