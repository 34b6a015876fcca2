package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Redacted replaces scrubbed field values.
const Redacted = "[REDACTED]"

const maxFieldLength = 1000

var defaultSensitivePatterns = []string{
	"password", "token", "secret", "auth",
	"patient_name", "name", "email", "phone", "address", "notes",
}

// RedactHook scrubs sensitive log fields before they are written.
type RedactHook struct {
	patterns []string
}

// NewRedactHook creates a hook for the default sensitive field patterns plus extra.
func NewRedactHook(extra ...string) *RedactHook {
	patterns := make([]string, 0, len(defaultSensitivePatterns)+len(extra))
	patterns = append(patterns, defaultSensitivePatterns...)
	for _, p := range extra {
		patterns = append(patterns, strings.ToLower(p))
	}
	return &RedactHook{patterns: patterns}
}

// Levels implements logrus.Hook.
func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *RedactHook) Fire(entry *logrus.Entry) error {
	for k, v := range entry.Data {
		entry.Data[k] = h.sanitizeField(k, v)
	}
	return nil
}

func (h *RedactHook) sanitizeField(key string, value interface{}) interface{} {
	lowerKey := strings.ToLower(key)
	for _, pattern := range h.patterns {
		if strings.Contains(lowerKey, pattern) {
			return Redacted
		}
	}

	// Truncate very long values
	if str, ok := value.(string); ok && len(str) > maxFieldLength {
		return str[:maxFieldLength] + "... [TRUNCATED]"
	}
	return value
}
