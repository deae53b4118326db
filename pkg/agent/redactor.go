// redactor.go recursively rewrites a mapping, replacing values whose key
// matches any sensitive pattern. Grounded directly on the teacher's
// scrubber.go (sensitiveKeyPatterns / isSensitiveKey / ScrubMetadata),
// generalized from a flat map[string]string to an arbitrary nested
// map[string]any tree, since request context and exception-as-variables
// payloads are not flat.

package agent

import "strings"

const redactedPlaceholder = "[REDACTED]"

// defaultSensitivePatterns is the spec's case-insensitive substring list.
var defaultSensitivePatterns = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"auth", "authorization", "credit_card", "creditcard", "cvv", "ssn",
	"private_key", "privatekey",
}

// RedactorConfig allows a host to extend, but never shrink, the sensitive
// key list.
type RedactorConfig struct {
	// ExtraPatterns is unioned with the spec's default pattern list.
	ExtraPatterns []string
}

// Redactor replaces values of sensitive keys with "[REDACTED]" and descends
// into nested containers, skipping any subtree rooted at a sensitive key.
type Redactor struct {
	patterns []string
}

// NewRedactor returns a Redactor using the spec's default pattern list
// unioned with cfg.ExtraPatterns.
func NewRedactor(cfg RedactorConfig) *Redactor {
	patterns := make([]string, 0, len(defaultSensitivePatterns)+len(cfg.ExtraPatterns))
	patterns = append(patterns, defaultSensitivePatterns...)
	patterns = append(patterns, cfg.ExtraPatterns...)
	return &Redactor{patterns: patterns}
}

// Redact returns a new map with sensitive values replaced; the input is
// not mutated.
func (r *Redactor) Redact(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.isSensitive(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = r.redactValue(v)
	}
	return out
}

func (r *Redactor) redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return r.Redact(t)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			if r.isSensitive(k) {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.redactValue(item)
		}
		return out
	default:
		return v
	}
}

func (r *Redactor) isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range r.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
