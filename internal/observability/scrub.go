package observability

import (
	"strings"
)

// Field keys whose values never reach production logs verbatim. Matching is
// case-insensitive on the normalized key (dots, dashes and underscores
// removed).
var sensitiveKeys = map[string]struct{}{
	"domain":       {},
	"company":      {},
	"companyname":  {},
	"description":  {},
	"email":        {},
	"phone":        {},
	"contactphone": {},
	"linkedin":     {},
	"twitter":      {},
	"github":       {},
	"sociallinks":  {},
	"keypeople":    {},
	"token":        {},
	"authorization": {},
	"apikey":       {},
	"secret":       {},
	"password":     {},
	"url":          {},
	"origin":       {},
}

// Scrubber removes PII from log payloads. Outside production it is a no-op
// so local debugging keeps full fidelity.
type Scrubber struct {
	enabled bool
}

// NewScrubber builds a scrubber active only when production is true.
func NewScrubber(production bool) *Scrubber {
	return &Scrubber{enabled: production}
}

// Scrub walks the value and replaces anything under a sensitive key with a
// length-preserving placeholder. Maps and slices are copied, never mutated.
func (s *Scrubber) Scrub(value any) any {
	if !s.enabled {
		return value
	}
	return s.walk(value, false)
}

// ScrubField scrubs one value under an explicit key, for call sites that log
// a bare value instead of a keyed map. Scrub cannot see the log field name,
// so sensitive scalars must come through here.
func (s *Scrubber) ScrubField(key string, value any) any {
	if !s.enabled {
		return value
	}
	return s.walk(value, isSensitiveKey(key))
}

// ScrubID shortens identifiers to their last four characters so logs stay
// correlatable without carrying whole UUIDs.
func (s *Scrubber) ScrubID(id string) string {
	if !s.enabled {
		return id
	}
	return truncateID(id)
}

func (s *Scrubber) walk(value any, sensitive bool) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = s.walk(inner, sensitive || isSensitiveKey(key))
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = s.walk(inner, sensitive)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = s.walk(inner, sensitive)
		}
		return out
	case string:
		if looksLikeUUID(v) {
			return truncateID(v)
		}
		if sensitive {
			return placeholder(len(v))
		}
		return v
	default:
		if sensitive {
			return "[scrubbed]"
		}
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(key)
	normalized = strings.NewReplacer(".", "", "-", "", "_", "").Replace(normalized)
	_, ok := sensitiveKeys[normalized]
	return ok
}

// placeholder keeps the original length so log analysis can still reason
// about field sizes.
func placeholder(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("*", n)
}

func truncateID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return "..." + id[len(id)-4:]
}

func looksLikeUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
			if !isHex {
				return false
			}
		}
	}
	return true
}
