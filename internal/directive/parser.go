// Package directive extracts structured intent objects embedded in free-form
// model output. A reply may carry at most one directive per discriminator; it
// is usually fenced as a ```json block, but models are inconsistent, so
// extraction degrades through three tiers: a fence tagged json, any bare
// fence, then a balanced-brace scan of the raw text.
package directive

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mymy770/Clara/internal/logging"
)

// Discriminator keys that mark an object as a directive.
const (
	// KeyMemoryAction marks a memory directive.
	KeyMemoryAction = "memory_action"
	// KeyIntent marks a filesystem directive (value "filesystem").
	KeyIntent = "intent"
)

// Directive is one decoded directive object. Payload access goes through the
// typed getters, which absorb JSON's loose typing (numbers arrive as
// float64, arrays as []any).
type Directive map[string]any

// Has reports whether the key is present.
func (d Directive) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the string value for key, or "" when absent or not a string.
func (d Directive) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int64 returns an integer value for key, accepting JSON numbers and numeric
// strings.
func (d Directive) Int64(key string) (int64, bool) {
	switch v := d[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Float returns a float value for key.
func (d Directive) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Bool returns a bool value for key with a default for absence.
func (d Directive) Bool(key string, def bool) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return def
}

// StringSlice returns a string list for key. A single string value is
// wrapped; non-string elements are dropped. Nil means the key was absent.
func (d Directive) StringSlice(key string) []string {
	switch v := d[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		return []string{v}
	}
	return nil
}

// Map returns a nested object for key, or nil.
func (d Directive) Map(key string) map[string]any {
	m, _ := d[key].(map[string]any)
	return m
}

var (
	fencedTagged = regexp.MustCompile("(?s)```(?:json|JSON)\\s*(.*?)```")
	fencedBare   = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// Extract finds the first well-formed directive carrying the discriminator
// key and returns the input with the matched block removed and surrounding
// whitespace trimmed. When nothing matches, the input comes back untouched
// with a nil directive. A detected candidate that fails to decode is treated
// as "no directive" — malformed model output must never fail the turn — and
// only logged.
//
// Tier order matters for compatibility with real model output: an explicitly
// tagged fence wins over a bare fence, which wins over a naked object in
// prose. Only the first match is honored; later directive-shaped text is
// left in place, unexecuted.
func Extract(text, discriminator string) (string, Directive) {
	for _, pattern := range []*regexp.Regexp{fencedTagged, fencedBare} {
		cleaned, d, stop := extractFenced(text, pattern, discriminator)
		if d != nil {
			return cleaned, d
		}
		if stop {
			return text, nil
		}
	}
	return extractBare(text, discriminator)
}

// extractFenced scans fenced blocks for a directive. stop reports that a
// relevant-looking candidate was malformed, which ends the whole extraction.
func extractFenced(text string, pattern *regexp.Regexp, discriminator string) (string, Directive, bool) {
	for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
		inner := strings.TrimSpace(text[loc[2]:loc[3]])
		if !strings.HasPrefix(inner, "{") {
			continue
		}

		var d Directive
		if err := json.Unmarshal([]byte(inner), &d); err != nil {
			if strings.Contains(inner, `"`+discriminator+`"`) {
				logging.Get().Warn("Malformed directive ignored",
					"discriminator", discriminator, "error", err)
				return text, nil, true
			}
			continue
		}
		if !d.Has(discriminator) {
			continue
		}
		return removeSegment(text, loc[0], loc[1]), d, false
	}
	return text, nil, false
}

// extractBare scans the raw text for the minimal balanced object containing
// the discriminator at its top level.
func extractBare(text, discriminator string) (string, Directive) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end, ok := matchBrace(text, i)
		if !ok {
			continue
		}
		candidate := text[i : end+1]
		if !keyAtTopLevel(candidate, discriminator) {
			continue
		}

		var d Directive
		if err := json.Unmarshal([]byte(candidate), &d); err != nil {
			logging.Get().Warn("Malformed directive ignored",
				"discriminator", discriminator, "error", err)
			return text, nil
		}
		return removeSegment(text, i, end+1), d
	}
	return text, nil
}

// matchBrace finds the closing brace matching the opener at start, honouring
// JSON string literals and escapes.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++ // skip escaped char
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// keyAtTopLevel reports whether the quoted key occurs at depth one of the
// balanced object in candidate, so a directive nested inside some wrapper
// object is not mistaken for the wrapper itself.
func keyAtTopLevel(candidate, key string) bool {
	quoted := `"` + key + `"`
	depth := 0
	inString := false
	stringStart := 0
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
				if depth == 1 && candidate[stringStart:i+1] == quoted {
					return true
				}
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			stringStart = i
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return false
}

// removeSegment deletes text[from:to] and trims the seams so the visible
// reply reads naturally without the directive.
func removeSegment(text string, from, to int) string {
	before := strings.TrimRight(text[:from], " \t\n\r")
	after := strings.TrimLeft(text[to:], " \t\n\r")
	if before == "" {
		return after
	}
	if after == "" {
		return before
	}
	return before + "\n\n" + after
}
