package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy drops every element; text content survives (HTML-escaped).
var sanitizer = bluemonday.StrictPolicy()

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// SanitizeText neutralizes markup and normalizes whitespace in free text.
// Entities written by the user are kept literally, never decoded into markup.
// The result holds no angle brackets, so SanitizeText(SanitizeText(x)) == SanitizeText(x).
func SanitizeText(input string) string {
	s := stripControl(strings.ToValidUTF8(input, "\uFFFD"))
	s = scriptBlockRe.ReplaceAllString(s, "")
	// bluemonday decodes entities in text and re-escapes it; pre-escaping '&'
	// makes that round trip exact, so unescaping yields the original text.
	s = html.UnescapeString(sanitizer.Sanitize(strings.ReplaceAll(s, "&", "&amp;")))
	s = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, stripControl(s))
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripControl drops control characters other than whitespace, which is collapsed later.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeObject applies SanitizeText to every string reachable from v, keeping keys and nesting.
// Non-string scalars are returned unchanged.
func SanitizeObject(v any) any {
	switch t := v.(type) {
	case string:
		return SanitizeText(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = SanitizeObject(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = SanitizeText(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = SanitizeObject(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			out[i] = SanitizeText(val)
		}
		return out
	default:
		return v
	}
}

// SanitizeFields sanitizes a flat form field map in place.
func SanitizeFields(fields map[string]string) {
	for k, v := range fields {
		fields[k] = SanitizeText(v)
	}
}
