package extract

import (
	"regexp"
	"strings"
)

// Quote markers wrap text the verbatim strategy copied word for word.
const (
	QuoteOpen  = "[[QUOTE]]"
	QuoteClose = "[[/QUOTE]]"
)

var quotePattern = regexp.MustCompile(`(?s)\[\[QUOTE\]\](.*?)\[\[/QUOTE\]\]`)

// Quotes returns the marked quotes in text, in order, trimmed.
func Quotes(text string) []string {
	matches := quotePattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if q := strings.TrimSpace(m[1]); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// VerifyQuotes checks every marked quote in text against source. A quote is
// verified when, after whitespace normalization and removal of surrounding
// quotation marks, it is a substring of source. Unverified quotes lose their
// markers and are returned so the caller can report them.
func VerifyQuotes(text, source string) (cleaned string, unverified []string) {
	normSource := normalizeSpace(source)
	cleaned = quotePattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := quotePattern.FindStringSubmatch(match)[1]
		if containsQuote(normSource, inner) {
			return match
		}
		unverified = append(unverified, strings.TrimSpace(inner))
		return inner
	})
	return cleaned, unverified
}

// containsQuote reports whether quote occurs in source modulo whitespace and
// surrounding quotation marks. source must already be normalized.
func containsQuote(normSource, quote string) bool {
	q := normalizeSpace(strings.Trim(strings.TrimSpace(quote), "\"'“”‘’"))
	if q == "" {
		return false
	}
	return strings.Contains(normSource, q)
}

// StripMarkers removes quote markers, keeping the quoted text.
func StripMarkers(text string) string {
	return quotePattern.ReplaceAllString(text, "$1")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RenderQuotes replaces quote markers with quotation marks and drops any
// unpaired marker.
func RenderQuotes(text string) string {
	text = quotePattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := strings.TrimSpace(quotePattern.FindStringSubmatch(match)[1])
		if strings.HasPrefix(inner, "\"") || strings.HasPrefix(inner, "“") {
			return inner
		}
		return "\"" + inner + "\""
	})
	return strings.NewReplacer(QuoteOpen, "", QuoteClose, "").Replace(text)
}
