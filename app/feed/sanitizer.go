package feed

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	stripPolicy = newStripPolicy()

	// markupRe matches angle brackets that survive entity decoding, e.g. from "&lt;b&gt;".
	markupRe = regexp.MustCompile(`[<>]`)

	// charRefRe matches character references left over after decoding,
	// with or without the closing semicolon.
	charRefRe = regexp.MustCompile(`&(#[0-9]+;?|#[xX][0-9a-fA-F]+;?|[A-Za-z][A-Za-z0-9]*;?)`)
)

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// Sanitize converts free text that may contain HTML into a single line of
// plain text. It returns nil for nil input and when nothing is left after
// cleaning.
func Sanitize(text *string) *string {
	if text == nil {
		return nil
	}
	cleaned := SanitizeString(*text)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// SanitizeString strips tags, decodes character references, turns any
// markup characters or references that remain into spaces, and collapses
// whitespace. Malformed markup never fails; at worst stray characters stay.
// Sanitizing an already sanitized string returns it unchanged.
func SanitizeString(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	cleaned := stripPolicy.Sanitize(text)
	cleaned = html.UnescapeString(cleaned)
	cleaned = markupRe.ReplaceAllString(cleaned, " ")
	cleaned = charRefRe.ReplaceAllString(cleaned, " ")
	cleaned = norm.NFC.String(cleaned)

	return strings.Join(strings.Fields(cleaned), " ")
}
