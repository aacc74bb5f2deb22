package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/rs/zerolog/log"
)

// MaxExtractedSummary caps summaries taken from article pages, in runes.
const MaxExtractedSummary = 500

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts the main text of an HTML page and returns it as a sanitized,
// length-capped summary.
func (e *ContentExtractor) Run(data []byte, pageURL *url.URL) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}

	text := truncateRunes(SanitizeString(buf.String()), MaxExtractedSummary)
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	log.Debug().Int("content_length", len(text)).Msg("Content extracted successfully")

	return text, nil
}

// truncateRunes cuts s to at most limit runes, backing off to the last
// word boundary when one exists.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
