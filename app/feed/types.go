package feed

import (
	"time"
)

// RawItem is one entry as read from an RSS or Atom document, before any
// normalization. Every field is optional.
type RawItem struct {
	Title       string
	Link        string
	Links       []string
	GUID        string
	Content     string // full body, including content:encoded
	Description string
	Categories  []string

	ITunesSummary  string
	ITunesSubtitle string

	Published       string
	PublishedParsed *time.Time
	Updated         string
	UpdatedParsed   *time.Time
}

// Source configuration types

type Source struct {
	Source         string         `yaml:"source"`
	SourceURL      string         `yaml:"source_url"`
	Enabled        bool           `yaml:"enabled"`
	Language       string         `yaml:"language"`
	DefaultTags    []string       `yaml:"default_tags"`
	Filters        []SourceFilter `yaml:"filters"`
	ExtractContent bool           `yaml:"extract_content"` // fill empty summaries from the linked page
	Timeout        int            `yaml:"timeout"`         // seconds
}

type SourceFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
