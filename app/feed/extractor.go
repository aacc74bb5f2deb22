package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// ErrMissingURL marks an item that has no usable link. Such items are
// discarded, not treated as failures.
var ErrMissingURL = errors.New("item has no url")

// Each field is read through an ordered list of accessors; the first
// non-empty value wins.

type textAccessor func(item RawItem) string

type timeAccessor func(item RawItem) *time.Time

var urlAccessors = []textAccessor{
	func(item RawItem) string { return item.Link },
	func(item RawItem) string { return firstNonBlank(item.Links...) },
	func(item RawItem) string {
		if isURL(item.GUID) {
			return item.GUID
		}
		return ""
	},
}

var summaryAccessors = []textAccessor{
	func(item RawItem) string { return item.Content },
	func(item RawItem) string { return item.Description },
	func(item RawItem) string { return item.ITunesSummary },
	func(item RawItem) string { return item.ITunesSubtitle },
}

var publishedAccessors = []timeAccessor{
	func(item RawItem) *time.Time { return item.PublishedParsed },
	func(item RawItem) *time.Time { return item.UpdatedParsed },
	func(item RawItem) *time.Time { return parseLooseDate(item.Published) },
	func(item RawItem) *time.Time { return parseLooseDate(item.Updated) },
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Run maps one item to a record. It returns ErrMissingURL for items without
// a link and a descriptive error if mapping fails for any other reason.
func (e *Extractor) Run(item RawItem, source *Source, now time.Time) (record opportunity.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to map item %q: %v", item.Title, r)
		}
	}()

	if source == nil {
		return opportunity.Record{}, fmt.Errorf("source configuration is nil")
	}

	url := firstText(item, urlAccessors)
	if url == "" {
		return opportunity.Record{}, ErrMissingURL
	}

	stamp := opportunity.NewTimestamp(now)

	record = opportunity.Record{
		ID:          opportunity.Identity(source.Source, url),
		Title:       strings.TrimSpace(item.Title),
		URL:         url,
		Source:      source.Source,
		SourceURL:   source.SourceURL,
		PublishedAt: e.publishedAt(item),
		Summary:     e.summary(item),
		Tags:        mergeTags(source.DefaultTags, item.Categories),
		Language:    opportunity.StringPtr(source.Language),
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}

	return record, nil
}

func (e *Extractor) summary(item RawItem) *string {
	for _, accessor := range summaryAccessors {
		if cleaned := SanitizeString(accessor(item)); cleaned != "" {
			return &cleaned
		}
	}
	return nil
}

func (e *Extractor) publishedAt(item RawItem) *opportunity.Timestamp {
	for _, accessor := range publishedAccessors {
		if t := accessor(item); t != nil && !t.IsZero() {
			return opportunity.NewTimestampPtr(*t)
		}
	}
	return nil
}

// mergeTags returns defaults followed by categories, trimmed, without
// blanks or repeats, in first-seen order. The result is never nil.
func mergeTags(defaults, categories []string) []string {
	tags := make([]string, 0, len(defaults)+len(categories))
	seen := make(map[string]struct{}, cap(tags))

	for _, group := range [][]string{defaults, categories} {
		for _, tag := range group {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}

	return tags
}

// parseLooseDate handles date strings gofeed could not parse. Dates without
// a zone are taken as UTC.
func parseLooseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

func firstText(item RawItem, accessors []textAccessor) string {
	for _, accessor := range accessors {
		if v := strings.TrimSpace(accessor(item)); v != "" {
			return v
		}
	}
	return ""
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func isURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
