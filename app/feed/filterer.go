package feed

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

var validFilterFields = map[string]bool{
	"title":   true,
	"summary": true,
	"url":     true,
	"tags":    true,
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops the records rejected by the source's filters and returns the
// rest in their original order.
func (f *Filterer) Run(records []opportunity.Record, source *Source) []opportunity.Record {
	if len(source.Filters) == 0 {
		return records
	}

	kept := make([]opportunity.Record, 0, len(records))
	for _, record := range records {
		if isFiltered, reason := f.applyFilters(record, source.Filters); isFiltered {
			log.Debug().Str("source", source.Source).Str("url", record.URL).Str("reason", reason).Msg("Record filtered")
			continue
		}
		kept = append(kept, record)
	}

	return kept
}

func (f *Filterer) applyFilters(record opportunity.Record, filters []SourceFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(record, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(record opportunity.Record, field string) string {
	switch field {
	case "title":
		return record.Title
	case "summary":
		return opportunity.Deref(record.Summary)
	case "url":
		return record.URL
	case "tags":
		return strings.Join(record.Tags, " ")
	default:
		return ""
	}
}
