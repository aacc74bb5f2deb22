package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// ParseError reports that a source's raw content could not be read as a
// feed at all. The source yields no records for the run; other sources are
// unaffected.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Normalizer struct {
	parser    ItemParser
	extractor *Extractor
}

func NewNormalizer(parser ItemParser, extractor *Extractor) *Normalizer {
	return &Normalizer{
		parser:    parser,
		extractor: extractor,
	}
}

// Run parses one source's raw feed and maps every item to a record. Items
// that are discarded or fail to map are logged and skipped. When two items
// share an id, the later one replaces the earlier one in place.
func (n *Normalizer) Run(data []byte, source *Source, now time.Time) ([]opportunity.Record, error) {
	items, err := n.parser.Parse(data)
	if err != nil {
		return nil, &ParseError{Source: source.Source, Err: err}
	}

	records := make([]opportunity.Record, 0, len(items))
	positions := make(map[string]int, len(items))
	discarded, failed, collapsed := 0, 0, 0

	for i, item := range items {
		record, err := n.extractor.Run(item, source, now)
		if errors.Is(err, ErrMissingURL) {
			discarded++
			log.Debug().Str("source", source.Source).Int("item", i).Str("title", item.Title).Msg("Discarding item without url")
			continue
		}
		if err != nil {
			failed++
			log.Warn().Str("source", source.Source).Int("item", i).Err(err).Msg("Skipping item")
			continue
		}

		if pos, ok := positions[record.ID]; ok {
			collapsed++
			records[pos] = record
			continue
		}
		positions[record.ID] = len(records)
		records = append(records, record)
	}

	log.Debug().
		Str("source", source.Source).
		Int("items", len(items)).
		Int("records", len(records)).
		Int("discarded", discarded).
		Int("failed", failed).
		Int("collapsed", collapsed).
		Msg("Feed normalized")

	return records, nil
}
