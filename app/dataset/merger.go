package dataset

import (
	"slices"
	"time"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// nullDateSentinel stands in for a missing published_at when sorting. It is
// earlier than any real timestamp, so undated records end up last.
var nullDateSentinel = time.Time{}

// Batch is one run's normalized records, in file order.
type Batch struct {
	Name    string
	Records []opportunity.Record
}

type MergeOptions struct {
	// PreserveCreatedAt keeps the earliest created_at seen for an id instead
	// of taking the replacing record's value.
	PreserveCreatedAt bool
}

type MergeStats struct {
	Batches  int
	Records  int
	Unique   int
	Replaced int
	Skipped  int
}

// Merge deduplicates records by id across batches and orders the result by
// published_at, newest first, undated last. Batches are applied in the
// given order and records within a batch in sequence; a later record with
// an id already seen replaces the stored one. Ties keep the position at
// which an id was first inserted. Each call builds its own table.
func Merge(batches []Batch, opts MergeOptions) ([]opportunity.Record, MergeStats) {
	stats := MergeStats{Batches: len(batches)}

	records := make([]opportunity.Record, 0)
	positions := make(map[string]int)

	for _, batch := range batches {
		for _, record := range batch.Records {
			if record.ID == "" {
				stats.Skipped++
				continue
			}
			stats.Records++

			pos, ok := positions[record.ID]
			if !ok {
				positions[record.ID] = len(records)
				records = append(records, record)
				continue
			}

			if opts.PreserveCreatedAt {
				record.CreatedAt = earliest(records[pos].CreatedAt, record.CreatedAt)
			}
			records[pos] = record
			stats.Replaced++
		}
	}

	slices.SortStableFunc(records, func(a, b opportunity.Record) int {
		return sortKey(b).Compare(sortKey(a))
	})

	stats.Unique = len(records)
	return records, stats
}

func sortKey(record opportunity.Record) time.Time {
	if !record.HasPublishedAt() {
		return nullDateSentinel
	}
	return record.PublishedAt.Time
}

func earliest(existing, incoming opportunity.Timestamp) opportunity.Timestamp {
	if existing.IsZero() {
		return incoming
	}
	if incoming.IsZero() || existing.Before(incoming.Time) {
		return existing
	}
	return incoming
}
