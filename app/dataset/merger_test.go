package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

func published(s string) *opportunity.Timestamp {
	ts, err := opportunity.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return &ts
}

func ids(records []opportunity.Record) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.ID)
	}
	return out
}

func TestMergeLastWriteWins(t *testing.T) {
	batches := []Batch{
		{Name: "2024-01-01.jsonl", Records: []opportunity.Record{{ID: "x", Title: "old"}}},
		{Name: "2024-01-02.jsonl", Records: []opportunity.Record{{ID: "x", Title: "new"}}},
	}

	merged, stats := Merge(batches, MergeOptions{})
	require.Len(t, merged, 1)
	assert.Equal(t, "new", merged[0].Title)
	assert.Equal(t, MergeStats{Batches: 2, Records: 2, Unique: 1, Replaced: 1}, stats)
}

func TestMergeLastWriteWinsWithinBatch(t *testing.T) {
	batches := []Batch{
		{Records: []opportunity.Record{{ID: "x", Title: "first"}, {ID: "x", Title: "second"}}},
	}

	merged, _ := Merge(batches, MergeOptions{})
	require.Len(t, merged, 1)
	assert.Equal(t, "second", merged[0].Title)
}

func TestMergeNullDatesLast(t *testing.T) {
	batches := []Batch{
		{Records: []opportunity.Record{{ID: "a", PublishedAt: published("2024-01-01T00:00:00Z")}}},
		{Records: []opportunity.Record{{ID: "b", PublishedAt: nil}}},
	}

	merged, _ := Merge(batches, MergeOptions{})
	assert.Equal(t, []string{"a", "b"}, ids(merged))

	reversed := []Batch{batches[1], batches[0]}
	merged, _ = Merge(reversed, MergeOptions{})
	assert.Equal(t, []string{"a", "b"}, ids(merged))
}

func TestMergeDescendingOrder(t *testing.T) {
	batches := []Batch{
		{Records: []opportunity.Record{
			{ID: "undated-1"},
			{ID: "mid", PublishedAt: published("2024-02-01T00:00:00Z")},
			{ID: "old", PublishedAt: published("2023-06-01T12:00:00Z")},
		}},
		{Records: []opportunity.Record{
			{ID: "new", PublishedAt: published("2024-05-01T08:00:00+02:00")},
			{ID: "undated-2"},
			{ID: "mid-later", PublishedAt: published("2024-02-01T00:00:01Z")},
		}},
	}

	merged, _ := Merge(batches, MergeOptions{})
	assert.Equal(t, []string{"new", "mid-later", "mid", "old", "undated-1", "undated-2"}, ids(merged))

	for i := 1; i < len(merged); i++ {
		prev, cur := merged[i-1], merged[i]
		if prev.HasPublishedAt() && cur.HasPublishedAt() {
			assert.False(t, prev.PublishedAt.Before(cur.PublishedAt.Time), "%s before %s", prev.ID, cur.ID)
		}
		if !prev.HasPublishedAt() {
			assert.False(t, cur.HasPublishedAt(), "dated record %s after undated %s", cur.ID, prev.ID)
		}
	}
}

func TestMergeTiesKeepFirstInsertionOrder(t *testing.T) {
	same := "2024-01-01T00:00:00Z"
	batches := []Batch{
		{Records: []opportunity.Record{
			{ID: "a", PublishedAt: published(same)},
			{ID: "b", PublishedAt: published(same)},
		}},
		{Records: []opportunity.Record{
			{ID: "c", PublishedAt: published(same)},
			{ID: "a", Title: "replaced", PublishedAt: published(same)},
		}},
	}

	merged, _ := Merge(batches, MergeOptions{})
	assert.Equal(t, []string{"a", "b", "c"}, ids(merged))
	assert.Equal(t, "replaced", merged[0].Title)
}

func TestMergeCreatedAtIsReplacedByDefault(t *testing.T) {
	first := opportunity.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	second := opportunity.NewTimestamp(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	batches := []Batch{
		{Records: []opportunity.Record{{ID: "x", CreatedAt: first, UpdatedAt: first}}},
		{Records: []opportunity.Record{{ID: "x", CreatedAt: second, UpdatedAt: second}}},
	}

	merged, _ := Merge(batches, MergeOptions{})
	require.Len(t, merged, 1)
	assert.Equal(t, second, merged[0].CreatedAt)
	assert.Equal(t, second, merged[0].UpdatedAt)

	merged, _ = Merge(batches, MergeOptions{PreserveCreatedAt: true})
	require.Len(t, merged, 1)
	assert.Equal(t, first, merged[0].CreatedAt)
	assert.Equal(t, second, merged[0].UpdatedAt)
}

func TestMergeSkipsRecordsWithoutID(t *testing.T) {
	batches := []Batch{{Records: []opportunity.Record{{Title: "anonymous"}, {ID: "x"}}}}

	merged, stats := Merge(batches, MergeOptions{})
	assert.Equal(t, []string{"x"}, ids(merged))
	assert.Equal(t, 1, stats.Skipped)
}

func TestMergeEmpty(t *testing.T) {
	merged, stats := Merge(nil, MergeOptions{})
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
	assert.Equal(t, 0, stats.Unique)
}

func TestMergeDoesNotShareStateBetweenCalls(t *testing.T) {
	Merge([]Batch{{Records: []opportunity.Record{{ID: "x", Title: "one"}}}}, MergeOptions{})

	merged, _ := Merge([]Batch{{Records: []opportunity.Record{{ID: "y"}}}}, MergeOptions{})
	assert.Equal(t, []string{"y"}, ids(merged))
}
