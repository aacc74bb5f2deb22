package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

func sampleRecords() []opportunity.Record {
	now := opportunity.NewTimestamp(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return []opportunity.Record{
		{
			ID:          opportunity.Identity("acme", "https://acme.example/a"),
			Title:       "Grant <A> & \"friends\"",
			URL:         "https://acme.example/a",
			Source:      "acme",
			SourceURL:   "https://acme.example/feed",
			PublishedAt: published("2024-02-01T10:00:00Z"),
			Summary:     opportunity.StringPtr("Für alle"),
			Tags:        []string{"youth", "stem"},
			Language:    opportunity.StringPtr("de"),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:        opportunity.Identity("acme", "https://acme.example/b"),
			URL:       "https://acme.example/b",
			Source:    "acme",
			SourceURL: "https://acme.example/feed",
			Tags:      []string{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	records := sampleRecords()

	jsonPath := filepath.Join(dir, "latest", "opportunities.json")
	jsonlPath := filepath.Join(dir, "latest", "opportunities.jsonl")
	require.NoError(t, WriteJSON(jsonPath, records))
	require.NoError(t, WriteJSONL(jsonlPath, records))

	fromJSON, err := ReadJSON(jsonPath)
	require.NoError(t, err)
	fromJSONL, err := ReadJSONL(jsonlPath)
	require.NoError(t, err)

	assert.Equal(t, records, fromJSON)
	assert.Equal(t, records, fromJSONL)
}

func TestWriteJSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, sampleRecords()[1:]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "[\n  {\n    \"id\": ")
	assert.Contains(t, content, "\"published_at\": null")
	assert.Contains(t, content, "\"location\": null")
	assert.Contains(t, content, "\"tags\": []")
	assert.Equal(t, "]\n", content[len(content)-2:])
}

func TestWriteJSONLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, WriteJSONL(path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Equal(t, 2, countLines(content))
	assert.Contains(t, content, `Grant <A> & \"friends\"`)
	assert.Equal(t, byte('\n'), content[len(content)-1])
}

func TestWriteEmptyDataset(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteJSON(filepath.Join(dir, "empty.json"), nil))
	require.NoError(t, WriteJSONL(filepath.Join(dir, "empty.jsonl"), nil))

	data, err := os.ReadFile(filepath.Join(dir, "empty.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "empty.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteJSONL(filepath.Join(dir, "out.jsonl"), sampleRecords()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.jsonl", entries[0].Name())
}

func TestReadJSONLStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(recordLine("a")+"\nnope\n"), 0o644))

	_, err := ReadJSONL(path)
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 2, lineErr.Line)
}

func TestReadJSONLRejectsRecordWithoutURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	line := `{"id":"x","title":"no url","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}`
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))

	_, err := ReadJSONL(path)
	require.ErrorIs(t, err, ErrMissingURL)
}

func TestReadJSONRejectsMissingTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"x","url":"https://acme.example/x"}]`), 0o644))

	_, err := ReadJSON(path)
	require.ErrorIs(t, err, ErrMissingTimestamp)
}

func TestReadJSONLRejectsNullCreatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	line := `{"id":"x","url":"https://acme.example/x","created_at":null,"updated_at":"2024-01-01T00:00:00Z"}`
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))

	_, err := ReadJSONL(path)
	require.ErrorIs(t, err, ErrMissingTimestamp)
}

func countLines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
