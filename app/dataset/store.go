package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

const batchExt = ".jsonl"

// BatchStore keeps one JSONL file of normalized records per run day.
type BatchStore struct {
	dir string
}

func NewBatchStore(dir string) *BatchStore {
	return &BatchStore{dir: dir}
}

func (s *BatchStore) Dir() string {
	return s.dir
}

// List returns batch file names in ascending order. When since is set, only
// names that sort at or after since+".jsonl" are returned.
func (s *BatchStore) List(since string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, batchExt) {
			continue
		}
		if since != "" && name < since+batchExt {
			continue
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// Read decodes one batch. Malformed lines and records without an id are
// logged and left out; the returned count says how many.
func (s *BatchStore) Read(name string) (Batch, int, error) {
	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return Batch{}, 0, fmt.Errorf("failed to open batch %s: %w", name, err)
	}
	defer file.Close()

	skipped := 0
	records, err := decodeLines(file, name, func(lineErr *LineError) error {
		skipped++
		log.Warn().Str("file", lineErr.File).Int("line", lineErr.Line).Err(lineErr.Err).Msg("Skipping malformed record")
		return nil
	})
	if err != nil {
		return Batch{}, skipped, err
	}

	return Batch{Name: name, Records: records}, skipped, nil
}

// LoadAll reads every listed batch in order. Batches that cannot be read are
// logged and skipped.
func (s *BatchStore) LoadAll(since string) ([]Batch, int, error) {
	names, err := s.List(since)
	if err != nil {
		return nil, 0, err
	}

	batches := make([]Batch, 0, len(names))
	skipped := 0
	for _, name := range names {
		batch, skippedLines, err := s.Read(name)
		skipped += skippedLines
		if err != nil {
			log.Warn().Str("file", name).Err(err).Msg("Skipping unreadable batch")
			continue
		}
		batches = append(batches, batch)
	}

	return batches, skipped, nil
}

// Write stores records as the batch for day, replacing any earlier batch
// for the same day.
func (s *BatchStore) Write(day string, records []opportunity.Record) (string, error) {
	path := filepath.Join(s.dir, day+batchExt)
	if err := WriteJSONL(path, records); err != nil {
		return "", err
	}
	return path, nil
}
