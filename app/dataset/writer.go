package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// WriteJSON writes records as a pretty-printed JSON array.
func WriteJSON(path string, records []opportunity.Record) error {
	return writeAtomically(path, func(w io.Writer) error {
		return encodeArray(w, records)
	})
}

// WriteJSONL writes one record per line. An empty dataset produces an empty
// file.
func WriteJSONL(path string, records []opportunity.Record) error {
	return writeAtomically(path, func(w io.Writer) error {
		return encodeLines(w, records)
	})
}

func ReadJSON(path string) ([]opportunity.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []opportunity.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for i, record := range records {
		if err := checkRecord(record); err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
	}
	return records, nil
}

// ReadJSONL reads a JSONL file strictly: the first bad line is an error.
func ReadJSONL(path string) ([]opportunity.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return decodeLines(file, filepath.Base(path), func(lineErr *LineError) error {
		return lineErr
	})
}

// writeAtomically writes through a temp file in the target directory and
// renames it into place, so readers never see a partial dataset.
func writeAtomically(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buffered := bufio.NewWriter(tmp)
	if err = write(buffered); err != nil {
		return err
	}
	if err = buffered.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}
