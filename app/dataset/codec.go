package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// maxLineSize bounds a single JSONL record. Longer lines are skipped.
var maxLineSize = 16 * 1024 * 1024

var (
	ErrMissingID        = errors.New("record has no id")
	ErrMissingURL       = errors.New("record has no url")
	ErrMissingTimestamp = errors.New("record has no created_at or updated_at")
	ErrLineTooLong      = errors.New("line exceeds maximum record size")
)

// LineError describes one JSONL line that could not be turned into a record.
type LineError struct {
	File string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// decodeLines reads newline-delimited records. Blank lines are ignored. Bad
// lines are passed to onBad and skipped; if onBad returns an error decoding
// stops with it.
func decodeLines(r io.Reader, file string, onBad func(*LineError) error) ([]opportunity.Record, error) {
	reader := bufio.NewReaderSize(r, 64*1024)

	records := make([]opportunity.Record, 0)
	lineNo := 0

	for {
		raw, tooLong, readErr := readLine(reader)
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("failed to read %s: %w", file, readErr)
		}
		if readErr == io.EOF && len(raw) == 0 && !tooLong {
			break
		}
		lineNo++

		line := bytes.TrimSpace(raw)
		if len(line) > 0 || tooLong {
			var record opportunity.Record
			var err error
			if tooLong {
				err = ErrLineTooLong
			} else if err = json.Unmarshal(line, &record); err == nil {
				err = checkRecord(record)
			}

			if err != nil {
				if stop := onBad(&LineError{File: file, Line: lineNo, Err: err}); stop != nil {
					return nil, stop
				}
			} else {
				records = append(records, record)
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	return records, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is drained and reported with tooLong set and no content.
func readLine(reader *bufio.Reader) ([]byte, bool, error) {
	var line []byte
	tooLong := false

	for {
		chunk, err := reader.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize+1 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err != nil:
			return line, tooLong, err
		default:
			return bytes.TrimSuffix(line, []byte("\n")), tooLong, nil
		}
	}
}

// checkRecord enforces the fields every stored record must carry.
func checkRecord(record opportunity.Record) error {
	switch {
	case record.ID == "":
		return ErrMissingID
	case record.URL == "":
		return ErrMissingURL
	case record.CreatedAt.IsZero() || record.UpdatedAt.IsZero():
		return ErrMissingTimestamp
	}
	return nil
}

func encodeLines(w io.Writer, records []opportunity.Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)

	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", record.ID, err)
		}
	}
	return nil
}

func encodeArray(w io.Writer, records []opportunity.Record) error {
	if records == nil {
		records = []opportunity.Record{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}
