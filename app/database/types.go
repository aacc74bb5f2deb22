package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// Run is one merge pass as recorded in the runs table.
type Run struct {
	ID            int64     `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Batches       int       `json:"batches"`
	RecordsRead   int       `json:"records_read"`
	UniqueRecords int       `json:"unique_records"`
	Skipped       int       `json:"skipped"`
}

// OpportunityFilter narrows List results. Zero values mean "any".
type OpportunityFilter struct {
	Source string
	Tag    string
	Limit  int
	Offset int
}

// SourceCount is the number of exported records for one source.
type SourceCount struct {
	Source string `db:"source" json:"source"`
	Count  int    `db:"count" json:"count"`
}

type opportunityRow struct {
	ID          string         `db:"id"`
	Position    int            `db:"position"`
	Title       string         `db:"title"`
	URL         string         `db:"url"`
	Source      string         `db:"source"`
	SourceURL   string         `db:"source_url"`
	PublishedAt sql.NullString `db:"published_at"`
	Summary     sql.NullString `db:"summary"`
	Tags        string         `db:"tags"`
	Location    sql.NullString `db:"location"`
	Deadline    sql.NullString `db:"deadline"`
	Language    sql.NullString `db:"language"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

type runRow struct {
	ID            int64  `db:"id"`
	StartedAt     string `db:"started_at"`
	FinishedAt    string `db:"finished_at"`
	Batches       int    `db:"batches"`
	RecordsRead   int    `db:"records_read"`
	UniqueRecords int    `db:"unique_records"`
	Skipped       int    `db:"skipped"`
}

func newOpportunityRow(position int, record opportunity.Record) (opportunityRow, error) {
	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return opportunityRow{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	row := opportunityRow{
		ID:        record.ID,
		Position:  position,
		Title:     record.Title,
		URL:       record.URL,
		Source:    record.Source,
		SourceURL: record.SourceURL,
		Summary:   nullString(record.Summary),
		Tags:      string(encoded),
		Location:  nullString(record.Location),
		Deadline:  nullString(record.Deadline),
		Language:  nullString(record.Language),
		CreatedAt: record.CreatedAt.String(),
		UpdatedAt: record.UpdatedAt.String(),
	}
	if record.PublishedAt != nil {
		row.PublishedAt = sql.NullString{String: record.PublishedAt.String(), Valid: true}
	}
	return row, nil
}

func (r opportunityRow) record() (opportunity.Record, error) {
	record := opportunity.Record{
		ID:        r.ID,
		Title:     r.Title,
		URL:       r.URL,
		Source:    r.Source,
		SourceURL: r.SourceURL,
		Summary:   stringPtr(r.Summary),
		Location:  stringPtr(r.Location),
		Deadline:  stringPtr(r.Deadline),
		Language:  stringPtr(r.Language),
		Tags:      []string{},
	}

	if err := json.Unmarshal([]byte(r.Tags), &record.Tags); err != nil {
		return opportunity.Record{}, fmt.Errorf("failed to decode tags of %s: %w", r.ID, err)
	}
	if record.Tags == nil {
		record.Tags = []string{}
	}

	if r.PublishedAt.Valid {
		published, err := opportunity.ParseTimestamp(r.PublishedAt.String)
		if err != nil {
			return opportunity.Record{}, fmt.Errorf("failed to parse published_at of %s: %w", r.ID, err)
		}
		record.PublishedAt = &published
	}

	var err error
	if record.CreatedAt, err = opportunity.ParseTimestamp(r.CreatedAt); err != nil {
		return opportunity.Record{}, fmt.Errorf("failed to parse created_at of %s: %w", r.ID, err)
	}
	if record.UpdatedAt, err = opportunity.ParseTimestamp(r.UpdatedAt); err != nil {
		return opportunity.Record{}, fmt.Errorf("failed to parse updated_at of %s: %w", r.ID, err)
	}

	return record, nil
}

func newRunRow(run Run) runRow {
	return runRow{
		StartedAt:     opportunity.NewTimestamp(run.StartedAt).String(),
		FinishedAt:    opportunity.NewTimestamp(run.FinishedAt).String(),
		Batches:       run.Batches,
		RecordsRead:   run.RecordsRead,
		UniqueRecords: run.UniqueRecords,
		Skipped:       run.Skipped,
	}
}

func (r runRow) run() (Run, error) {
	started, err := opportunity.ParseTimestamp(r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("failed to parse started_at: %w", err)
	}
	finished, err := opportunity.ParseTimestamp(r.FinishedAt)
	if err != nil {
		return Run{}, fmt.Errorf("failed to parse finished_at: %w", err)
	}

	return Run{
		ID:            r.ID,
		StartedAt:     started.Time,
		FinishedAt:    finished.Time,
		Batches:       r.Batches,
		RecordsRead:   r.RecordsRead,
		UniqueRecords: r.UniqueRecords,
		Skipped:       r.Skipped,
	}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
