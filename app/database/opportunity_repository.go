package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

var _ OpportunityRepository = (*OpportunityRepositoryImpl)(nil)

const opportunityColumns = `id, position, title, url, source, source_url, published_at, summary,
	tags, location, deadline, language, created_at, updated_at`

type OpportunityRepositoryImpl struct {
	db *DB
}

func NewOpportunityRepository(db *DB) *OpportunityRepositoryImpl {
	return &OpportunityRepositoryImpl{db: db}
}

// ReplaceAll swaps the exported dataset for records inside one
// transaction. Row position follows slice order.
func (r *OpportunityRepositoryImpl) ReplaceAll(ctx context.Context, records []opportunity.Record) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM opportunities`); err != nil {
		return fmt.Errorf("failed to clear opportunities: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO opportunities (`+opportunityColumns+`)
		VALUES (:id, :position, :title, :url, :source, :source_url, :published_at, :summary,
			:tags, :location, :deadline, :language, :created_at, :updated_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		row, err := newOpportunityRow(i, record)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("failed to insert opportunity %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit opportunities: %w", err)
	}

	return nil
}

func (r *OpportunityRepositoryImpl) List(ctx context.Context, filter OpportunityFilter) ([]opportunity.Record, error) {
	var (
		where []string
		args  []any
	)

	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(opportunities.tags) WHERE json_each.value = ?)")
		args = append(args, filter.Tag)
	}

	query := `SELECT ` + opportunityColumns + ` FROM opportunities`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY position`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, max(filter.Offset, 0))
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	var rows []opportunityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}

	records := make([]opportunity.Record, 0, len(rows))
	for _, row := range rows {
		record, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// Get returns nil without error when id is not exported.
func (r *OpportunityRepositoryImpl) Get(ctx context.Context, id string) (*opportunity.Record, error) {
	var row opportunityRow
	err := r.db.GetContext(ctx, &row, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	record, err := row.record()
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *OpportunityRepositoryImpl) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM opportunities`); err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return count, nil
}

func (r *OpportunityRepositoryImpl) CountBySource(ctx context.Context) ([]SourceCount, error) {
	counts := []SourceCount{}
	err := r.db.SelectContext(ctx, &counts, `
		SELECT source, COUNT(*) AS count
		FROM opportunities
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count opportunities by source: %w", err)
	}
	return counts, nil
}
