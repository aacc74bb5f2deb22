package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ RunRepository = (*RunRepositoryImpl)(nil)

type RunRepositoryImpl struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

func (r *RunRepositoryImpl) RecordRun(ctx context.Context, run Run) (int64, error) {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO runs (started_at, finished_at, batches, records_read, unique_records, skipped)
		VALUES (:started_at, :finished_at, :batches, :records_read, :unique_records, :skipped)
	`, newRunRow(run))
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// LatestRun returns nil without error before the first recorded run.
func (r *RunRepositoryImpl) LatestRun(ctx context.Context) (*Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, started_at, finished_at, batches, records_read, unique_records, skipped
		FROM runs
		ORDER BY id DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	run, err := row.run()
	if err != nil {
		return nil, err
	}
	return &run, nil
}
