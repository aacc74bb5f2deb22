package tasks

import (
	"context"

	"github.com/lysyi3m/opportunity-comb/app/database"
	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// TaskRunner executes a fixed set of tasks to completion.
// Example usage:
//
//	pool := NewPool(4, 5*time.Minute)
//	errs := pool.Run(ctx, []TaskInterface{NewFetchFeedTask(...), NewFetchFeedTask(...)})
type TaskRunner interface {
	Run(ctx context.Context, tasks []TaskInterface) []error
}

// DatasetExporter receives the merged dataset after it has been written to
// disk. The SQLite export implements it.
type DatasetExporter interface {
	Export(ctx context.Context, records []opportunity.Record, run database.Run) error
}
