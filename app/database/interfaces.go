package database

import (
	"context"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

type OpportunityRepository interface {
	ReplaceAll(ctx context.Context, records []opportunity.Record) error
	List(ctx context.Context, filter OpportunityFilter) ([]opportunity.Record, error)
	Get(ctx context.Context, id string) (*opportunity.Record, error)
	Count(ctx context.Context) (int, error)
	CountBySource(ctx context.Context) ([]SourceCount, error)
}

type RunRepository interface {
	RecordRun(ctx context.Context, run Run) (int64, error)
	LatestRun(ctx context.Context) (*Run, error)
}
