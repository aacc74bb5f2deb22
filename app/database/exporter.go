package database

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// Exporter mirrors each merged dataset into SQLite and records the run.
type Exporter struct {
	opportunities OpportunityRepository
	runs          RunRepository
}

func NewExporter(opportunities OpportunityRepository, runs RunRepository) *Exporter {
	return &Exporter{opportunities: opportunities, runs: runs}
}

func (e *Exporter) Export(ctx context.Context, records []opportunity.Record, run Run) error {
	if err := e.opportunities.ReplaceAll(ctx, records); err != nil {
		return err
	}

	id, err := e.runs.RecordRun(ctx, run)
	if err != nil {
		return err
	}

	log.Debug().Int64("run_id", id).Int("records", len(records)).Msg("Dataset exported")
	return nil
}
