package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/database"
	"github.com/lysyi3m/opportunity-comb/app/dataset"
	"github.com/lysyi3m/opportunity-comb/app/metrics"
	"github.com/lysyi3m/opportunity-comb/app/notify"
	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

const (
	LatestJSONName  = "opportunities.json"
	LatestJSONLName = "opportunities.jsonl"
)

// MergeTask rebuilds the published dataset from every stored batch and
// hands it to the optional exporter and notifier.
type MergeTask struct {
	Task
	Since   string
	Options dataset.MergeOptions
	Result  MergeResult

	batches   *dataset.BatchStore
	latestDir string
	exporter  DatasetExporter
	notifier  notify.Notifier
}

type MergeResult struct {
	Records   []opportunity.Record
	Stats     dataset.MergeStats
	JSONPath  string
	JSONLPath string
}

func NewMergeTask(since string, options dataset.MergeOptions, batches *dataset.BatchStore, latestDir string,
	exporter DatasetExporter, notifier notify.Notifier) *MergeTask {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &MergeTask{
		Task:      NewTask(TaskTypeMergeDataset, ""),
		Since:     since,
		Options:   options,
		batches:   batches,
		latestDir: latestDir,
		exporter:  exporter,
		notifier:  notifier,
	}
}

func (t *MergeTask) Execute(ctx context.Context) error {
	if t.StartedAt == nil {
		t.Start()
	}
	startedAt := time.Now().UTC()

	loaded, skipped, err := t.batches.LoadAll(t.Since)
	if err != nil {
		return fmt.Errorf("failed to load batches: %w", err)
	}

	if len(loaded) == 0 {
		log.Warn().Str("dir", t.batches.Dir()).Str("since", t.Since).Msg("No batch files to merge")
	}

	records, stats := dataset.Merge(loaded, t.Options)
	stats.Skipped += skipped

	if err := os.MkdirAll(t.latestDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	jsonPath := filepath.Join(t.latestDir, LatestJSONName)
	if err := dataset.WriteJSON(jsonPath, records); err != nil {
		return err
	}

	jsonlPath := filepath.Join(t.latestDir, LatestJSONLName)
	if err := dataset.WriteJSONL(jsonlPath, records); err != nil {
		return err
	}

	t.Result = MergeResult{Records: records, Stats: stats, JSONPath: jsonPath, JSONLPath: jsonlPath}
	metrics.DatasetRecords.Set(float64(len(records)))

	finishedAt := time.Now().UTC()

	if t.exporter != nil {
		run := database.Run{
			StartedAt:     startedAt,
			FinishedAt:    finishedAt,
			Batches:       stats.Batches,
			RecordsRead:   stats.Records,
			UniqueRecords: stats.Unique,
			Skipped:       stats.Skipped,
		}
		if err := t.exporter.Export(ctx, records, run); err != nil {
			return fmt.Errorf("failed to export dataset: %w", err)
		}
	}

	event := notify.DatasetUpdated{
		Records:     len(records),
		GeneratedAt: opportunity.NewTimestamp(finishedAt).String(),
		Path:        jsonPath,
		JSONLPath:   jsonlPath,
	}
	if err := t.notifier.DatasetUpdated(ctx, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish dataset update")
	}

	log.Info().
		Str("type", string(t.GetType())).
		Dur("duration", t.GetDuration()).
		Int("batches", stats.Batches).
		Int("records", stats.Records).
		Int("unique", stats.Unique).
		Int("replaced", stats.Replaced).
		Int("skipped", stats.Skipped).
		Str("path", jsonPath).
		Msg("Task completed")

	return nil
}
