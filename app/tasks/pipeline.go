package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/dataset"
	"github.com/lysyi3m/opportunity-comb/app/feed"
	"github.com/lysyi3m/opportunity-comb/app/metrics"
	"github.com/lysyi3m/opportunity-comb/app/notify"
	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// DayLayout names daily snapshots and batches.
const DayLayout = "2006-01-02"

// Pipeline wires the fetch, normalize and merge stages over one data
// directory.
type Pipeline struct {
	sourceCache      *feed.SourceCache
	snapshots        *feed.Snapshots
	batches          *dataset.BatchStore
	normalizer       *feed.Normalizer
	filterer         *feed.Filterer
	contentExtractor *feed.ContentExtractor
	httpClient       *http.Client
	runner           TaskRunner
	userAgent        string
	latestDir        string
	exporter         DatasetExporter
	notifier         notify.Notifier
}

type PipelineConfig struct {
	SourceCache      *feed.SourceCache
	Snapshots        *feed.Snapshots
	Batches          *dataset.BatchStore
	Normalizer       *feed.Normalizer
	Filterer         *feed.Filterer
	ContentExtractor *feed.ContentExtractor
	HTTPClient       *http.Client
	Runner           TaskRunner
	UserAgent        string
	LatestDir        string
	Exporter         DatasetExporter // optional
	Notifier         notify.Notifier // optional
}

type FetchSummary struct {
	Sources   int
	Succeeded int
	Failed    int
}

type NormalizeSummary struct {
	Day     string
	Sources int
	Failed  int
	Records int
	Path    string
}

type MergeRequest struct {
	Since   string
	Options dataset.MergeOptions
}

func NewPipeline(c PipelineConfig) *Pipeline {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Runner == nil {
		c.Runner = NewPool(1, DefaultTaskTimeout)
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop{}
	}

	return &Pipeline{
		sourceCache:      c.SourceCache,
		snapshots:        c.Snapshots,
		batches:          c.Batches,
		normalizer:       c.Normalizer,
		filterer:         c.Filterer,
		contentExtractor: c.ContentExtractor,
		httpClient:       c.HTTPClient,
		runner:           c.Runner,
		userAgent:        c.UserAgent,
		latestDir:        c.LatestDir,
		exporter:         c.Exporter,
		notifier:         c.Notifier,
	}
}

// Fetch downloads every enabled source into today's snapshots. A failed
// source does not stop the others, but makes Fetch return an error.
func (p *Pipeline) Fetch(ctx context.Context, now time.Time) (FetchSummary, error) {
	sources := p.sourceCache.GetEnabledSources()
	day := now.UTC().Format(DayLayout)

	log.Info().Int("sources", len(sources)).Str("day", day).Msg("Fetching enabled sources")

	tasks := make([]TaskInterface, 0, len(sources))
	for _, source := range sources {
		tasks = append(tasks, NewFetchFeedTask(source, day, p.httpClient, p.snapshots, p.userAgent))
	}

	summary := FetchSummary{Sources: len(sources)}
	for i, err := range p.runner.Run(ctx, tasks) {
		metrics.SourcesFetched.WithLabelValues(tasks[i].GetSourceName(), metrics.Status(err)).Inc()
		if err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	log.Info().Int("succeeded", summary.Succeeded).Int("failed", summary.Failed).Msg("Fetch finished")

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d sources failed to fetch", summary.Failed, summary.Sources)
	}
	return summary, nil
}

// Normalize builds the batch for day from each enabled source's snapshot.
// Sources without a snapshot or with an unparseable one are skipped. The
// batch keeps source file order and is only written when non-empty.
func (p *Pipeline) Normalize(ctx context.Context, day string, now time.Time) (NormalizeSummary, error) {
	sources := p.sourceCache.GetEnabledSources()
	summary := NormalizeSummary{Day: day, Sources: len(sources)}

	log.Info().Int("sources", len(sources)).Str("day", day).Msg("Normalizing snapshots")

	normalizeTasks := make([]*NormalizeFeedTask, 0, len(sources))
	tasks := make([]TaskInterface, 0, len(sources))
	for _, source := range sources {
		task := NewNormalizeFeedTask(source, day, now, p.snapshots, p.normalizer, p.filterer, p.httpClient, p.contentExtractor, p.userAgent)
		normalizeTasks = append(normalizeTasks, task)
		tasks = append(tasks, task)
	}

	errs := p.runner.Run(ctx, tasks)

	var records []opportunity.Record
	for i, task := range normalizeTasks {
		if err := errs[i]; err != nil {
			summary.Failed++
			var parseErr *feed.ParseError
			switch {
			case errors.Is(err, feed.ErrSnapshotNotFound):
				log.Warn().Str("source", task.SourceName).Msg("No raw snapshot, skipping source")
			case errors.As(err, &parseErr):
				log.Warn().Str("source", task.SourceName).Err(parseErr.Err).Msg("Feed parse error, skipping source")
			}
			continue
		}
		metrics.RecordsNormalized.WithLabelValues(task.SourceName).Add(float64(len(task.Records)))
		records = append(records, task.Records...)
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	summary.Records = len(records)
	if len(records) == 0 {
		log.Info().Str("day", day).Msg("No records to write")
		return summary, nil
	}

	path, err := p.batches.Write(day, records)
	if err != nil {
		return summary, fmt.Errorf("failed to write batch: %w", err)
	}
	summary.Path = path

	log.Info().Int("records", len(records)).Str("path", path).Msg("Batch written")
	return summary, nil
}

// Merge rebuilds the published dataset from the stored batches.
func (p *Pipeline) Merge(ctx context.Context, req MergeRequest) (MergeResult, error) {
	task := NewMergeTask(req.Since, req.Options, p.batches, p.latestDir, p.exporter, p.notifier)
	task.Start()

	if err := task.Execute(ctx); err != nil {
		return MergeResult{}, err
	}
	return task.Result, nil
}

// Run performs fetch, normalize and merge with one shared clock. A fetch
// failure does not stop the later stages, since normalize falls back to
// the latest snapshot; it is still reported.
func (p *Pipeline) Run(ctx context.Context, req MergeRequest, now time.Time) error {
	_, fetchErr := p.Fetch(ctx, now)

	if _, err := p.Normalize(ctx, now.UTC().Format(DayLayout), now); err != nil {
		return errors.Join(fetchErr, err)
	}

	if _, err := p.Merge(ctx, req); err != nil {
		return errors.Join(fetchErr, err)
	}

	return fetchErr
}
