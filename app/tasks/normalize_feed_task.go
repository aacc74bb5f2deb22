package tasks

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/feed"
	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// NormalizeFeedTask turns one source's raw snapshot for Day into records.
// The result is left in Records for the caller to collect.
type NormalizeFeedTask struct {
	Task
	Source           *feed.Source
	Day              string
	Now              time.Time
	Records          []opportunity.Record
	snapshots        *feed.Snapshots
	normalizer       *feed.Normalizer
	filterer         *feed.Filterer
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	userAgent        string
}

func NewNormalizeFeedTask(source *feed.Source, day string, now time.Time, snapshots *feed.Snapshots, normalizer *feed.Normalizer,
	filterer *feed.Filterer, httpClient *http.Client, contentExtractor *feed.ContentExtractor, userAgent string) *NormalizeFeedTask {
	return &NormalizeFeedTask{
		Task:             NewTask(TaskTypeNormalizeFeed, source.Source),
		Source:           source,
		Day:              day,
		Now:              now,
		snapshots:        snapshots,
		normalizer:       normalizer,
		filterer:         filterer,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        userAgent,
	}
}

func (t *NormalizeFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, path, err := t.snapshots.Read(t.SourceName, t.Day)
	if err != nil {
		return err
	}

	log.Debug().Str("source", t.SourceName).Str("path", path).Msg("Parsing snapshot")

	records, err := t.normalizer.Run(data, t.Source, t.Now)
	if err != nil {
		return err
	}

	total := len(records)
	records = t.filterer.Run(records, t.Source)

	if t.Source.ExtractContent && len(records) > 0 {
		extractTask := NewExtractContentTask(t.Source, records, t.httpClient, t.contentExtractor, t.userAgent)
		extractTask.Start()
		if err := extractTask.Execute(ctx); err != nil {
			log.Warn().Str("source", t.SourceName).Err(err).Msg("Content extraction failed, keeping records")
		}
	}

	t.Records = records

	log.Info().
		Str("type", string(t.GetType())).
		Str("source", t.SourceName).
		Dur("duration", t.GetDuration()).
		Int("total", total).
		Int("filtered", total-len(records)).
		Int("records", len(records)).
		Msg("Task completed")

	return nil
}
