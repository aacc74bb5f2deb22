package tasks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/feed"
)

type FetchFeedTask struct {
	Task
	Source     *feed.Source
	Day        string
	httpClient *http.Client
	snapshots  *feed.Snapshots
	userAgent  string
}

func NewFetchFeedTask(source *feed.Source, day string, httpClient *http.Client, snapshots *feed.Snapshots, userAgent string) *FetchFeedTask {
	return &FetchFeedTask{
		Task:       NewTask(TaskTypeFetchFeed, source.Source),
		Source:     source,
		Day:        day,
		httpClient: httpClient,
		snapshots:  snapshots,
		userAgent:  userAgent,
	}
}

func (t *FetchFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	log.Debug().Str("source", t.SourceName).Str("url", t.Source.SourceURL).Msg("Fetching feed")

	data, _, err := fetchURL(ctx, t.httpClient, t.Source.SourceURL, t.userAgent, sourceTimeout(t.Source.Timeout))
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	dailyPath, _, err := t.snapshots.Save(t.SourceName, t.Day, data)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	log.Info().
		Str("type", string(t.GetType())).
		Str("source", t.SourceName).
		Dur("duration", t.GetDuration()).
		Int("bytes", len(data)).
		Str("path", dailyPath).
		Msg("Task completed")

	return nil
}
