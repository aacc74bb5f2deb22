package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/feed"
	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

// ExtractContentTask fills missing summaries of one source's records from
// the linked article pages. Records are updated in place; a page that
// cannot be fetched or extracted leaves its record's summary null. When
// ctx ends, the remaining records are left as they are and Execute still
// succeeds.
type ExtractContentTask struct {
	Task
	Source           *feed.Source
	Records          []opportunity.Record
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	userAgent        string
}

func NewExtractContentTask(source *feed.Source, records []opportunity.Record, httpClient *http.Client, contentExtractor *feed.ContentExtractor, userAgent string) *ExtractContentTask {
	return &ExtractContentTask{
		Task:             NewTask(TaskTypeExtractContent, source.Source),
		Source:           source,
		Records:          records,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        userAgent,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	if !t.Source.ExtractContent {
		log.Debug().Str("source", t.SourceName).Msg("Content extraction disabled for source")
		return nil
	}

	successCount := 0
	errorCount := 0
	skippedCount := 0

	for i := range t.Records {
		if ctx.Err() != nil {
			skippedCount = len(t.Records) - i
			log.Warn().Str("source", t.SourceName).Int("remaining", skippedCount).Err(ctx.Err()).Msg("Content extraction stopped early")
			break
		}

		record := &t.Records[i]
		if record.Summary != nil {
			continue
		}

		summary, err := t.extractSummary(ctx, record.URL)
		if err != nil {
			log.Warn().Str("source", t.SourceName).Str("id", record.ID).Str("url", record.URL).Err(err).Msg("Failed to extract content for record")
			errorCount++
			continue
		}

		record.Summary = &summary
		successCount++
	}

	log.Info().
		Str("type", string(t.GetType())).
		Str("source", t.SourceName).
		Dur("duration", t.GetDuration()).
		Int("success", successCount).
		Int("errors", errorCount).
		Int("skipped", skippedCount).
		Msg("Task completed")

	return nil
}

func (t *ExtractContentTask) extractSummary(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	data, contentType, err := fetchURL(ctx, t.httpClient, link, t.userAgent, sourceTimeout(t.Source.Timeout))
	if err != nil {
		return "", fmt.Errorf("failed to fetch article content: %w", err)
	}

	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return "", fmt.Errorf("content type is not HTML: %s", contentType)
	}

	return t.contentExtractor.Run(data, pageURL)
}
