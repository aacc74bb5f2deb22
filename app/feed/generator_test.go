package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

func TestGenerateRSS(t *testing.T) {
	records := []opportunity.Record{
		{
			ID:          "id-1",
			Title:       "Grant <A> & more",
			URL:         "https://acme.example/a",
			Source:      "acme",
			SourceURL:   "https://acme.example/feed",
			PublishedAt: opportunity.NewTimestampPtr(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
			Summary:     opportunity.StringPtr("Apply now"),
			Tags:        []string{"youth", "stem"},
		},
		{
			ID:    "id-2",
			Title: "Undated",
			URL:   "https://acme.example/b",
		},
	}

	channel := Channel{
		Title:     "Opportunities",
		Link:      "https://opportunities.example",
		SelfURL:   "https://opportunities.example/feed.xml",
		Generator: "opportunity-comb/test",
	}

	rss, err := NewGenerator().Run(channel, records)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rss, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, rss, "<title>Opportunities</title>")
	assert.Contains(t, rss, `<atom:link href="https://opportunities.example/feed.xml" rel="self"`)
	assert.Contains(t, rss, "<title>Grant &lt;A&gt; &amp; more</title>")
	assert.Contains(t, rss, `<guid isPermaLink="false">id-1</guid>`)
	assert.Contains(t, rss, "<pubDate>Tue, 02 Jan 2024 03:04:05 +0000</pubDate>")
	assert.Contains(t, rss, "<lastBuildDate>Tue, 02 Jan 2024 03:04:05 +0000</lastBuildDate>")
	assert.Contains(t, rss, "<category>stem</category>")
	assert.Contains(t, rss, `<source url="https://acme.example/feed">acme</source>`)
	assert.Contains(t, rss, "<generator>opportunity-comb/test</generator>")
	assert.Equal(t, 2, strings.Count(rss, "<item>"))
	assert.Equal(t, 1, strings.Count(rss, "<pubDate>"))
	assert.True(t, strings.HasSuffix(rss, "</channel>\n</rss>"))
}

func TestGenerateRSSEmpty(t *testing.T) {
	rss, err := NewGenerator().Run(Channel{}, nil)
	require.NoError(t, err)

	assert.Contains(t, rss, "<title>Opportunities</title>")
	assert.Contains(t, rss, "<description>Merged opportunity dataset</description>")
	assert.NotContains(t, rss, "<item>")
	assert.NotContains(t, rss, "lastBuildDate")
}
