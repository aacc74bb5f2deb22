package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// ItemParser turns raw feed bytes into items. Parser is the gofeed-backed
// implementation; tests substitute their own.
type ItemParser interface {
	Parse(data []byte) ([]RawItem, error)
}

var _ ItemParser = (*Parser)(nil)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Parse(data []byte) ([]RawItem, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.convertItem(item))
	}

	return items, nil
}

func (p *Parser) convertItem(item *gofeed.Item) RawItem {
	raw := RawItem{
		Title:           item.Title,
		Link:            item.Link,
		Links:           item.Links,
		GUID:            item.GUID,
		Content:         item.Content,
		Description:     item.Description,
		Categories:      item.Categories,
		Published:       item.Published,
		PublishedParsed: item.PublishedParsed,
		Updated:         item.Updated,
		UpdatedParsed:   item.UpdatedParsed,
	}

	if item.ITunesExt != nil {
		raw.ITunesSummary = item.ITunesExt.Summary
		raw.ITunesSubtitle = item.ITunesExt.Subtitle
	}

	return raw
}
