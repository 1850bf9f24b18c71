package collect

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/beli-buzz/backend/internal/config"
	"github.com/beli-buzz/backend/internal/models"
)

const maxEntriesPerFeed = 5

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// EditorialCollector pulls curated RSS/Atom feeds and turns recent entries
// into raw items. One unreachable feed degrades; the collector only fails
// when every feed is unreachable.
type EditorialCollector struct {
	feeds  []config.Feed
	window time.Duration
	parser *gofeed.Parser
	now    func() time.Time
}

// NewEditorialCollector builds a collector over the configured feeds.
func NewEditorialCollector(feeds []config.Feed, window time.Duration) *EditorialCollector {
	return &EditorialCollector{
		feeds:  feeds,
		window: window,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

func (c *EditorialCollector) Name() string { return "editorial" }

// Collect fetches every configured feed within the recency window.
func (c *EditorialCollector) Collect(ctx context.Context) ([]models.RawItem, error) {
	if len(c.feeds) == 0 {
		return nil, nil
	}

	now := c.now().UTC()
	var items []models.RawItem
	failures := 0

	for _, feed := range c.feeds {
		parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			failures++
			continue
		}

		count := 0
		for _, entry := range parsed.Items {
			if count >= maxEntriesPerFeed {
				break
			}
			posted := entryTime(entry)
			if !withinWindow(posted, now, c.window) {
				continue
			}
			text := cleanEntryText(entry)
			if text == "" {
				continue
			}
			items = append(items, models.RawItem{
				SourceID:   feed.Name,
				SourceType: models.SourceEditorial,
				Text:       text,
				PostedAt:   posted,
				URL:        entry.Link,
			})
			count++
		}
	}

	if failures == len(c.feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failures, ErrSourceUnavailable)
	}
	return items, nil
}

func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return time.Time{}
}

// cleanEntryText joins title and summary with HTML stripped, the strict
// RawItem shape expected past the collector boundary.
func cleanEntryText(entry *gofeed.Item) string {
	title := stripHTML(entry.Title)
	summary := stripHTML(entry.Description)
	if summary == "" {
		summary = stripHTML(entry.Content)
	}
	combined := strings.TrimSpace(title + "\n" + summary)
	return combined
}

func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
