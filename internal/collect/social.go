package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/beli-buzz/backend/internal/config"
	"github.com/beli-buzz/backend/internal/models"
)

// drainIdle is how long the reader waits for another message before deciding
// the topic is caught up for this run.
const drainIdle = 5 * time.Second

// rawPost is the payload the scraper fleet publishes per social post.
type rawPost struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	PostedAt string   `json:"posted_at"`
	URL      string   `json:"url"`
	Comments []string `json:"comments"`
}

// SocialCollector drains recent raw posts from the social scraper topic.
// The pipeline runs once per schedule, so a run reads until the topic is
// caught up rather than consuming continuously.
type SocialCollector struct {
	social config.Social
	window time.Duration
	now    func() time.Time

	newReader func() messageReader
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewSocialCollector builds a collector over the configured topic.
func NewSocialCollector(social config.Social, window time.Duration) *SocialCollector {
	c := &SocialCollector{social: social, window: window, now: time.Now}
	c.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:       social.Brokers,
			Topic:         social.Topic,
			GroupID:       social.Group,
			QueueCapacity: 100,
			MinBytes:      1e3,
			MaxBytes:      10e6,
		})
	}
	return c
}

func (c *SocialCollector) Name() string { return "social" }

// Collect reads messages until the topic idles out, keeping those inside the
// recency window.
func (c *SocialCollector) Collect(ctx context.Context) ([]models.RawItem, error) {
	if c.social.Topic == "" {
		return nil, nil
	}

	reader := c.newReader()
	defer reader.Close()

	now := c.now().UTC()
	var items []models.RawItem

	for {
		msgCtx, cancel := context.WithTimeout(ctx, drainIdle)
		msg, err := reader.ReadMessage(msgCtx)
		cancel()
		if err != nil {
			// A canceled run discards whatever was read: partial results
			// must not flow downstream.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// Caught up for this run.
				return items, nil
			}
			if len(items) == 0 {
				return nil, fmt.Errorf("read social topic %s: %w: %v", c.social.Topic, ErrSourceUnavailable, err)
			}
			return items, nil
		}

		item, ok := c.toRawItem(msg, now)
		if ok {
			items = append(items, item)
		}
	}
}

func (c *SocialCollector) toRawItem(msg kafka.Message, now time.Time) (models.RawItem, bool) {
	var post rawPost
	if err := json.Unmarshal(msg.Value, &post); err != nil {
		return models.RawItem{}, false
	}

	posted := parseTimestamp(post.PostedAt)
	if posted.IsZero() {
		posted = msg.Time.UTC()
	}
	if !withinWindow(posted, now, c.window) {
		return models.RawItem{}, false
	}

	parts := append([]string{post.Title, post.Text}, post.Comments...)
	var kept []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	text := strings.Join(kept, "\n")
	if len(text) < 40 {
		// Too short to say anything about a restaurant.
		return models.RawItem{}, false
	}

	sourceID := c.social.Topic
	if post.ID != "" {
		sourceID = c.social.Topic + ":" + post.ID
	}

	return models.RawItem{
		SourceID:   sourceID,
		SourceType: models.SourceSocial,
		Text:       text,
		PostedAt:   posted,
		URL:        post.URL,
	}, true
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
