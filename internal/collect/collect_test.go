package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/beli-buzz/backend/internal/config"
	"github.com/beli-buzz/backend/internal/models"
)

type cannedCollector struct {
	name  string
	items []models.RawItem
	err   error
}

func (c *cannedCollector) Name() string { return c.name }

func (c *cannedCollector) Collect(context.Context) ([]models.RawItem, error) {
	return c.items, c.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGatherMergesInCollectorOrder(t *testing.T) {
	a := &cannedCollector{name: "a", items: []models.RawItem{{SourceID: "a", Text: "one"}}}
	b := &cannedCollector{name: "b", items: []models.RawItem{{SourceID: "b", Text: "two"}, {SourceID: "b", Text: "three"}}}

	got := Gather(context.Background(), discard(), []Collector{a, b})
	require.Len(t, got, 3)
	require.Equal(t, "a", got[0].SourceID)
	require.Equal(t, "b", got[1].SourceID)
}

func TestGatherDegradesOnSourceFailure(t *testing.T) {
	broken := &cannedCollector{name: "broken", err: ErrSourceUnavailable}
	alive := &cannedCollector{name: "alive", items: []models.RawItem{
		{SourceID: "alive", Text: "post one"},
		{SourceID: "alive", Text: "post two"},
	}}

	got := Gather(context.Background(), discard(), []Collector{broken, alive})
	require.Len(t, got, 2)
	for _, item := range got {
		require.Equal(t, "alive", item.SourceID)
	}
}

func TestWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	require.True(t, withinWindow(now.Add(-time.Hour), now, window))
	require.True(t, withinWindow(now.Add(-23*time.Hour), now, window))
	require.False(t, withinWindow(now.Add(-25*time.Hour), now, window))
	require.False(t, withinWindow(time.Time{}, now, window))
	require.False(t, withinWindow(now.Add(2*time.Hour), now, window))
}

func rssServer(t *testing.T, now time.Time) *httptest.Server {
	t.Helper()
	feed := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Toronto Food</title>
<item>
  <title>Pai review</title>
  <link>https://example.com/pai</link>
  <description><![CDATA[<p>The khao soi &amp; curry depth is unreal</p>]]></description>
  <pubDate>%s</pubDate>
</item>
<item>
  <title>Old piece</title>
  <link>https://example.com/old</link>
  <description>this one fell out of the window last week</description>
  <pubDate>%s</pubDate>
</item>
</channel></rss>`,
		now.Add(-2*time.Hour).Format(time.RFC1123Z),
		now.Add(-48*time.Hour).Format(time.RFC1123Z),
	)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed))
	}))
}

func TestEditorialCollectorDegradesPerFeed(t *testing.T) {
	now := time.Now().UTC()
	good := rssServer(t, now)
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := NewEditorialCollector([]config.Feed{
		{Name: "good", URL: good.URL},
		{Name: "bad", URL: bad.URL},
	}, 24*time.Hour)

	items, err := c.Collect(context.Background())
	require.NoError(t, err)
	// One fresh entry survives: the stale one falls outside the window and
	// the failing feed only degrades.
	require.Len(t, items, 1)
	require.Equal(t, "good", items[0].SourceID)
	require.Equal(t, models.SourceEditorial, items[0].SourceType)
	require.Equal(t, "https://example.com/pai", items[0].URL)
	require.Contains(t, items[0].Text, "Pai review")
	require.Contains(t, items[0].Text, "khao soi & curry depth")
	require.NotContains(t, items[0].Text, "<p>")
}

func TestEditorialCollectorAllFeedsFailing(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := NewEditorialCollector([]config.Feed{
		{Name: "bad one", URL: bad.URL},
		{Name: "bad two", URL: bad.URL},
	}, 24*time.Hour)

	_, err := c.Collect(context.Background())
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

type scriptedReader struct {
	msgs []kafka.Message
	idx  int

	// failAfter, when set, replaces the end-of-script idle timeout.
	failAfter error
}

func (r *scriptedReader) ReadMessage(context.Context) (kafka.Message, error) {
	if r.idx >= len(r.msgs) {
		if r.failAfter != nil {
			return kafka.Message{}, r.failAfter
		}
		return kafka.Message{}, context.DeadlineExceeded
	}
	msg := r.msgs[r.idx]
	r.idx++
	return msg, nil
}

func (r *scriptedReader) Close() error { return nil }

func socialMessage(t *testing.T, post rawPost) kafka.Message {
	t.Helper()
	data, err := json.Marshal(post)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestSocialCollectorFiltersByWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewSocialCollector(config.Social{
		Brokers: []string{"kafka:9092"},
		Topic:   "social_posts_raw",
		Group:   "buzz-job",
	}, 24*time.Hour)
	c.now = func() time.Time { return now }

	fresh := socialMessage(t, rawPost{
		ID:       "abc",
		Title:    "Pai still slaps",
		Text:     "The khao soi special is outrageous, best Thai food downtown right now honestly.",
		PostedAt: now.Add(-2 * time.Hour).Format(time.RFC3339),
		URL:      "https://example.com/p/abc",
	})
	stale := socialMessage(t, rawPost{
		ID:       "old",
		Title:    "Old thread",
		Text:     "This discussion is from last week and should not be collected at all by the run.",
		PostedAt: now.Add(-48 * time.Hour).Format(time.RFC3339),
	})
	short := socialMessage(t, rawPost{
		ID:       "tiny",
		Title:    "meh",
		Text:     "ok",
		PostedAt: now.Add(-time.Hour).Format(time.RFC3339),
	})

	c.newReader = func() messageReader {
		return &scriptedReader{msgs: []kafka.Message{fresh, stale, short}}
	}

	items, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "social_posts_raw:abc", items[0].SourceID)
	require.Equal(t, models.SourceSocial, items[0].SourceType)
	require.Contains(t, items[0].Text, "khao soi")
}

type failingReader struct{}

func (failingReader) ReadMessage(context.Context) (kafka.Message, error) {
	return kafka.Message{}, errors.New("broker unreachable")
}

func (failingReader) Close() error { return nil }

func TestSocialCollectorUnavailable(t *testing.T) {
	c := NewSocialCollector(config.Social{
		Brokers: []string{"kafka:9092"},
		Topic:   "social_posts_raw",
	}, 24*time.Hour)
	c.newReader = func() messageReader { return failingReader{} }

	_, err := c.Collect(context.Background())
	require.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestSocialCollectorCanceledRunDiscardsPartialRead(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewSocialCollector(config.Social{
		Brokers: []string{"kafka:9092"},
		Topic:   "social_posts_raw",
	}, 24*time.Hour)
	c.now = func() time.Time { return now }

	fresh := socialMessage(t, rawPost{
		ID:       "abc",
		Title:    "Pai still slaps",
		Text:     "The khao soi special is outrageous, best Thai food downtown right now honestly.",
		PostedAt: now.Add(-2 * time.Hour).Format(time.RFC3339),
	})
	c.newReader = func() messageReader {
		return &scriptedReader{msgs: []kafka.Message{fresh}, failAfter: context.Canceled}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := c.Collect(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, items)
}

func TestStaticCollectorObeysContract(t *testing.T) {
	c := NewStaticCollector()
	items, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		require.NotEmpty(t, item.SourceID)
		require.NotEmpty(t, item.Text)
		require.False(t, item.PostedAt.IsZero())
	}
}
