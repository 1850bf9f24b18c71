package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beli-buzz/backend/internal/models"
)

// ErrMalformed marks a model response that could not be used at all. The
// caller drops that item's mentions and continues the run.
var ErrMalformed = errors.New("extraction response malformed")

// neutralSentiment replaces missing or out-of-range sentiment values.
const neutralSentiment = 5.0

// Extractor turns one raw item into zero or more structured mentions.
type Extractor interface {
	Extract(ctx context.Context, item models.RawItem) ([]models.Mention, error)
}

// Run fans extraction out over the items with bounded concurrency. Order of
// the returned mentions follows item order, so extraction parallelism never
// changes downstream results. Items whose extraction fails are dropped;
// the dropped count comes back so the caller can tell a quiet day from a
// total extraction failure.
func Run(ctx context.Context, log *slog.Logger, ex Extractor, items []models.RawItem, concurrency int) ([]models.Mention, int) {
	if concurrency <= 0 {
		concurrency = 1
	}

	perItem := make([][]models.Mention, len(items))
	var dropped atomic.Int32
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item models.RawItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mentions, err := ex.Extract(ctx, item)
			if err != nil {
				dropped.Add(1)
				log.Warn("extraction dropped item",
					slog.String("source", item.SourceID),
					slog.Any("err", err),
				)
				return
			}
			perItem[i] = mentions
		}(i, item)
	}
	wg.Wait()

	var all []models.Mention
	for _, mentions := range perItem {
		all = append(all, mentions...)
	}
	return all, int(dropped.Load())
}

// sanitize enforces the Mention shape at the boundary: names must be
// non-empty, sentiment is clamped to [0,10] with a neutral default.
func sanitize(raw []candidate, sourceID string) []models.Mention {
	mentions := make([]models.Mention, 0, len(raw))
	for _, c := range raw {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		mentions = append(mentions, models.Mention{
			NameGuess: name,
			Sentiment: clampSentiment(c.Sentiment),
			Summary:   strings.TrimSpace(c.Summary),
			SourceID:  sourceID,
		})
	}
	return mentions
}

// candidate is the loosely-typed triple as external strategies produce it.
type candidate struct {
	Name      string   `json:"name"`
	Sentiment *float64 `json:"sentiment"`
	Summary   string   `json:"summary"`
}

func clampSentiment(v *float64) float64 {
	if v == nil {
		return neutralSentiment
	}
	s := *v
	if s < 0 || s > 10 {
		return neutralSentiment
	}
	return s
}
