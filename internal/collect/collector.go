package collect

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/beli-buzz/backend/internal/models"
)

// ErrSourceUnavailable marks a collector that could not reach its source at
// all. The run degrades and continues with the remaining sources.
var ErrSourceUnavailable = errors.New("source unavailable")

// Collector fetches raw candidate text from one configured source. The
// recency filter is the collector's own responsibility: items older than the
// window never cross this boundary.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]models.RawItem, error)
}

// Gather runs all collectors concurrently and merges their results. A failing
// collector contributes nothing and logs a degradation; only the merged
// result is returned, in collector order, so downstream output stays
// deterministic for a fixed set of sources.
func Gather(ctx context.Context, log *slog.Logger, collectors []Collector) []models.RawItem {
	results := make([][]models.RawItem, len(collectors))

	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func(i int, c Collector) {
			defer wg.Done()
			items, err := c.Collect(ctx)
			if err != nil {
				log.Warn("collector degraded",
					slog.String("collector", c.Name()),
					slog.Any("err", err),
				)
				return
			}
			results[i] = items
			log.Info("collector finished",
				slog.String("collector", c.Name()),
				slog.Int("items", len(items)),
			)
		}(i, c)
	}
	wg.Wait()

	var merged []models.RawItem
	for _, items := range results {
		merged = append(merged, items...)
	}
	return merged
}

// withinWindow reports whether ts falls inside the recency window ending now.
func withinWindow(ts, now time.Time, window time.Duration) bool {
	if ts.IsZero() {
		return false
	}
	return now.Sub(ts) <= window && !ts.After(now.Add(time.Minute))
}
