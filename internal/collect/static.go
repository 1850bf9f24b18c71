package collect

import (
	"context"
	"time"

	"github.com/beli-buzz/backend/internal/models"
)

// StaticCollector returns a fixed canned sequence obeying the same contract
// as the live collectors. Used for offline development and as the mock
// fallback when every live source comes back empty.
type StaticCollector struct {
	now func() time.Time
}

// NewStaticCollector builds the fixture collector.
func NewStaticCollector() *StaticCollector {
	return &StaticCollector{now: time.Now}
}

func (c *StaticCollector) Name() string { return "mock" }

func (c *StaticCollector) Collect(_ context.Context) ([]models.RawItem, error) {
	now := c.now().UTC()
	return []models.RawItem{
		{
			SourceID:   "mock:reddit",
			SourceType: models.SourceSocial,
			Text: "Pai Northern Thai Kitchen just launched a khao soi special and the curry depth is unreal. " +
				"Lineups still wrap around Duncan but worth it.",
			PostedAt: now.Add(-2 * time.Hour),
			URL:      "https://example.com/pai-khao-soi",
		},
		{
			SourceID:   "mock:reddit",
			SourceType: models.SourceSocial,
			Text:       "Seven Lives in Kensington is frying the crispiest Baja tacos and everyone on FoodToronto won't shut up about it.",
			PostedAt:   now.Add(-3 * time.Hour),
			URL:        "https://example.com/seven-lives-tacos",
		},
		{
			SourceID:   "mock:article",
			SourceType: models.SourceEditorial,
			Text:       "The Burger's Priest secret menu is back. Double-double with the Vatican-style bun might be peak comfort food right now.",
			PostedAt:   now.Add(-5 * time.Hour),
			URL:        "https://example.com/burger-wars",
		},
	}, nil
}
