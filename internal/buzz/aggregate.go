// Package buzz folds resolved mentions into the published per-restaurant
// aggregates.
package buzz

import (
	"math"

	"github.com/beli-buzz/backend/internal/identity"
	"github.com/beli-buzz/backend/internal/models"
)

// Aggregate computes one BuzzRecord per identity group. locations is keyed
// by canonical name; nil means the location is unknown. Records with a nil
// location are still included; consumers tolerate missing geolocation.
func Aggregate(groups []identity.Group, locations map[string]*models.Location) []models.BuzzRecord {
	records := make([]models.BuzzRecord, 0, len(groups))
	for _, g := range groups {
		if len(g.Mentions) == 0 {
			continue
		}
		records = append(records, buildRecord(g, locations[g.Canonical]))
	}
	return records
}

func buildRecord(g identity.Group, loc *models.Location) models.BuzzRecord {
	var total float64
	best := g.Mentions[0]
	for i, m := range g.Mentions {
		total += m.Sentiment
		// Most enthusiastic account wins; ties keep the earliest in
		// source order.
		if i > 0 && m.Sentiment > best.Sentiment {
			best = m
		}
	}
	mean := total / float64(len(g.Mentions))

	return models.BuzzRecord{
		ID:        g.Slug,
		Name:      g.Canonical,
		BuzzScore: Score(len(g.Mentions), mean),
		Sentiment: round1(mean),
		Mentions:  len(g.Mentions),
		Summary:   summaryFor(best),
		Location:  loc,
		Sources:   sourcesInOrder(g.Mentions),
	}
}

// Score combines mention volume and average sentiment. Monotonic in both:
// more mentions at equal sentiment never lowers it, higher sentiment at
// equal mentions never lowers it.
func Score(mentions int, meanSentiment float64) float64 {
	return round2(float64(mentions) + meanSentiment)
}

func summaryFor(m models.Mention) string {
	if m.Summary != "" {
		return m.Summary
	}
	return "Trending on Toronto food feeds"
}

// sourcesInOrder dedupes source ids keeping first appearance.
func sourcesInOrder(mentions []models.Mention) []string {
	seen := make(map[string]struct{}, len(mentions))
	var sources []string
	for _, m := range mentions {
		if _, ok := seen[m.SourceID]; ok {
			continue
		}
		seen[m.SourceID] = struct{}{}
		sources = append(sources, m.SourceID)
	}
	return sources
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
