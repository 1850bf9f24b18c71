package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/beli-buzz/backend/internal/models"
)

// hint is a known restaurant with the keywords that give it away.
type hint struct {
	name     string
	keywords []string
	summary  string
}

var defaultHints = []hint{
	{name: "Pai Northern Thai Kitchen", keywords: []string{"pai", "khao soi"}, summary: "Northern Thai comfort staples."},
	{name: "Seven Lives Tacos", keywords: []string{"seven lives", "baja"}, summary: "Baja-style fish tacos that stay sold out."},
	{name: "Sugo", keywords: []string{"sugo", "red sauce"}, summary: "Classic red-sauce Italian plates."},
	{name: "The Burger's Priest", keywords: []string{"priest", "burger"}, summary: "Smash burgers with cult status."},
}

// venuePattern catches capitalized sequences ending in a venue word, for
// names outside the hint list.
var venuePattern = regexp.MustCompile(`([A-Z][A-Za-z'&]+(?:\s+[A-Z][A-Za-z'&]+){0,3}\s+(?:Kitchen|Bar|Cafe|Bakery|Restaurant))`)

// Sentiment lexicon for the offline path. Hits shift the score away from
// neutral; the result stays within [0,10].
var (
	positiveWords = []string{"amazing", "best", "unreal", "incredible", "perfect", "undefeated", "worth it", "peak", "crispiest", "love"}
	negativeWords = []string{"overrated", "bland", "disappointing", "worst", "soggy", "avoid", "mid", "stale"}
)

// HeuristicExtractor is the deterministic keyword strategy. It needs no
// network access and no credentials.
type HeuristicExtractor struct {
	hints []hint
}

// NewHeuristicExtractor builds the offline strategy with the bundled
// known-name list.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{hints: defaultHints}
}

// Extract matches the hint list first, then falls back to the venue-name
// pattern. Always returns a nil error; the offline path has nothing to fail.
func (e *HeuristicExtractor) Extract(_ context.Context, item models.RawItem) ([]models.Mention, error) {
	lower := strings.ToLower(item.Text)
	sentiment := scoreSentiment(lower)

	var raw []candidate
	for _, h := range e.hints {
		for _, kw := range h.keywords {
			if strings.Contains(lower, kw) {
				s := sentiment
				raw = append(raw, candidate{Name: h.name, Sentiment: &s, Summary: h.summary})
				break
			}
		}
	}
	if len(raw) > 0 {
		return sanitize(raw, item.SourceID), nil
	}

	for _, name := range venuePattern.FindAllString(item.Text, -1) {
		s := sentiment
		raw = append(raw, candidate{
			Name:      strings.TrimSpace(name),
			Sentiment: &s,
			Summary:   "Toronto favourite mentioned online",
		})
	}
	return sanitize(raw, item.SourceID), nil
}

func scoreSentiment(lower string) float64 {
	score := neutralSentiment
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score += 1.5
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score -= 1.5
		}
	}
	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	return score
}
