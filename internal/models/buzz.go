package models

import "time"

// SourceType distinguishes where a raw item came from.
type SourceType string

const (
	SourceSocial    SourceType = "social"
	SourceEditorial SourceType = "editorial"
)

// RawItem is one fetched unit of text from a source. It exists only within
// a single pipeline run.
type RawItem struct {
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	Text       string     `json:"text"`
	PostedAt   time.Time  `json:"posted_at"`
	URL        string     `json:"url"`
}

// Mention is one structured extraction result from a RawItem. Sentiment is
// always within [0,10] once it crosses the extractor boundary.
type Mention struct {
	NameGuess string  `json:"name"`
	Sentiment float64 `json:"sentiment"`
	Summary   string  `json:"summary"`
	SourceID  string  `json:"source_id"`
}

// Location is a geocoded place. Address may be empty when the provider
// returned coordinates only.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// BuzzRecord is the published per-restaurant aggregate.
type BuzzRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BuzzScore float64   `json:"buzz_score"`
	Sentiment float64   `json:"sentiment"`
	Mentions  int       `json:"mentions"`
	Summary   string    `json:"summary"`
	Location  *Location `json:"location"`
	Sources   []string  `json:"sources"`
}

// Snapshot is the sole unit of publication. Each run fully replaces the
// previous snapshot.
type Snapshot struct {
	Date        string       `json:"date"`
	Restaurants []BuzzRecord `json:"restaurants"`
}
