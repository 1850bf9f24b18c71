package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beli-buzz/backend/internal/models"
)

func TestBuildSortsAndStamps(t *testing.T) {
	start := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	records := []models.BuzzRecord{
		{ID: "b-spot", BuzzScore: 9},
		{ID: "a-spot", BuzzScore: 9},
		{ID: "hot-spot", BuzzScore: 12},
	}

	snap := Build(start, records)
	require.Equal(t, "2025-06-01T06:00:00Z", snap.Date)
	require.Equal(t, []string{"hot-spot", "a-spot", "b-spot"}, []string{
		snap.Restaurants[0].ID, snap.Restaurants[1].ID, snap.Restaurants[2].ID,
	})
}

func TestBuildEmptyRunIsValid(t *testing.T) {
	snap := Build(time.Now(), nil)
	require.NotEmpty(t, snap.Date)
	require.Empty(t, snap.Restaurants)

	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"restaurants":[]`)
}

func TestFilePublisherRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "latest.json")

	snap := Build(time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC), []models.BuzzRecord{
		{
			ID: "alo-restaurant", Name: "ALO Restaurant", BuzzScore: 10.5,
			Sentiment: 8.5, Mentions: 2, Summary: "still the one",
			Location: &models.Location{Lat: 43.648, Lng: -79.396, Address: "163 Spadina Ave"},
			Sources:  []string{"reddit:aa", "reddit:bb"},
		},
		{
			ID: "ghost-spot", Name: "Ghost Spot", BuzzScore: 7,
			Sentiment: 6, Mentions: 1, Summary: "no address known",
			Location: nil, Sources: []string{"mock:article"},
		},
	})

	pub := NewFilePublisher(path)
	require.NoError(t, pub.Publish(context.Background(), snap))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, snap, got)

	// Published field names are the external contract.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, field := range []string{`"date"`, `"restaurants"`, `"buzz_score"`, `"sentiment"`, `"mentions"`, `"summary"`, `"location"`, `"sources"`, `"lat"`, `"lng"`} {
		require.Contains(t, string(raw), field)
	}
	require.Contains(t, string(raw), `"location": null`)
}

func TestFilePublisherHonorsCanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := NewFilePublisher(path)
	err := pub.Publish(ctx, Build(time.Now(), nil))
	require.ErrorIs(t, err, ErrPublish)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestFilePublisherLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")

	pub := NewFilePublisher(path)
	require.NoError(t, pub.Publish(context.Background(), Build(time.Now(), nil)))

	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestFilePublisherReplacesPriorSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")
	pub := NewFilePublisher(path)

	first := Build(time.Date(2025, 5, 31, 6, 0, 0, 0, time.UTC), []models.BuzzRecord{{ID: "old", BuzzScore: 3}})
	require.NoError(t, pub.Publish(context.Background(), first))

	second := Build(time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC), []models.BuzzRecord{{ID: "new", BuzzScore: 5}})
	require.NoError(t, pub.Publish(context.Background(), second))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got.Restaurants, 1)
	require.Equal(t, "new", got.Restaurants[0].ID)
}
