// Package snapshot assembles and publishes the single JSON artifact a run
// produces. Each publish fully replaces the previous snapshot.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/beli-buzz/backend/internal/models"
)

// ErrPublish marks a destination-write failure. Fatal for the run: no
// partial snapshot is ever published, the previous one stays live.
var ErrPublish = errors.New("snapshot publish failed")

// Publisher writes the finished snapshot to exactly one destination.
type Publisher interface {
	Publish(ctx context.Context, snap models.Snapshot) error
}

// Build stamps the run's start time and orders records by buzz score
// descending, id ascending on ties, so identical inputs serialize
// byte-identically apart from the date.
func Build(start time.Time, records []models.BuzzRecord) models.Snapshot {
	sorted := make([]models.BuzzRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BuzzScore != sorted[j].BuzzScore {
			return sorted[i].BuzzScore > sorted[j].BuzzScore
		}
		return sorted[i].ID < sorted[j].ID
	})

	return models.Snapshot{
		Date:        start.UTC().Format(time.RFC3339),
		Restaurants: sorted,
	}
}

// FilePublisher writes the artifact to a local path. The write is atomic
// from a reader's perspective: temp file first, then a single rename.
type FilePublisher struct {
	path string
}

func NewFilePublisher(path string) *FilePublisher {
	return &FilePublisher{path: filepath.Clean(path)}
}

func (p *FilePublisher) Publish(ctx context.Context, snap models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPublish, err)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create output dir: %v", ErrPublish, err)
		}
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("%w: write temp artifact: %v", ErrPublish, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: finalize artifact: %v", ErrPublish, err)
	}
	return nil
}

// ReadFile loads a previously published snapshot from disk. Used by the
// read API when the file destination is configured.
func ReadFile(path string) (models.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}
