// Package pipeline wires the daily run: collect, extract, resolve, geocode,
// aggregate, publish. Data flows strictly left to right; publishing is the
// last step, so any earlier failure leaves the previous snapshot untouched.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/beli-buzz/backend/internal/buzz"
	"github.com/beli-buzz/backend/internal/collect"
	"github.com/beli-buzz/backend/internal/extract"
	"github.com/beli-buzz/backend/internal/geocode"
	"github.com/beli-buzz/backend/internal/identity"
	"github.com/beli-buzz/backend/internal/models"
	"github.com/beli-buzz/backend/internal/snapshot"
)

// Options carries the wired components for one run. Everything behind an
// interface so tests can inject mocks at any boundary.
type Options struct {
	Log                *slog.Logger
	Collectors         []collect.Collector
	Extractor          extract.Extractor
	ExtractConcurrency int
	Geocoder           *geocode.Cached
	GeocodeConcurrency int
	CacheStore         geocode.Store
	Publisher          snapshot.Publisher

	// MockFallback, when set, supplies fixture items if every live source
	// comes back empty, so a demo run still publishes something.
	MockFallback collect.Collector

	Now func() time.Time
}

// Run executes one complete batch run and returns the published snapshot.
// Zero mentions is a valid outcome; only publish failures and total
// extraction failure are fatal.
func Run(ctx context.Context, opts Options) (models.Snapshot, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now().UTC()
	log := opts.Log

	items := collect.Gather(ctx, log, opts.Collectors)
	if len(items) == 0 && opts.MockFallback != nil {
		log.Warn("all sources returned nothing, using fixture content")
		fixtures, err := opts.MockFallback.Collect(ctx)
		if err == nil {
			items = fixtures
		}
	}
	log.Info("collection finished", slog.Int("items", len(items)))

	mentions, dropped := extract.Run(ctx, log, opts.Extractor, items, opts.ExtractConcurrency)
	if len(items) > 0 && dropped == len(items) {
		return models.Snapshot{}, fmt.Errorf("extraction failed for all %d items", len(items))
	}
	log.Info("extraction finished",
		slog.Int("mentions", len(mentions)),
		slog.Int("dropped_items", dropped),
	)

	groups := identity.Resolve(mentions)
	log.Info("identity resolution finished", slog.Int("identities", len(groups)))

	// Identity resolution is complete here, so each canonical name maps to
	// exactly one geocode request for the whole run.
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Canonical)
	}
	locations := opts.Geocoder.ResolveAll(ctx, names, opts.GeocodeConcurrency)

	// The cache is the only cross-run state; persist it before publishing.
	if err := opts.CacheStore.Flush(); err != nil {
		log.Error("geocode cache flush failed", slog.Any("err", err))
	}

	records := buzz.Aggregate(groups, locations)
	snap := snapshot.Build(start, records)

	// A canceled or timed-out run must not replace the previous snapshot
	// with whatever partial data the collectors managed to return.
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("run canceled before publish: %w", err)
	}
	if err := opts.Publisher.Publish(ctx, snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("publish snapshot: %w", err)
	}

	log.Info("snapshot published",
		slog.String("date", snap.Date),
		slog.Int("restaurants", len(snap.Restaurants)),
	)
	return snap, nil
}
