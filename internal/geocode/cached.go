package geocode

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/beli-buzz/backend/internal/identity"
	"github.com/beli-buzz/backend/internal/models"
)

// Cached wraps a Provider with the durable cache. Lookup order: fresh cache
// entry (including cached nulls) first, then exactly one provider call per
// canonical name per run. Transient provider failures retry with backoff;
// an exhausted retry yields a run-local null that is never written to the
// durable cache.
type Cached struct {
	provider Provider
	store    Store
	log      *slog.Logger
	ttl      time.Duration
	retries  int
	backoff  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	loc  *models.Location
}

// NewCached builds the caching geocoder. ttl bounds how long cached results
// (nulls included) are trusted; retries bounds provider attempts per name.
func NewCached(provider Provider, store Store, log *slog.Logger, ttl time.Duration, retries int) *Cached {
	return &Cached{
		provider: provider,
		store:    store,
		log:      log,
		ttl:      ttl,
		retries:  retries,
		backoff:  time.Second,
		now:      time.Now,
		inflight: map[string]*call{},
	}
}

// Geocode resolves one canonical name. The cache is keyed by the normalized
// form, so display-casing churn across runs never repeats a paid lookup.
// Concurrent lookups for the same name coalesce into a single provider call.
func (c *Cached) Geocode(ctx context.Context, name string) *models.Location {
	key := identity.Normalize(name)
	if key == "" {
		key = name
	}

	if e, ok, err := c.store.Get(ctx, key); err == nil && ok && c.fresh(e) {
		return e.Location
	}

	c.mu.Lock()
	if existing, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-existing.done
		return existing.loc
	}
	// Re-check under the lock: a concurrent lookup for this name may have
	// finished between the cache miss above and here.
	if e, ok, err := c.store.Get(ctx, key); err == nil && ok && c.fresh(e) {
		c.mu.Unlock()
		return e.Location
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.loc = c.lookup(ctx, name, key)
	close(cl.done)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	return cl.loc
}

func (c *Cached) fresh(e Entry) bool {
	if c.ttl <= 0 {
		return true
	}
	return c.now().Sub(e.CachedAt) <= c.ttl
}

func (c *Cached) lookup(ctx context.Context, name, key string) *models.Location {
	backoff := c.backoff
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		loc, err := c.provider.Geocode(ctx, name)
		if err == nil {
			// Success or a legitimate no-match: both are durable results.
			if putErr := c.store.Put(ctx, key, Entry{Location: loc, CachedAt: c.now().UTC()}); putErr != nil {
				c.log.Warn("geocode cache write failed", slog.String("name", name), slog.Any("err", putErr))
			}
			return loc
		}
		if errors.Is(err, ErrDisabled) {
			return nil
		}
		lastErr = err
		if !errors.Is(err, ErrProvider) {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			attempt = c.retries
		}
	}

	// Transient failure for this run only; do not poison the durable cache.
	c.log.Warn("geocoding failed, continuing without location",
		slog.String("name", name),
		slog.Any("err", lastErr),
	)
	return nil
}

// ResolveAll geocodes each canonical name with bounded concurrency and
// returns the name -> location mapping for the aggregator.
func (c *Cached) ResolveAll(ctx context.Context, names []string, concurrency int) map[string]*models.Location {
	if concurrency <= 0 {
		concurrency = 1
	}

	out := make(map[string]*models.Location, len(names))
	var outMu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			loc := c.Geocode(ctx, name)
			outMu.Lock()
			out[name] = loc
			outMu.Unlock()
		}(name)
	}
	wg.Wait()
	return out
}
