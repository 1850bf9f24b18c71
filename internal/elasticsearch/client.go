package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/beli-buzz/backend/internal/geocode"
	"github.com/beli-buzz/backend/internal/models"
)

// latestDocID is the single document the published snapshot lives under.
// Re-indexing it is a replace-style operation, so readers never observe a
// partially written artifact.
const latestDocID = "latest"

const requestTimeout = 10 * time.Second

// Client wraps go-elasticsearch for the two durable pieces of state this
// system has: the published snapshot and the geocode cache.
type Client struct {
	es            *elasticsearch.Client
	snapshotIndex string
	geocodeIndex  string
	log           *slog.Logger
}

// New instantiates the Elasticsearch client.
func New(addr, snapshotIndex, geocodeIndex string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		es:            es,
		snapshotIndex: snapshotIndex,
		geocodeIndex:  geocodeIndex,
		log:           logger,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Publish replaces the live snapshot document. Satisfies
// snapshot.Publisher.
func (c *Client) Publish(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.snapshotIndex,
		DocumentID: latestDocID,
		Body:       bytes.NewReader(payload),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index snapshot: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index snapshot failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// LatestSnapshot fetches the live snapshot document.
func (c *Client) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	req := esapi.GetRequest{
		Index:      c.snapshotIndex,
		DocumentID: latestDocID,
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return models.Snapshot{}, fmt.Errorf("get snapshot failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Found  bool            `json:"found"`
		Source models.Snapshot `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if !parsed.Found {
		return models.Snapshot{}, fmt.Errorf("no snapshot published yet")
	}
	return parsed.Source, nil
}

// GeocodeStore exposes the geocode cache index through the geocode.Store
// interface. Writes go straight to the index, so Flush has nothing left to
// do.
type GeocodeStore struct {
	c *Client
}

// NewGeocodeStore returns the cache store backed by this client.
func (c *Client) NewGeocodeStore() *GeocodeStore {
	return &GeocodeStore{c: c}
}

func (s *GeocodeStore) Get(ctx context.Context, key string) (geocode.Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := esapi.GetRequest{
		Index:      s.c.geocodeIndex,
		DocumentID: cacheDocID(key),
	}

	res, err := req.Do(ctx, s.c.es)
	if err != nil {
		return geocode.Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return geocode.Entry{}, false, nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return geocode.Entry{}, false, fmt.Errorf("get cache entry failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Found  bool          `json:"found"`
		Source geocode.Entry `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return geocode.Entry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return parsed.Source, parsed.Found, nil
}

func (s *GeocodeStore) Put(ctx context.Context, key string, e geocode.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      s.c.geocodeIndex,
		DocumentID: cacheDocID(key),
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, s.c.es)
	if err != nil {
		return fmt.Errorf("index cache entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index cache entry failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

func (s *GeocodeStore) Flush() error { return nil }

// cacheDocID keeps cache keys with slashes valid as document ids. Keys
// arrive already normalized, so this is mostly a guard for direct callers.
func cacheDocID(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToLower(key)), "/", "_")
}
