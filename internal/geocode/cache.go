package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/beli-buzz/backend/internal/models"
)

// Entry is one cached lookup result. A nil Location is a valid cached
// outcome: the provider found no match, and the miss is not retried while
// the entry stays fresh.
type Entry struct {
	Location *models.Location `json:"location"`
	CachedAt time.Time        `json:"cached_at"`
}

// Store is the durable name -> location mapping that outlives a run. Keys
// are normalized names, never display casing.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	// Flush persists pending writes. Must be called before the run ends;
	// the cache is the only cross-run state.
	Flush() error
}

// FileStore keeps the cache as a JSON object on disk, written atomically via
// a temp file and rename.
type FileStore struct {
	path string

	mu    sync.Mutex
	data  map[string]Entry
	dirty bool
}

// NewFileStore loads the cache file if it exists. A corrupt file starts the
// cache fresh rather than failing the run.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: filepath.Clean(path), data: map[string]Entry{}}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read geocode cache: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = map[string]Entry{}
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	return e, ok, nil
}

func (s *FileStore) Put(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e
	s.dirty = true
	return nil
}

func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geocode cache: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write geocode cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace geocode cache: %w", err)
	}
	s.dirty = false
	return nil
}

// MemoryStore is the injectable in-memory backing used by tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Entry{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	return e, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e
	return nil
}

func (s *MemoryStore) Flush() error { return nil }
