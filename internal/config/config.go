package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Destination selects where an artifact or cache lives.
type Destination string

const (
	DestFile          Destination = "file"
	DestElasticsearch Destination = "elasticsearch"
)

// Elastic contains Elasticsearch parameters shared by the job and the API.
type Elastic struct {
	Addr          string
	SnapshotIndex string
	GeocodeIndex  string
}

// Job holds configuration for one daily pipeline run.
type Job struct {
	Elastic
	SourcesFile   string
	RecencyWindow time.Duration
	UseMockData   bool

	Extractor          string
	ModelEndpoint      string
	ModelAPIKey        string
	ModelTimeout       time.Duration
	ExtractConcurrency int

	GeocodeEndpoint    string
	GeocodeAPIKey      string
	GeocodeConcurrency int
	GeocodeRetries     int
	GeocodeCacheTTL    time.Duration
	CacheBackend       Destination
	CachePath          string

	OutputDest Destination
	OutputPath string
}

// API describes the snapshot read service.
type API struct {
	Elastic
	BindAddr        string
	SnapshotBackend Destination
	OutputPath      string
}

// LoadJob builds a Job config from environment variables.
func LoadJob() (*Job, error) {
	c := &Job{
		Elastic: Elastic{
			Addr:          getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
			SnapshotIndex: getEnv("ELASTICSEARCH_SNAPSHOT_INDEX", "buzz_snapshots"),
			GeocodeIndex:  getEnv("ELASTICSEARCH_GEOCODE_INDEX", "geocode_cache"),
		},
		SourcesFile:   getEnv("SOURCES_FILE", "sources.yaml"),
		RecencyWindow: getDuration("RECENCY_WINDOW", "24h"),
		UseMockData:   getBool("USE_MOCK_DATA", false),

		Extractor:          strings.ToLower(getEnv("EXTRACTOR", "model")),
		ModelEndpoint:      getEnv("MODEL_ENDPOINT", ""),
		ModelAPIKey:        getEnv("MODEL_API_KEY", ""),
		ModelTimeout:       getDuration("MODEL_TIMEOUT", "30s"),
		ExtractConcurrency: getInt("EXTRACT_CONCURRENCY", 4),

		GeocodeEndpoint:    getEnv("GEOCODE_ENDPOINT", "https://maps.googleapis.com/maps/api/place/textsearch/json"),
		GeocodeAPIKey:      getEnv("GEOCODE_API_KEY", ""),
		GeocodeConcurrency: getInt("GEOCODE_CONCURRENCY", 4),
		GeocodeRetries:     getInt("GEOCODE_RETRIES", 3),
		GeocodeCacheTTL:    getDuration("GEOCODE_CACHE_TTL", "720h"),
		CacheBackend:       Destination(getEnv("GEOCODE_CACHE_BACKEND", "file")),
		CachePath:          getEnv("GEOCODE_CACHE_PATH", "geocode_cache.json"),

		OutputDest: Destination(getEnv("OUTPUT_DEST", "file")),
		OutputPath: getEnv("OUTPUT_PATH", "data/latest.json"),
	}

	if c.RecencyWindow <= 0 {
		return nil, fmt.Errorf("RECENCY_WINDOW must be positive")
	}
	if c.Extractor != "model" && c.Extractor != "heuristic" {
		return nil, fmt.Errorf("EXTRACTOR must be model or heuristic, got %q", c.Extractor)
	}
	if c.Extractor == "model" && c.ModelEndpoint == "" {
		// No credential configured: degrade to the offline strategy rather
		// than failing the run.
		c.Extractor = "heuristic"
	}
	if c.ExtractConcurrency <= 0 {
		return nil, fmt.Errorf("EXTRACT_CONCURRENCY must be positive")
	}
	if c.GeocodeConcurrency <= 0 {
		return nil, fmt.Errorf("GEOCODE_CONCURRENCY must be positive")
	}
	if c.GeocodeRetries < 0 {
		return nil, fmt.Errorf("GEOCODE_RETRIES cannot be negative")
	}
	if c.GeocodeCacheTTL <= 0 {
		return nil, fmt.Errorf("GEOCODE_CACHE_TTL must be positive")
	}
	if err := validDestination(c.CacheBackend, "GEOCODE_CACHE_BACKEND"); err != nil {
		return nil, err
	}
	if err := validDestination(c.OutputDest, "OUTPUT_DEST"); err != nil {
		return nil, err
	}
	if c.OutputDest == DestFile && c.OutputPath == "" {
		return nil, fmt.Errorf("OUTPUT_PATH must be set when OUTPUT_DEST is file")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Elastic: Elastic{
			Addr:          getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
			SnapshotIndex: getEnv("ELASTICSEARCH_SNAPSHOT_INDEX", "buzz_snapshots"),
		},
		BindAddr:        getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		SnapshotBackend: Destination(getEnv("SNAPSHOT_BACKEND", "file")),
		OutputPath:      getEnv("OUTPUT_PATH", "data/latest.json"),
	}

	if err := validDestination(c.SnapshotBackend, "SNAPSHOT_BACKEND"); err != nil {
		return nil, err
	}
	if c.SnapshotBackend == DestFile && c.OutputPath == "" {
		return nil, fmt.Errorf("OUTPUT_PATH must be set when SNAPSHOT_BACKEND is file")
	}

	return c, nil
}

func validDestination(d Destination, key string) error {
	switch d {
	case DestFile, DestElasticsearch:
		return nil
	default:
		return fmt.Errorf("%s must be file or elasticsearch, got %q", key, string(d))
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}
