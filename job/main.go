package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/beli-buzz/backend/internal/collect"
	"github.com/beli-buzz/backend/internal/config"
	"github.com/beli-buzz/backend/internal/elasticsearch"
	"github.com/beli-buzz/backend/internal/extract"
	"github.com/beli-buzz/backend/internal/geocode"
	"github.com/beli-buzz/backend/internal/logger"
	"github.com/beli-buzz/backend/internal/pipeline"
	"github.com/beli-buzz/backend/internal/snapshot"
)

func main() {
	log := logger.New("job").With("run_id", uuid.NewString())
	cfg, err := config.LoadJob()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts, err := buildOptions(log, cfg)
	if err != nil {
		log.Error("wire pipeline", slog.Any("err", err))
		os.Exit(1)
	}

	snap, err := pipeline.Run(ctx, opts)
	if err != nil {
		log.Error("run failed", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("daily job complete",
		slog.String("date", snap.Date),
		slog.Int("restaurants", len(snap.Restaurants)),
	)
}

func buildOptions(log *slog.Logger, cfg *config.Job) (pipeline.Options, error) {
	var esClient *elasticsearch.Client
	if cfg.CacheBackend == config.DestElasticsearch || cfg.OutputDest == config.DestElasticsearch {
		var err error
		esClient, err = elasticsearch.New(cfg.Addr, cfg.SnapshotIndex, cfg.GeocodeIndex, log)
		if err != nil {
			return pipeline.Options{}, err
		}
	}

	collectors, err := buildCollectors(cfg)
	if err != nil {
		return pipeline.Options{}, err
	}

	var store geocode.Store
	if cfg.CacheBackend == config.DestElasticsearch {
		store = esClient.NewGeocodeStore()
	} else {
		store, err = geocode.NewFileStore(cfg.CachePath)
		if err != nil {
			return pipeline.Options{}, err
		}
	}

	var provider geocode.Provider
	if cfg.GeocodeAPIKey != "" {
		provider = geocode.NewPlacesProvider(cfg.GeocodeEndpoint, cfg.GeocodeAPIKey)
	} else {
		log.Warn("no geocoding key configured, locations will be null")
		provider = geocode.Disabled{}
	}

	var publisher snapshot.Publisher
	if cfg.OutputDest == config.DestElasticsearch {
		publisher = esClient
	} else {
		publisher = snapshot.NewFilePublisher(cfg.OutputPath)
	}

	opts := pipeline.Options{
		Log:                log,
		Collectors:         collectors,
		Extractor:          buildExtractor(cfg),
		ExtractConcurrency: cfg.ExtractConcurrency,
		Geocoder:           geocode.NewCached(provider, store, log, cfg.GeocodeCacheTTL, cfg.GeocodeRetries),
		GeocodeConcurrency: cfg.GeocodeConcurrency,
		CacheStore:         store,
		Publisher:          publisher,
	}
	if cfg.UseMockData {
		opts.MockFallback = collect.NewStaticCollector()
	}
	return opts, nil
}

func buildCollectors(cfg *config.Job) ([]collect.Collector, error) {
	if cfg.UseMockData {
		return []collect.Collector{collect.NewStaticCollector()}, nil
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	var collectors []collect.Collector
	if len(sources.Feeds) > 0 {
		collectors = append(collectors, collect.NewEditorialCollector(sources.Feeds, cfg.RecencyWindow))
	}
	if sources.Social.Topic != "" {
		collectors = append(collectors, collect.NewSocialCollector(sources.Social, cfg.RecencyWindow))
	}
	return collectors, nil
}

func buildExtractor(cfg *config.Job) extract.Extractor {
	heuristic := extract.NewHeuristicExtractor()
	if cfg.Extractor == "heuristic" {
		return heuristic
	}
	return extract.NewModelExtractor(cfg.ModelEndpoint, cfg.ModelAPIKey, cfg.ModelTimeout, heuristic)
}
