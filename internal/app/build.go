package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ent0n29/receptionist/internal/assistant"
	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/catalog"
	"github.com/ent0n29/receptionist/internal/config"
	"github.com/ent0n29/receptionist/internal/extract"
	"github.com/ent0n29/receptionist/internal/observability"
	"github.com/ent0n29/receptionist/internal/reply"
	"github.com/ent0n29/receptionist/internal/resolve"
)

const stageWindowSamples = 256

type BuildResult struct {
	Config    config.Config
	Desk      *assistant.Desk
	Catalog   *catalog.Catalog
	Extractor extract.Extractor
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry

	// Cleanup should be called on shutdown to release external resources (DB, model clients, etc).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	services, err := catalog.Load(cfg.ServiceCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("service catalog init failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(cfg.MetricsNamespace, registry)

	store, err := booking.NewStore(ctx, booking.StoreConfig{
		Backend:     cfg.BookingStore,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("booking store init failed: %w", err)
	}

	extractor, closeExtractor, err := extract.NewExtractor(ctx, extract.Config{
		Mode:          cfg.ExtractorMode,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIToken:   cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		Timeout:       cfg.ExtractTimeout,
		Attempts:      cfg.ExtractAttempts,
		Catalog:       services,
		Location:      cfg.Location,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("extractor init failed: %w", err)
	}

	engine := assistant.NewEngine(assistant.EngineConfig{
		Extractor: extractor,
		Resolver: resolve.New(resolve.Options{
			Catalog:                services,
			DefaultDurationMinutes: cfg.DefaultDurationMinutes,
		}),
		Composer: reply.NewComposer(cfg.Location),
		Metrics:  metrics,
		Stages:   observability.NewStageWindow(stageWindowSamples),
		Logger:   logger,
	})
	desk := assistant.NewDesk(engine, store)

	logger.Info("receptionist ready",
		zap.String("extractor", extract.NameOf(extractor)),
		zap.String("store", fmt.Sprintf("%T", store)),
		zap.Int("services", len(services.Services)),
	)

	cleanup := func() error {
		var errs []string
		if err := closeExtractor(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:    cfg,
		Desk:      desk,
		Catalog:   services,
		Extractor: extractor,
		Metrics:   metrics,
		Registry:  registry,
		Cleanup:   cleanup,
	}, nil
}
