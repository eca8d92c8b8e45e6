package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/pagegate/capabilities"
	"github.com/gaurav-prasanna/pagegate/config"
	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/clean"
	"github.com/gaurav-prasanna/pagegate/core/extract"
	"github.com/gaurav-prasanna/pagegate/core/fetch"
	"github.com/gaurav-prasanna/pagegate/core/gateway"
	"github.com/gaurav-prasanna/pagegate/core/llm"
	"github.com/gaurav-prasanna/pagegate/core/logging"
	"github.com/gaurav-prasanna/pagegate/core/normalize"
	"github.com/gaurav-prasanna/pagegate/core/registry"
	"github.com/gaurav-prasanna/pagegate/core/tracing"
)

// app wires configuration into the registry, gateway and their stores.
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	deps       capabilities.Deps
	registry   *registry.Registry
	discoverer *registry.ManifestDiscoverer
	redis      *registry.RedisPublisher
	gateway    *gateway.Gateway
	prom       *prometheus.Registry
	tracing    *tracing.Provider
	builtin    bool
	closers    []func() error
}

func newApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return nil, fmt.Errorf("initializing artifact store: %w", err)
	}

	var completer core.Completer
	if cfg.LLM.APIKey != "" {
		completer = llm.NewOpenAIClient(cfg.LLM.APIKey,
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithDefaultModel(cfg.LLM.Model),
			llm.WithCompletionTimeout(cfg.LLM.Timeout))
	} else {
		logger.Debug().Msg("llm.api_key not set, language model capabilities will fail")
	}

	a.deps = capabilities.Deps{
		Store: store,
		Fetcher: fetch.New(
			fetch.WithTimeout(cfg.Fetch.Timeout),
			fetch.WithUserAgent(cfg.Fetch.UserAgent),
			fetch.WithCache(cfg.Fetch.CacheTTL),
			fetch.WithMaxBody(cfg.Fetch.MaxBody),
			fetch.WithLogger(logging.Component(logger, "fetch"))),
		Cleaner:        clean.New(),
		Text:           extract.New(),
		Normalizer:     normalize.New(),
		Completer:      completer,
		Embedder:       llm.NewOllamaEmbedder(cfg.Embeddings.URL, cfg.Embeddings.Timeout),
		Logger:         logging.Component(logger, "capability"),
		ChatModel:      cfg.LLM.Model,
		EmbeddingModel: cfg.Embeddings.Model,
	}

	disc, err := registry.NewManifestDiscoverer(capabilities.Catalog(a.deps),
		registry.WithPattern(cfg.Registry.Pattern),
		registry.WithAPIVersions(cfg.Registry.APIVersions),
		registry.WithDiscoveryLogger(logging.Component(logger, "discovery")))
	if err != nil {
		return nil, err
	}
	a.discoverer = disc

	regOpts := []registry.Option{registry.WithLogger(logging.Component(logger, "registry"))}
	if cfg.Redis.Enabled {
		pub, err := registry.NewRedisPublisherFromURL(cfg.Redis.URL,
			registry.WithRedisPrefix(cfg.Redis.Prefix),
			registry.WithRedisTTL(cfg.Redis.TTL),
			registry.WithRedisLogger(logging.Component(logger, "redis")))
		if err != nil {
			return nil, err
		}
		a.redis = pub
		regOpts = append(regOpts, registry.WithPublisher(pub))
		a.closers = append(a.closers, pub.Close)
	}
	a.registry = registry.New(regOpts...)

	tp, err := tracing.NewProvider(tracing.Config{
		Enabled:    cfg.Tracing.Enabled,
		Exporter:   cfg.Tracing.Exporter,
		SampleRate: &cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	a.tracing = tp

	gwOpts := []gateway.Option{
		gateway.WithLogger(logging.Component(logger, "gateway")),
		gateway.WithTracer(tp.Tracer()),
	}
	if cfg.Server.Metrics {
		a.prom = prometheus.NewRegistry()
		a.prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		gwOpts = append(gwOpts, gateway.WithMetrics(gateway.NewMetrics(a.prom)))
	}
	a.gateway = gateway.New(a.registry, gwOpts...)
	return a, nil
}

// load populates the registry: from the manifest directory, or with every
// compiled-in capability when builtin is set.
func (a *app) load(ctx context.Context, builtin bool) error {
	a.builtin = builtin
	_, err := a.rescan(ctx)
	return err
}

// rescan reruns discovery and publishes the result.
func (a *app) rescan(ctx context.Context) (*registry.Snapshot, error) {
	if a.builtin {
		return a.registry.Load(ctx, registry.Static(capabilities.All(a.deps)), "builtin")
	}
	return a.registry.Load(ctx, a.discoverer, a.cfg.Registry.Source)
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
