// Package app assembles the engine, its optional infrastructure and the
// analysis service from a Config. The CLI, the API server and the worker all
// start from here.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/turtacn/molnotation/internal/application/analysis"
	"github.com/turtacn/molnotation/internal/config"
	"github.com/turtacn/molnotation/internal/domain/formula"
	"github.com/turtacn/molnotation/internal/domain/reaction"
	"github.com/turtacn/molnotation/internal/infrastructure/database/neo4j"
	"github.com/turtacn/molnotation/internal/infrastructure/database/redis"
	"github.com/turtacn/molnotation/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/prometheus"
)

// App owns every long-lived component of a process.
type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Metrics  prometheus.MetricsCollector
	Recorder *prometheus.EngineMetrics
	Registry *reaction.Registry
	Engine   *reaction.Engine
	Service  analysis.Service

	Redis    *redis.Client
	Cache    redis.AnalysisCache
	Claims   redis.JobClaimer
	Neo4j    *neo4j.Driver
	Producer *kafka.Producer

	watcher   *reaction.Watcher
	closeOnce sync.Once
}

type options struct {
	logger  logging.Logger
	offline bool
}

// Option customises New.
type Option func(*options)

// WithLogger uses l instead of building a logger from the config.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Offline skips redis, neo4j and kafka even when enabled. The CLI uses it
// for one-shot commands.
func Offline() Option {
	return func(o *options) { o.offline = true }
}

// New builds an App. On error every component created so far is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	a := &App{Config: cfg, Logger: o.logger}
	if a.Logger == nil {
		l, err := logging.NewLogger(LogConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		a.Logger = l
	}

	collector, err := prometheus.NewMetricsCollector(CollectorConfig(cfg), a.Logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.Metrics = collector
	a.Recorder = prometheus.NewEngineMetrics(collector)

	a.Registry = reaction.NewRegistry(nil)
	if err := a.loadCatalog(); err != nil {
		return nil, err
	}
	a.Engine = reaction.NewEngine(a.Registry)

	if !o.offline {
		if err := a.connect(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	deps := analysis.Deps{
		Engine:   a.Engine,
		Recorder: a.Recorder,
		Logger:   a.Logger,
	}
	if a.Cache != nil {
		deps.Cache = a.Cache
	}
	if a.Neo4j != nil {
		deps.Graph = neo4j.NewGraphStore(a.Neo4j, a.Logger)
	}
	if a.Producer != nil {
		deps.Jobs = a.Producer
	}
	a.Service = analysis.NewService(deps, Defaults(cfg))

	a.Logger.Info("application initialized",
		logging.Bool("offline", o.offline),
		logging.Bool("cache", a.Cache != nil),
		logging.Bool("graph", a.Neo4j != nil),
		logging.Bool("jobs", a.Producer != nil),
		logging.Int("rules", len(a.Registry.Current().Rules())))
	return a, nil
}

// loadCatalog installs the configured catalog override. With watching
// enabled the watcher performs the initial load.
func (a *App) loadCatalog() error {
	path := a.Config.Catalog.Path
	if path == "" {
		return nil
	}
	if !a.Config.Catalog.Watch {
		if _, err := a.Registry.LoadFile(path); err != nil {
			a.Recorder.RecordCatalogReload(err)
			return err
		}
		a.Logger.Info("catalog loaded", logging.String("path", path))
		return nil
	}

	w, err := reaction.NewWatcher(path, a.Registry, reaction.WatcherOptions{
		Debounce: a.Config.Catalog.Debounce,
		OnReload: func(c *reaction.Catalog) {
			a.Recorder.RecordCatalogReload(nil)
			a.Logger.Info("catalog reloaded",
				logging.String("path", path),
				logging.Int("groups", len(c.Groups())),
				logging.Int("rules", len(c.Rules())))
		},
		OnError: func(err error) {
			a.Recorder.RecordCatalogReload(err)
			a.Logger.Error("catalog reload failed, keeping previous catalog",
				logging.String("path", path), logging.Err(err))
		},
	})
	if err != nil {
		a.Recorder.RecordCatalogReload(err)
		return err
	}
	a.watcher = w
	return nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(RedisConfig(cfg), a.Logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.Redis = client
		a.Cache = redis.NewAnalysisCache(client, a.Logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
			redis.WithObserver("analysis", a.Recorder))
		a.Claims = redis.NewJobClaimer(client, a.Logger)
	}
	if cfg.Neo4j.Enabled {
		d, err := neo4j.NewDriver(Neo4jConfig(cfg), a.Logger)
		if err != nil {
			return fmt.Errorf("neo4j: %w", err)
		}
		a.Neo4j = d
	}
	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			if err := a.ensureTopics(ctx); err != nil {
				return fmt.Errorf("kafka topics: %w", err)
			}
		}
		p, err := kafka.NewProducer(ProducerConfig(cfg), a.Logger)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		a.Producer = p
	}
	return nil
}

func (a *App) ensureTopics(ctx context.Context) error {
	tm, err := kafka.NewTopicManager(a.Config.Kafka.Brokers, a.Logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics(a.Config.Kafka.ReplicationFactor))
}

// Start runs the background parts of the App, currently the catalog
// watcher, until ctx ends.
func (a *App) Start(ctx context.Context) {
	if a.watcher != nil {
		go a.watcher.Run(ctx)
		a.Logger.Info("watching catalog", logging.String("path", a.Config.Catalog.Path))
	}
}

// ApplyConfig takes over the hot-reloadable settings of cfg. Connection
// settings need a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Service.UpdateDefaults(Defaults(cfg))
}

// Close releases every component. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.Producer != nil {
			if err := a.Producer.Close(); err != nil {
				a.Logger.Warn("kafka producer close failed", logging.Err(err))
			}
		}
		if a.Neo4j != nil {
			if err := a.Neo4j.Close(context.Background()); err != nil {
				a.Logger.Warn("neo4j close failed", logging.Err(err))
			}
		}
		if a.Redis != nil {
			if err := a.Redis.Close(); err != nil {
				a.Logger.Warn("redis close failed", logging.Err(err))
			}
		}
		_ = a.Logger.Sync()
	})
}

// Defaults derives the analysis defaults from cfg. A markup that fails to
// parse falls back to plain; Validate rejects it earlier.
func Defaults(cfg *config.Config) analysis.Defaults {
	markup, err := formula.ParseMarkup(cfg.Render.Markup)
	if err != nil {
		markup = formula.Plain
	}
	return analysis.Defaults{
		Parse:        cfg.Engine.Options,
		Markup:       markup,
		ShowImplicit: cfg.Render.ShowImplicit,
		MatchTimeout: cfg.Engine.MatchTimeout,
		Reaction: reaction.Options{
			AddHydrogens: cfg.Engine.AddHydrogens,
			Halogen:      cfg.Engine.Halogen,
		},
	}
}
