// Command worker consumes analysis jobs from kafka and publishes their
// results. It exposes /healthz, /readyz and /metrics on the health port.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/molnotation/internal/app"
	"github.com/turtacn/molnotation/internal/application/analysis"
	"github.com/turtacn/molnotation/internal/config"
	"github.com/turtacn/molnotation/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/molnotation/internal/interfaces/http"
	"github.com/turtacn/molnotation/internal/interfaces/http/handlers"
	"github.com/turtacn/molnotation/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment and built-in defaults)")
	workers := flag.Int("workers", 0, "number of concurrent consumers (overrides worker.concurrency)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Worker.Concurrency = *workers
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Kafka.Enabled {
		fmt.Fprintln(os.Stderr, "the worker needs kafka.enabled=true")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, configPath string) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.Start(ctx)
	watchConfig(a, configPath)

	jobs := analysis.NewJobHandler(analysis.JobHandlerConfig{
		Service:  a.Service,
		Results:  a.Producer,
		Claims:   a.Claims,
		ClaimTTL: cfg.Worker.ClaimTTL,
		Timeout:  cfg.Worker.JobTimeout,
		Recorder: a.Recorder,
		Logger:   a.Logger,
	})
	handle := func(ctx context.Context, msg *kafka.Message) error {
		done := a.Recorder.TrackJob()
		defer done()
		return jobs.Handle(ctx, msg)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer, err := kafka.NewConsumer(
			app.ConsumerConfig(cfg, kafka.TopicAnalysisRequested),
			a.Logger.Named(fmt.Sprintf("consumer.%d", i)),
		)
		if err != nil {
			return fmt.Errorf("consumer %d: %w", i, err)
		}
		consumer.Subscribe(kafka.TopicAnalysisRequested, handle)
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			return consumer.Close()
		})
	}

	health := cfg.Server
	health.Port = cfg.Worker.HealthPort
	srv := httpapi.NewServer(health, healthRouter(a), a.Logger.Named("health"))
	g.Go(func() error { return srv.Run(gctx) })

	a.Logger.Info("worker started",
		logging.Int("consumers", cfg.Worker.Concurrency),
		logging.String("topic", kafka.TopicAnalysisRequested),
		logging.String("health_addr", srv.Addr()))

	err = g.Wait()
	a.Logger.Info("worker stopped")
	return err
}

// healthRouter serves the probes and, when enabled, the metrics registry.
func healthRouter(a *app.App) *gin.Engine {
	if a.Config.Server.Mode != "" {
		gin.SetMode(a.Config.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(a.Logger))
	handlers.NewHealthHandler(version, a.Service).RegisterRoutes(r)
	if a.Config.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	}
	return r
}

func watchConfig(a *app.App, path string) {
	if path == "" {
		return
	}
	err := config.Watch(path,
		func(next *config.Config) {
			a.ApplyConfig(next)
			a.Logger.Info("configuration reloaded", logging.String("path", path))
		},
		func(err error) {
			a.Logger.Error("configuration reload failed", logging.Err(err))
		})
	if err != nil {
		a.Logger.Warn("config watch disabled", logging.Err(err))
	}
}
