package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/bundles"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/config"
	"github.com/miniworld/modgen/internal/dispatch"
	"github.com/miniworld/modgen/internal/eventbus"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/handlers"
	"github.com/miniworld/modgen/internal/middleware"
	"github.com/miniworld/modgen/internal/packaging"
	"github.com/miniworld/modgen/internal/synth"
	"github.com/miniworld/modgen/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "github.com/miniworld/modgen/docs" // Swagger docs
)

// @title MiniWorld Mod Generator API
// @version 0.1.0
// @description Generates linked actor, mount, crafting and item documents for creature mods.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	ctx := context.Background()

	// Initialize logger with stdout sync
	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("modgen starting",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Environment),
		zap.String("allocator", cfg.AllocatorBackend),
	)

	shutdownTelemetry, err := telemetry.InitTracer(ctx, "modgen", cfg.OTLPEndpoint)
	if err != nil {
		// Collector might be down; keep serving without traces
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	var events eventbus.Publisher = eventbus.Noop{}
	if cfg.NATSURL != "" {
		bus, err := eventbus.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS, events disabled", zap.Error(err))
		} else {
			events = bus
			defer bus.Close()
		}
	}

	cat, err := cfg.LoadCatalog(catalog.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.String("variant", string(cat.Variant())),
		zap.Int("creatures", cat.Len()),
		zap.Int("families", len(cat.Families())),
		zap.Int("warnings", len(cat.Warnings())),
	)

	alloc, err := allocator.Open(ctx, cfg.AllocatorOptions(), logger)
	if err != nil {
		logger.Fatal("failed to open allocator", zap.Error(err))
	}
	defer alloc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	svc := generator.NewService(cat, alloc,
		synth.New(synth.WithMaterialID(cfg.MaterialID)),
		generator.WithEvents(events),
		generator.WithMetrics(metrics),
		generator.WithLogger(logger),
	)

	store := bundles.NewStore(cfg.BundleTTL)
	jobs := dispatch.NewJobs[handlers.BatchSummary, generator.Progress](cfg.BatchWorkers, cfg.BundleTTL, logger)
	defer jobs.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepBundles(sweepCtx, store, metrics, cfg.BundleTTL/4)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.BundleSigningKey == "" {
		logger.Warn("BUNDLE_SIGNING_KEY not set, archives will be unsigned")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	breaker := middleware.NewBreaker(middleware.DefaultBreakerConfig,
		middleware.WithStateListener(func(from, to middleware.CircuitState) {
			logger.Warn("allocator circuit changed", zap.Stringer("from", from), zap.Stringer("to", to))
		}))

	handlers.RegisterRoutes(router, handlers.Deps{
		Service:           svc,
		Bundles:           store,
		Signer:            packaging.NewSigner(cfg.BundleSigningKey),
		Jobs:              jobs,
		Events:            events,
		Metrics:           metrics,
		Gatherer:          reg,
		Backend:           cfg.AllocatorBackend,
		JWTSecret:         cfg.JWTSecret,
		Breaker:           breaker,
		AdminPasswordHash: cfg.AdminPasswordHash,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

func sweepBundles(ctx context.Context, store *bundles.Store, metrics *telemetry.Metrics, every time.Duration) {
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetStoredBundles(store.Sweep())
		}
	}
}
