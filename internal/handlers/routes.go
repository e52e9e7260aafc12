package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/bundles"
	"github.com/miniworld/modgen/internal/eventbus"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/middleware"
	"github.com/miniworld/modgen/internal/packaging"
	"github.com/miniworld/modgen/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Deps is everything the routes need.
type Deps struct {
	Service           *generator.Service
	Bundles           *bundles.Store
	Signer            *packaging.Signer
	Jobs              *BatchJobs
	Events            eventbus.Publisher
	Metrics           *telemetry.Metrics
	Gatherer          prometheus.Gatherer
	Backend           string
	JWTSecret         string
	AdminPasswordHash string
	Logger            *zap.Logger

	// Nil limiters and breaker get fresh defaults.
	RateLimiter   *middleware.RateLimiter
	StrictLimiter *middleware.RateLimiter
	Breaker       *middleware.Breaker
}

func (d *Deps) defaults() {
	if d.RateLimiter == nil {
		d.RateLimiter = middleware.NewAPILimiter()
	}
	if d.StrictLimiter == nil {
		d.StrictLimiter = middleware.NewGenerationLimiter()
	}
	if d.Breaker == nil {
		d.Breaker = middleware.NewBreaker(middleware.DefaultBreakerConfig)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = eventbus.Noop{}
	}
}

// RegisterRoutes mounts health, docs, metrics and the /api/v1 API on router.
func RegisterRoutes(router *gin.Engine, d Deps) {
	d.defaults()
	alloc := d.Service.Allocator()

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	healthHandler := NewHealthHandler(alloc, d.Backend, d.Events)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)

	catalogHandler := NewCatalogHandler(d.Service.Catalog(), d.Logger)
	generationHandler := NewGenerationHandler(d.Service, d.Bundles, d.Signer, d.Metrics, d.Logger)
	bundleHandler := NewBundleHandler(d.Bundles, d.Logger)
	batchHandler := NewBatchHandler(d.Service, d.Bundles, d.Signer, d.Jobs, d.Metrics, d.Logger)
	counterHandler := NewCounterHandler(alloc, d.Logger)
	authHandler := NewAuthHandler(d.JWTSecret, d.AdminPasswordHash, d.Logger)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(d.RateLimiter))
	{
		v1.POST("/auth/token", authHandler.Token)

		v1.GET("/creatures", catalogHandler.ListCreatures)
		v1.GET("/creatures/:copyId", catalogHandler.GetCreature)
		v1.GET("/families", catalogHandler.ListFamilies)
		v1.GET("/schemas/:category", catalogHandler.DocumentSchema)

		v1.GET("/counters", counterHandler.Get)

		bundle := v1.Group("/bundles")
		{
			bundle.GET("", bundleHandler.List)
			bundle.GET("/:key/preview", bundleHandler.Preview)
			bundle.GET("/:key/download", bundleHandler.Download)
			bundle.GET("/:key/files/:filename", bundleHandler.DownloadFile)
		}

		// Routes that draw ids - stricter rate limit + circuit breaker
		generation := v1.Group("")
		generation.Use(middleware.RateLimitMiddleware(d.StrictLimiter))
		generation.Use(middleware.CircuitBreakerMiddleware(d.Breaker))
		{
			generation.POST("/generate", generationHandler.Generate)
		}

		admin := v1.Group("")
		admin.Use(middleware.Auth(d.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
		admin.Use(middleware.CircuitBreakerMiddleware(d.Breaker))
		{
			admin.POST("/counters/reset", counterHandler.Reset)
			admin.POST("/batch", batchHandler.Run)
			admin.POST("/batch/jobs", batchHandler.Submit)
			admin.GET("/batch/jobs/:id", batchHandler.GetJob)
			admin.GET("/batch/stream", batchHandler.Stream)
		}
	}
}
