package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/http/handler"
	"optimizer.app/relay/internal/http/middleware"
)

type RouterConfig struct {
	MetricsEnabled   bool
	MaxQuestionChars int

	// RateLimiter guards the generation endpoint; nil disables limiting.
	RateLimiter     middleware.Limiter
	RateLimitWindow time.Duration
}

func SetupRoutes(router *gin.Engine, runner handler.Runner, registry *backend.Registry, cfg RouterConfig) {
	router.NoRoute(middleware.NotFound)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		catalogHandler := handler.NewCatalogHandler(registry)
		CatalogRouter(v1, catalogHandler)

		generate := v1.Group("/generate")
		if cfg.RateLimiter != nil {
			generate.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitWindow))
		}
		generationHandler := handler.NewGenerationHandler(runner, registry, cfg.MaxQuestionChars)
		GenerationRouter(generate, generationHandler)
	}
}
