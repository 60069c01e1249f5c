package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"optimizer.app/relay/common/id"
	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/common/otel"
	"optimizer.app/relay/core/config"
	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/http/middleware"
	httprouter "optimizer.app/relay/internal/http/router"
	"optimizer.app/relay/internal/pipeline"
)

const rateLimitWindow = time.Minute

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "optimizer relay starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	registry, err := backend.LoadRegistry(cfg.BackendsFile, backend.Options{
		CallTimeout: cfg.Pipeline.CallTimeout,
		Breakers:    backend.NewBreakerRegistry(backend.DefaultBreakerSettings()),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to load backends", "error", err, "file", cfg.BackendsFile)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "backends loaded",
		"preprocessor", registry.Preprocessor().ID(),
		"backends", len(registry.Backends()))

	orchestrator := pipeline.NewOrchestrator(registry, pipeline.Config{MaxParallel: cfg.Pipeline.MaxParallel})

	limiter, closeLimiter, err := setupRateLimiter(ctx, cfg.RateLimit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up rate limiter", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, orchestrator, registry, limiter)
	// Write timeout covers a full run: preprocess, generate, explain and classify in sequence.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5*cfg.Pipeline.CallTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRateLimiter(ctx context.Context, cfg config.RateLimitConfig) (middleware.Limiter, func(), error) {
	noop := func() {}
	if !cfg.Enabled() {
		slog.InfoContext(ctx, "rate limiting disabled")
		return nil, noop, nil
	}

	if !cfg.UsesRedis() {
		slog.InfoContext(ctx, "rate limiting in memory", "per_minute", cfg.RequestsPerMinute)
		return middleware.NewMemoryLimiter(cfg.RequestsPerMinute, rateLimitWindow), noop, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, noop, fmt.Errorf("parsing redis url: %w", err)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the limiter fails open, so an unreachable redis is not fatal
		slog.WarnContext(ctx, "redis unreachable at startup", "error", err)
	} else {
		slog.InfoContext(ctx, "redis connected", "per_minute", cfg.RequestsPerMinute)
	}

	return middleware.NewRedisLimiter(redisClient, cfg.RequestsPerMinute, rateLimitWindow), func() {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}, nil
}

func setupRouter(cfg config.Config, runner *pipeline.Orchestrator, registry *backend.Registry, limiter middleware.Limiter) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics())
	}

	httprouter.SetupRoutes(router, runner, registry, httprouter.RouterConfig{
		MetricsEnabled:   cfg.MetricsEnabled,
		MaxQuestionChars: cfg.Pipeline.MaxQuestionChars,
		RateLimiter:      limiter,
		RateLimitWindow:  rateLimitWindow,
	})

	return router
}

const banner = `
 ██████╗ ██████╗ ████████╗██╗███╗   ███╗██╗███████╗███████╗██████╗ 
██╔═══██╗██╔══██╗╚══██╔══╝██║████╗ ████║██║╚══███╔╝██╔════╝██╔══██╗
██║   ██║██████╔╝   ██║   ██║██╔████╔██║██║  ███╔╝ █████╗  ██████╔╝
██║   ██║██╔═══╝    ██║   ██║██║╚██╔╝██║██║ ███╔╝  ██╔══╝  ██╔══██╗
╚██████╔╝██║        ██║   ██║██║ ╚═╝ ██║██║███████╗███████╗██║  ██║
 ╚═════╝ ╚═╝        ╚═╝   ╚═╝╚═╝     ╚═╝╚═╝╚══════╝╚══════╝╚═╝  ╚═╝
`
