package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kdduha/image-edit/internal/config"
	"github.com/kdduha/image-edit/internal/handler"
	"github.com/kdduha/image-edit/internal/metrics"
	"github.com/kdduha/image-edit/internal/service"
	"github.com/kdduha/image-edit/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/kdduha/image-edit/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Image Edit API
// @version 1.0
// @description Image editing proxy in front of an OpenAI-compatible multimodal model.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.Default()

	shutdownTracing, err := telemetry.Init(ctx, logger, cfg.Tracing)
	if err != nil {
		logger.Fatalf("telemetry error: %v", err)
	}

	if cfg.Upstream.APIKey == "" {
		logger.Println("ARK_API_KEY is not set, /api/generate runs in mock mode")
	}
	generateService := service.NewGenerateService(
		logger,
		service.NewUpstreamClient(cfg.Upstream),
		cfg.Upstream,
	)

	g := handler.NewGenerateHandler(generateService, cfg.Server.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.Logger,
		middleware.Recoverer,
		middleware.Throttle(cfg.Server.ThrottleLimit),
		middleware.Timeout(cfg.Server.Timeout),
		metrics.Middleware,
	}...)

	r.Post("/api/generate", g.Generate)
	r.Get("/api/session", handler.Session)
	r.Get("/healthz", handler.Health)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Printf("server started :%s\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("tracing shutdown error: %v\n", err)
	}
	logger.Println("server stopped")
}
