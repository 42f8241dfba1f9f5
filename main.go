package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/config"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/database"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/handlers"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/media"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/middleware"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/ratelimit"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/storage"
)

func main() {
	startTime := time.Now()

	props, err := config.Load()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}
	props.LogSummary()

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, encode endpoints degraded: %v", err)
	}
	defer media.ShutdownVips()

	ctx := context.Background()

	dbStart := time.Now()
	db, err := database.New(ctx, props.DB.Path)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	logging.Info("Database ready in %s", time.Since(dbStart).Round(time.Millisecond))

	store, err := storage.New(storage.Options{
		Endpoint:      props.S3.Endpoint,
		AccessKey:     props.S3.AccessKey,
		SecretKey:     props.S3.SecretKey,
		Bucket:        props.S3.Bucket,
		UseSSL:        props.S3.UseSSL,
		PublicBaseURL: props.S3.PublicBaseURL,
		PresignExpiry: props.S3.PresignExpiry,
	})
	if err != nil {
		logging.Fatal("Failed to initialize object store: %v", err)
	}

	h := handlers.New(db, store, props)

	var limiterStore *ratelimit.MemoryStore
	var limiter *ratelimit.Limiter
	if props.Limits.Enabled {
		limiterStore = ratelimit.NewMemoryStore()
		defer limiterStore.Close()
		limiter = ratelimit.New(limiterStore, props.Limits.Requests, props.Limits.Window)
	}

	router := setupRouter(h, props, limiter)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = props.Server.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	srv := &http.Server{
		Addr:        ":" + props.Server.Port,
		Handler:     handler,
		ReadTimeout: props.Server.ReadTimeout,
		IdleTimeout: props.Server.IdleTimeout,
	}

	var metricsSrv *http.Server
	if props.Metrics.Enabled {
		metricsSrv = startMetricsServer(props.Metrics.Port)
	}

	go handleShutdown(srv, metricsSrv, props.Server.ShutdownTimeout)

	logging.Info("Server listening on :%s (started in %s)",
		props.Server.Port, time.Since(startTime).Round(time.Millisecond))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, props *config.Properties, limiter *ratelimit.Limiter) *mux.Router {
	root := mux.NewRouter()

	api := root.PathPrefix("/api").Subrouter()
	api.Use(middleware.RateLimit(limiter))
	api.Use(middleware.Auth(middleware.AuthConfig{
		Secret: []byte(props.Auth.JWTSecret),
		Issuer: props.Auth.Issuer,
	}))
	api.Use(middleware.RequireRole(middleware.RoleEditor))

	h.Register(root, api)
	return root
}

// startMetricsServer exposes /metrics on its own port so scrapes never
// compete with API traffic.
func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     metricsMux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logging.Info("Metrics listening on :%s", port)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, timeout time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	logging.Info("Shutdown complete")
}
