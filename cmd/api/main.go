// Package main is the entry point for the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/arcadehq/arcade/internal/api"
	"github.com/arcadehq/arcade/internal/auth"
	"github.com/arcadehq/arcade/internal/config"
	"github.com/arcadehq/arcade/internal/health"
	"github.com/arcadehq/arcade/internal/metrics"
	"github.com/arcadehq/arcade/internal/middleware"
	"github.com/arcadehq/arcade/internal/tour"
	"github.com/arcadehq/arcade/internal/tracing"
	"github.com/arcadehq/arcade/internal/upload"
	"github.com/arcadehq/arcade/internal/user"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Arcade API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "arcade-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Storage: Postgres when configured, in-memory otherwise
	var (
		db       *sql.DB
		tourRepo tour.TourRepository
		userRepo user.Repository
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		tourRepo = tour.NewPostgresTourRepository(db, logger)
		userRepo = user.NewPostgresRepository(db, logger)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		tourRepo = tour.NewInMemoryTourRepository()
		userRepo = user.NewInMemoryRepository()
	}

	// Sessions and OAuth
	sessions := auth.NewSessionServiceWithRotation(cfg.SessionSecret, cfg.PreviousSessionSecret)
	google := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)

	// Media storage
	store, err := upload.NewLocalStore(cfg.UploadDir, cfg.UploadMaxSizeMB)
	if err != nil {
		logger.Error("failed to initialize upload storage", "error", err)
		os.Exit(1)
	}

	var signer *upload.Signer
	if cfg.S3Enabled() {
		signer, err = upload.NewSigner(upload.SignerConfig{
			BucketName:      cfg.S3BucketName,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			MaxSizeMB:       cfg.UploadMaxSizeMB,
		})
		if err != nil {
			logger.Error("failed to initialize upload signer", "error", err)
			os.Exit(1)
		}
	}

	// Rate limiting: Redis-backed when configured so limits hold across
	// instances, in-memory otherwise
	var limitStore middleware.RateLimitStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		limitStore = middleware.NewRedisRateLimitStore(redis.NewClient(opts))
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		limitStore = memStore

		// Sweep expired buckets in the background
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Handlers
	tourHandlers := api.NewTourHandlers(tourRepo, m)
	authHandlers := api.NewAuthHandlers(google, userRepo, sessions, cfg.ClientURL, cfg.Env == "production")
	uploadHandlers := api.NewUploadHandlers(store, signer, m)
	healthHandlers := api.NewHealthHandlers(health.NewChecker(db))

	requireAuth := middleware.RequireAuth(sessions)
	authLimit := middleware.RateLimiter(limitStore, middleware.DefaultAuthLimit(), middleware.IPKeyFunc())
	uploadLimit := middleware.RateLimiter(limitStore, middleware.DefaultUploadLimit(), middleware.UserKeyFunc())

	mux := http.NewServeMux()

	// Tours
	mux.Handle("GET /tours", requireAuth(http.HandlerFunc(tourHandlers.ListTours)))
	mux.Handle("POST /tours", requireAuth(http.HandlerFunc(tourHandlers.CreateTour)))
	mux.Handle("GET /tours/share/{token}", http.HandlerFunc(tourHandlers.GetSharedTour))
	mux.Handle("GET /tours/{id}", requireAuth(http.HandlerFunc(tourHandlers.GetTour)))
	mux.Handle("PUT /tours/{id}", requireAuth(http.HandlerFunc(tourHandlers.UpdateTour)))
	mux.Handle("DELETE /tours/{id}", requireAuth(http.HandlerFunc(tourHandlers.DeleteTour)))

	// Auth
	mux.Handle("GET /auth/google", authLimit(http.HandlerFunc(authHandlers.GoogleLogin)))
	mux.Handle("GET /auth/google/callback", authLimit(http.HandlerFunc(authHandlers.GoogleCallback)))
	mux.Handle("GET /auth/me", requireAuth(http.HandlerFunc(authHandlers.Me)))
	mux.Handle("POST /auth/logout", http.HandlerFunc(authHandlers.Logout))

	// Uploads
	mux.Handle("POST /upload/single", requireAuth(uploadLimit(http.HandlerFunc(uploadHandlers.UploadSingle))))
	mux.Handle("POST /upload/multiple", requireAuth(uploadLimit(http.HandlerFunc(uploadHandlers.UploadMultiple))))
	mux.Handle("POST /upload/sign", requireAuth(uploadLimit(http.HandlerFunc(uploadHandlers.SignUpload))))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	// Operational endpoints
	mux.Handle("GET /health", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("GET /metrics", metrics.Handler(registry))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"arcade-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware: Tracing -> RequestID -> Metrics -> Logging -> global rate limit
	globalLimit := middleware.RateLimiter(limitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())
	handler := middleware.Tracing("arcade-api")(
		middleware.RequestID(metrics.Middleware(m)(middleware.Logging(logger)(globalLimit(mux)))),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracer provider", "error", err)
	}

	logger.Info("server stopped")
}
