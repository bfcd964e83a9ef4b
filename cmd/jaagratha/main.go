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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jaagratha/jaagratha-backend/internal/aggregator"
	"github.com/jaagratha/jaagratha-backend/internal/api"
	"github.com/jaagratha/jaagratha-backend/internal/config"
	"github.com/jaagratha/jaagratha-backend/internal/eonet"
	"github.com/jaagratha/jaagratha-backend/internal/importer"
	"github.com/jaagratha/jaagratha-backend/internal/lifecycle"
	"github.com/jaagratha/jaagratha-backend/internal/logging"
	"github.com/jaagratha/jaagratha-backend/internal/priority"
	"github.com/jaagratha/jaagratha-backend/internal/registry"
	"github.com/jaagratha/jaagratha-backend/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	db, err := repository.NewMongoDB(connectCtx, cfg.Mongo)
	connectCancel()
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := db.Close(closeCtx); err != nil {
			slog.Error("database close error", "error", err)
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, submit limiter disabled", "error", err)
			rdb = nil
		}
	}

	feed := eonet.NewClient(cfg.Feed)

	imp := importer.New(feed, db.Alerts(), cfg.Worker.Count, cfg.Worker.BufferSize)
	imp.Start(ctx)

	agg := aggregator.New(db.Alerts(), db.Reports(), feed)
	engine := lifecycle.NewEngine(db.Reports(), db.Alerts())
	classifier := priority.NewClassifier(cfg.Priority)
	if !classifier.Enabled() {
		slog.Info("priority classification disabled, no API token configured")
	}

	sessions := registry.New(func(string) (registry.Resource, error) {
		return eonet.NewRefresher(feed, cfg.Feed.CacheTTL), nil
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must stay false with wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(5)) // 5 req/s global limit

	handler := api.NewHandler(api.Deps{
		Alerts:     db.Alerts(),
		Reports:    db.Reports(),
		Centers:    db.ReliefCenters(),
		Aggregator: agg,
		Engine:     engine,
		Feed:       feed,
		Importer:   imp,
		Classifier: classifier,
		Sessions:   sessions,
		Query:      cfg.Query,
	})
	submitLimit := api.SubmitLimitMiddleware(rdb, cfg.Redis.SubmitLimit, cfg.Redis.SubmitWindow)
	handler.RegisterRoutes(router, submitLimit)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	imp.Stop()
	sessions.Close()
	cancel()
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
