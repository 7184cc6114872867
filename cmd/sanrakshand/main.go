package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/shubhayu-dev/Sanrakshan/config"
	"github.com/shubhayu-dev/Sanrakshan/internal/api"
	"github.com/shubhayu-dev/Sanrakshan/internal/auth"
	"github.com/shubhayu-dev/Sanrakshan/internal/claim"
	"github.com/shubhayu-dev/Sanrakshan/internal/codes"
	"github.com/shubhayu-dev/Sanrakshan/internal/db"
	"github.com/shubhayu-dev/Sanrakshan/internal/directory"
	"github.com/shubhayu-dev/Sanrakshan/internal/ledger"
	"github.com/shubhayu-dev/Sanrakshan/internal/logger"
	"github.com/shubhayu-dev/Sanrakshan/internal/notification"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()
	zlog.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, zlog)
		pool.Start(ctx)
		zlog.Info("notification worker pool started", zap.Int("size", cfg.WorkerPool.Size))
	} else {
		zlog.Warn("VAPID keys not configured; push notifications disabled")
	}

	registry := codes.New(gormDB, zlog, cfg.Codes.MaxGenerateRetries)
	studentDir := directory.New(gormDB, zlog)
	storageLedger := ledger.New(gormDB, registry, zlog)

	var notifier claim.Notifier
	if pool != nil {
		notifier = pool
	}
	workflow := claim.New(gormDB, storageLedger, registry, notifier, zlog)

	authMgr := auth.NewManager(&cfg.Auth)
	handler := api.NewHandler(gormDB, studentDir, storageLedger, registry, workflow, pool, webpushOptions, zlog)
	router := api.NewRouter(handler, authMgr, &cfg.Server)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zlog.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	zlog.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("HTTP server Shutdown", zap.Error(err))
	}

	zlog.Info("server gracefully stopped")
}
