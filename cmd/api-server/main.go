package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Safwan169/emr-backend/internal/api"
	"github.com/Safwan169/emr-backend/internal/config"
	appcron "github.com/Safwan169/emr-backend/internal/cron"
	"github.com/Safwan169/emr-backend/internal/db"
	"github.com/Safwan169/emr-backend/internal/logger"
	redisclient "github.com/Safwan169/emr-backend/internal/redis"
	"github.com/Safwan169/emr-backend/internal/scheduling"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		zlog.Fatal("schema migration error", zap.Error(err))
	}

	rdb, err := redisclient.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewSlotLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, zlog.Named("scheduling"))

	sched, err := appcron.NewScheduler(svc, appcron.Specs{
		SlotRegen:   cfg.SlotRegenSpec,
		SlotPrune:   cfg.SlotPruneSpec,
		MissedSweep: cfg.MissedSweepSpec,
	}, zlog)
	if err != nil {
		zlog.Fatal("scheduler init error", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	handlers := api.NewHandlers(svc)
	health := api.NewHealthHandler(pgPool, rdb, cfg.Env, version)
	router := api.NewRouter(handlers, health, zlog.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		zlog.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http server shutdown error", zap.Error(err))
	}

	zlog.Info("api-server stopped")
}
