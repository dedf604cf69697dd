package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Safwan169/emr-backend/internal/config"
	appcron "github.com/Safwan169/emr-backend/internal/cron"
	"github.com/Safwan169/emr-backend/internal/db"
	"github.com/Safwan169/emr-backend/internal/logger"
	redisclient "github.com/Safwan169/emr-backend/internal/redis"
	"github.com/Safwan169/emr-backend/internal/scheduling"
)

// maintenance-worker runs the recurring jobs in a process separate from the
// API server, for deployments that want the HTTP tier free of batch work.
// With -once it runs every job a single time and exits, which is what the
// container cron entrypoint uses.
func main() {
	once := flag.Bool("once", false, "run all maintenance jobs once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("maintenance-worker starting up", zap.String("env", cfg.Env), zap.Bool("once", *once))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()

	// The maintenance jobs never take slot locks, so the worker does not
	// need a Redis connection.
	repo := scheduling.NewPgRepository(pgPool)
	svc := scheduling.NewService(repo, redisclient.NoopLocker{}, zlog.Named("scheduling"))

	if *once {
		runOnce(rootCtx, svc, zlog)
		return
	}

	sched, err := appcron.NewScheduler(svc, appcron.Specs{
		SlotRegen:   cfg.SlotRegenSpec,
		SlotPrune:   cfg.SlotPruneSpec,
		MissedSweep: cfg.MissedSweepSpec,
	}, zlog)
	if err != nil {
		zlog.Fatal("scheduler init error", zap.Error(err))
	}
	sched.Start()

	<-rootCtx.Done()
	sched.Stop()
	zlog.Info("maintenance-worker stopped")
}

func runOnce(ctx context.Context, svc *scheduling.Service, zlog *zap.Logger) {
	stats, err := svc.RegenerateSlots(ctx)
	if err != nil {
		zlog.Error("slot regeneration failed", zap.Error(err))
	} else {
		zlog.Info("slot regeneration finished",
			zap.Int("doctors", stats.DoctorsProcessed),
			zap.Int("created", stats.SlotsCreated))
	}

	deleted, err := svc.PruneStaleSlots(ctx)
	if err != nil {
		zlog.Error("stale slot pruning failed", zap.Error(err))
	} else {
		zlog.Info("stale slot pruning finished", zap.Int64("deleted", deleted))
	}

	swept, err := svc.SweepMissedAppointments(ctx)
	if err != nil {
		zlog.Error("missed appointment sweep failed", zap.Error(err))
	} else {
		zlog.Info("missed appointment sweep finished", zap.Int("cancelled", swept))
	}
}
