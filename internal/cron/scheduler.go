package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Safwan169/emr-backend/internal/scheduling"
)

const jobTimeout = 10 * time.Minute

// Specs holds the cron expressions for the three maintenance jobs.
type Specs struct {
	SlotRegen   string
	SlotPrune   string
	MissedSweep string
}

// Scheduler runs the recurring maintenance jobs: daily slot regeneration,
// weekly stale-slot pruning, and the missed-appointment sweep. Overlapping
// runs of the same job are skipped rather than queued.
type Scheduler struct {
	cron *cron.Cron
	svc  *scheduling.Service
	log  *zap.Logger
}

func NewScheduler(svc *scheduling.Service, specs Specs, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		svc: svc,
		log: log,
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLog),
		cron.Recover(cronLog),
	))

	if _, err := s.cron.AddFunc(specs.SlotRegen, s.runRegen); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(specs.SlotPrune, s.runPrune); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(specs.MissedSweep, s.runSweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("maintenance scheduler started")
}

// Stop waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("maintenance scheduler stopped")
}

func (s *Scheduler) runRegen() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	stats, err := s.svc.RegenerateSlots(ctx)
	if err != nil {
		s.log.Error("slot regeneration failed", zap.Error(err))
		return
	}
	s.log.Info("slot regeneration finished",
		zap.Int("doctors", stats.DoctorsProcessed),
		zap.Int("created", stats.SlotsCreated))
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	deleted, err := s.svc.PruneStaleSlots(ctx)
	if err != nil {
		s.log.Error("stale slot pruning failed", zap.Error(err))
		return
	}
	s.log.Info("stale slot pruning finished", zap.Int64("deleted", deleted))
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	swept, err := s.svc.SweepMissedAppointments(ctx)
	if err != nil {
		s.log.Error("missed appointment sweep failed", zap.Error(err))
		return
	}
	s.log.Info("missed appointment sweep finished", zap.Int("cancelled", swept))
}
