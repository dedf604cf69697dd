package cron

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewSchedulerValidSpecs(t *testing.T) {
	_, err := NewScheduler(nil, Specs{
		SlotRegen:   "0 2 * * *",
		SlotPrune:   "0 3 * * 0",
		MissedSweep: "30 2 * * *",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(nil, Specs{
		SlotRegen:   "not a cron spec",
		SlotPrune:   "0 3 * * 0",
		MissedSweep: "30 2 * * *",
	}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for malformed cron spec")
	}
}
