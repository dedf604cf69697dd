package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRegenerateSlotsIdempotent(t *testing.T) {
	repo := newMockRepo()
	now := monday.Add(2 * time.Hour)
	svc := newTestService(repo, now)

	for i := 0; i < 3; i++ {
		doctorID := repo.addUser(RoleDoctor)
		if _, err := svc.SaveAvailability(context.Background(), AvailabilityInput{
			DoctorID:         doctorID,
			Weekdays:         []string{"monday"},
			StartTime:        "09:00",
			EndTime:          "10:00",
			SlotDurationMins: 30,
		}); err != nil {
			t.Fatalf("SaveAvailability: %v", err)
		}
	}

	// Everything is freshly materialized, so the nightly run finds no gaps.
	stats, err := svc.RegenerateSlots(context.Background())
	if err != nil {
		t.Fatalf("RegenerateSlots: %v", err)
	}
	if stats.DoctorsProcessed != 3 {
		t.Errorf("DoctorsProcessed = %d, want 3", stats.DoctorsProcessed)
	}
	if stats.SlotsCreated != 0 {
		t.Errorf("SlotsCreated = %d, want 0 on an already-full horizon", stats.SlotsCreated)
	}
}

func TestRegenerateSlotsFillsGaps(t *testing.T) {
	repo := newMockRepo()
	doctorID := repo.addUser(RoleDoctor)
	now := monday.Add(2 * time.Hour)
	svc := newTestService(repo, now)

	if _, err := svc.SaveAvailability(context.Background(), AvailabilityInput{
		DoctorID:         doctorID,
		Weekdays:         []string{"monday"},
		StartTime:        "09:00",
		EndTime:          "10:00",
		SlotDurationMins: 30,
	}); err != nil {
		t.Fatalf("SaveAvailability: %v", err)
	}

	// Simulate a partially failed earlier run by removing two slots.
	slots, _ := repo.ListFutureSlots(context.Background(), doctorID, now)
	repo.mu.Lock()
	delete(repo.slots, slots[1].ID)
	delete(repo.slots, slots[4].ID)
	repo.mu.Unlock()

	stats, err := svc.RegenerateSlots(context.Background())
	if err != nil {
		t.Fatalf("RegenerateSlots: %v", err)
	}
	if stats.SlotsCreated != 2 {
		t.Errorf("SlotsCreated = %d, want 2", stats.SlotsCreated)
	}

	after, _ := repo.ListFutureSlots(context.Background(), doctorID, now)
	if len(after) != len(slots) {
		t.Errorf("slot count after regen = %d, want %d", len(after), len(slots))
	}
}

func TestRegenerateSlotsAdvancesHorizon(t *testing.T) {
	repo := newMockRepo()
	doctorID := repo.addUser(RoleDoctor)
	svc := newTestService(repo, monday)

	if _, err := svc.SaveAvailability(context.Background(), AvailabilityInput{
		DoctorID:         doctorID,
		Weekdays:         []string{"monday"},
		StartTime:        "09:00",
		EndTime:          "09:30",
		SlotDurationMins: 30,
	}); err != nil {
		t.Fatalf("SaveAvailability: %v", err)
	}

	// A week later the window reaches one more Monday.
	svc.now = func() time.Time { return monday.AddDate(0, 0, 7) }
	stats, err := svc.RegenerateSlots(context.Background())
	if err != nil {
		t.Fatalf("RegenerateSlots: %v", err)
	}
	if stats.SlotsCreated != 1 {
		t.Errorf("SlotsCreated = %d, want 1 newly reachable Monday", stats.SlotsCreated)
	}
}

func TestPruneStaleSlots(t *testing.T) {
	repo := newMockRepo()
	doctorID := repo.addUser(RoleDoctor)
	patientID := repo.addUser(RolePatient)
	now := monday.Add(12 * time.Hour)
	svc := newTestService(repo, now)

	oldFree := repo.addSlot(doctorID, monday.AddDate(0, 0, -10), mustTime(t, "09:00"), mustTime(t, "09:30"), false)
	oldBooked := repo.addSlot(doctorID, monday.AddDate(0, 0, -10), mustTime(t, "10:00"), mustTime(t, "10:30"), false)
	repo.addAppointment(oldBooked, patientID, StatusCompleted)
	yesterdayFree := repo.addSlot(doctorID, monday.AddDate(0, 0, -1), mustTime(t, "09:00"), mustTime(t, "09:30"), false)
	futureFree := repo.addSlot(doctorID, monday.AddDate(0, 0, 3), mustTime(t, "09:00"), mustTime(t, "09:30"), false)

	deleted, err := svc.PruneStaleSlots(context.Background())
	if err != nil {
		t.Fatalf("PruneStaleSlots: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := repo.GetSlotByID(context.Background(), oldFree); err == nil {
		t.Error("stale unbooked slot survived pruning")
	}
	for _, id := range []uuid.UUID{oldBooked, yesterdayFree, futureFree} {
		if _, err := repo.GetSlotByID(context.Background(), id); err != nil {
			t.Errorf("slot %s should survive pruning: %v", id, err)
		}
	}
}

func TestSweepMissedAppointments(t *testing.T) {
	repo := newMockRepo()
	doctorID := repo.addUser(RoleDoctor)
	patientID := repo.addUser(RolePatient)
	otherPatientID := repo.addUser(RolePatient)
	now := monday.Add(3 * time.Hour)
	svc := newTestService(repo, now)

	missedSlot := repo.addSlot(doctorID, monday.AddDate(0, 0, -2), mustTime(t, "09:00"), mustTime(t, "09:30"), false)
	missedAppt := repo.addAppointment(missedSlot, patientID, StatusConfirmed)

	// Yesterday's appointment is inside the grace window: the doctor can
	// still mark it completed, so the sweep must not touch it.
	yesterdaySlot := repo.addSlot(doctorID, monday.AddDate(0, 0, -1), mustTime(t, "09:00"), mustTime(t, "09:30"), false)
	yesterdayAppt := repo.addAppointment(yesterdaySlot, patientID, StatusConfirmed)

	completedSlot := repo.addSlot(doctorID, monday.AddDate(0, 0, -3), mustTime(t, "09:00"), mustTime(t, "09:30"), false)
	completedAppt := repo.addAppointment(completedSlot, otherPatientID, StatusCompleted)

	upcomingSlot := repo.addSlot(doctorID, monday.AddDate(0, 0, 1), mustTime(t, "09:00"), mustTime(t, "09:30"), false)
	upcomingAppt := repo.addAppointment(upcomingSlot, otherPatientID, StatusConfirmed)

	swept, err := svc.SweepMissedAppointments(context.Background())
	if err != nil {
		t.Fatalf("SweepMissedAppointments: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	missed, _ := repo.GetAppointmentByID(context.Background(), missedAppt)
	if missed.Status != StatusCancelled {
		t.Errorf("missed appointment status = %s, want cancelled", missed.Status)
	}
	// The past slot stays booked: sweeping is bookkeeping, not slot recycling.
	slot, _ := repo.GetSlotByID(context.Background(), missedSlot)
	if !slot.IsBooked {
		t.Error("missed appointment's slot must stay booked")
	}

	yesterday, _ := repo.GetAppointmentByID(context.Background(), yesterdayAppt)
	if yesterday.Status != StatusConfirmed {
		t.Errorf("yesterday's appointment swept a day early: %s", yesterday.Status)
	}

	completed, _ := repo.GetAppointmentByID(context.Background(), completedAppt)
	if completed.Status != StatusCompleted {
		t.Errorf("completed appointment was modified: %s", completed.Status)
	}
	upcoming, _ := repo.GetAppointmentByID(context.Background(), upcomingAppt)
	if upcoming.Status != StatusConfirmed {
		t.Errorf("upcoming appointment was modified: %s", upcoming.Status)
	}

	// Re-running finds nothing left to cancel.
	swept, err = svc.SweepMissedAppointments(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if swept != 0 {
		t.Errorf("second sweep = %d, want 0", swept)
	}
}
