package scheduling

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// RegenerationStats summarizes one daily regeneration run.
type RegenerationStats struct {
	DoctorsProcessed int
	SlotsCreated     int
}

// RegenerateSlots extends every doctor's slot horizon over the rolling
// 30-day window. Each date's slots are re-attempted unconditionally; the
// idempotent insert makes the run safe to repeat and lets a previously
// interrupted run fill its own gaps. A failure for one doctor is logged and
// the batch moves on.
func (s *Service) RegenerateSlots(ctx context.Context) (RegenerationStats, error) {
	var stats RegenerationStats

	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return stats, fmt.Errorf("list availability templates: %w", err)
	}

	now := s.now()
	for i := range templates {
		tpl := &templates[i]
		created, err := s.materialize(ctx, tpl, now)
		stats.SlotsCreated += created
		stats.DoctorsProcessed++
		if err != nil {
			s.log.Warn("slot regeneration incomplete for doctor",
				zap.String("doctor_id", tpl.DoctorID.String()),
				zap.Int("created", created),
				zap.Error(err))
			continue
		}
		if created > 0 {
			s.log.Info("slots regenerated",
				zap.String("doctor_id", tpl.DoctorID.String()),
				zap.Int("created", created))
		}
	}
	return stats, nil
}

// PruneStaleSlots hard-deletes unbooked slots dated strictly before
// yesterday. Booked slots are historical appointments and are never deleted.
func (s *Service) PruneStaleSlots(ctx context.Context) (int64, error) {
	yesterday := StartOfDay(s.now().AddDate(0, 0, -1))
	deleted, err := s.repo.DeleteStaleUnbookedSlots(ctx, yesterday)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("stale slots pruned", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// SweepMissedAppointments cancels confirmed appointments whose slot date is
// strictly before yesterday. Yesterday's appointments are left alone for one
// more day, giving the doctor a grace window to mark them completed. The slot
// is not released: it is already in the past and irrelevant to future
// bookability. Safe to re-run; the CAS transition only ever moves rows
// forward.
func (s *Service) SweepMissedAppointments(ctx context.Context) (int, error) {
	yesterday := StartOfDay(s.now().AddDate(0, 0, -1))
	missed, err := s.repo.ListMissedConfirmed(ctx, yesterday)
	if err != nil {
		return 0, fmt.Errorf("list missed appointments: %w", err)
	}

	swept := 0
	for _, appt := range missed {
		if _, err := s.repo.TransitionAppointment(ctx, appt.ID, StatusConfirmed, StatusCancelled, false); err != nil {
			if errors.Is(err, ErrAppointmentFinalized) || errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.log.Warn("sweep missed appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		s.log.Info("missed appointments cancelled", zap.Int("cancelled", swept))
	}
	return swept, nil
}
