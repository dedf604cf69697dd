package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MinSlotDurationMins = 5
	MaxSlotDurationMins = 240
)

// AvailabilityInput is a doctor's weekly pattern as submitted by the client.
// Times are "HH:mm" strings; they are parsed and validated here, once.
type AvailabilityInput struct {
	DoctorID         uuid.UUID
	Weekdays         []string
	StartTime        string
	EndTime          string
	SlotDurationMins int
}

type AvailabilityResult struct {
	Template              *AvailabilityTemplate
	CreatedSlots          int
	CancelledAppointments int
}

// DaySlots groups one calendar date's slots in start-time order.
type DaySlots struct {
	Date  time.Time
	Slots []Slot
}

// DoctorSchedule is the read side of availability: the current template plus
// every upcoming slot grouped by date. Template is nil when the doctor has
// not set availability yet.
type DoctorSchedule struct {
	Template *AvailabilityTemplate
	Days     []DaySlots
}

// SaveAvailability replaces the doctor's weekly template and rematerializes
// the slot horizon. Dropping a weekday cancels every future confirmed
// appointment on that day and frees its slot; booked slots on still-active
// days are never touched.
func (s *Service) SaveAvailability(ctx context.Context, in AvailabilityInput) (*AvailabilityResult, error) {
	if _, err := s.repo.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, err
	}

	tpl, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}

	cancelled := 0
	current, err := s.repo.GetTemplateByDoctor(ctx, in.DoctorID)
	switch {
	case err == nil:
		tpl.ID = current.ID
		removed := removedWeekdays(current.Weekdays, tpl.Weekdays)
		if len(removed) > 0 {
			cancelled, err = s.cancelAppointmentsOnWeekdays(ctx, in.DoctorID, removed)
			if err != nil {
				return nil, fmt.Errorf("cancel appointments for removed days: %w", err)
			}
		}
	case errors.Is(err, ErrTemplateNotFound):
		// first save for this doctor
	default:
		return nil, fmt.Errorf("load current availability: %w", err)
	}

	saved, err := s.repo.SaveTemplate(ctx, tpl)
	if err != nil {
		return nil, fmt.Errorf("save availability template: %w", err)
	}

	now := s.now()
	if _, err := s.repo.DeleteUnbookedFutureSlots(ctx, in.DoctorID, now); err != nil {
		return nil, fmt.Errorf("clear unbooked future slots: %w", err)
	}

	created, err := s.materialize(ctx, saved, now)
	if err != nil {
		// Per-slot failures self-heal on the nightly run; the save itself
		// succeeded.
		s.log.Warn("partial slot materialization",
			zap.String("doctor_id", in.DoctorID.String()),
			zap.Int("created", created),
			zap.Error(err))
	}

	return &AvailabilityResult{
		Template:              saved,
		CreatedSlots:          created,
		CancelledAppointments: cancelled,
	}, nil
}

// GetAvailability returns the doctor's template and all upcoming slots,
// booked and free alike, grouped by date.
func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID) (*DoctorSchedule, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	tpl, err := s.repo.GetTemplateByDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return &DoctorSchedule{}, nil
		}
		return nil, err
	}

	now := s.now()
	slots, err := s.repo.ListFutureSlots(ctx, doctorID, now)
	if err != nil {
		return nil, fmt.Errorf("list future slots: %w", err)
	}

	sched := &DoctorSchedule{Template: tpl}
	for _, slot := range slots {
		if slot.IsPast(now) {
			continue
		}
		n := len(sched.Days)
		if n == 0 || !sched.Days[n-1].Date.Equal(slot.Date) {
			sched.Days = append(sched.Days, DaySlots{Date: slot.Date})
			n++
		}
		sched.Days[n-1].Slots = append(sched.Days[n-1].Slots, slot)
	}
	return sched, nil
}

// materialize inserts the template's candidate slots over the rolling horizon.
// Inserts are idempotent under the (doctor, date, start_time) key, so racing
// the nightly job is harmless.
func (s *Service) materialize(ctx context.Context, tpl *AvailabilityTemplate, from time.Time) (int, error) {
	candidates := GenerateSlots(tpl, from, HorizonDays)
	slots := make([]Slot, len(candidates))
	for i, c := range candidates {
		slots[i] = Slot{
			DoctorID:   tpl.DoctorID,
			TemplateID: tpl.ID,
			Date:       c.Date,
			StartTime:  c.StartTime,
			EndTime:    c.EndTime,
		}
	}
	return s.repo.InsertSlots(ctx, slots)
}

func (s *Service) validateInput(in AvailabilityInput) (*AvailabilityTemplate, error) {
	days, err := ParseWeekdays(in.Weekdays)
	if err != nil {
		return nil, invalidField("weekdays", "%v", err)
	}
	if len(days) == 0 {
		return nil, invalidField("weekdays", "at least one weekday must be selected")
	}

	start, err := ParseTimeOfDay(in.StartTime)
	if err != nil {
		return nil, invalidField("start_time", "%v", err)
	}
	end, err := ParseTimeOfDay(in.EndTime)
	if err != nil {
		return nil, invalidField("end_time", "%v", err)
	}
	if !start.Before(end) {
		return nil, invalidField("end_time", "end time must be after start time")
	}

	if in.SlotDurationMins < MinSlotDurationMins || in.SlotDurationMins > MaxSlotDurationMins {
		return nil, invalidField("slot_duration_minutes", "must be between %d and %d minutes", MinSlotDurationMins, MaxSlotDurationMins)
	}
	if int(end-start) < in.SlotDurationMins {
		return nil, invalidField("slot_duration_minutes", "duration is longer than the available time window")
	}

	return &AvailabilityTemplate{
		DoctorID:     in.DoctorID,
		StartTime:    start,
		EndTime:      end,
		DurationMins: in.SlotDurationMins,
		Weekdays:     days,
	}, nil
}

// cancelAppointmentsOnWeekdays cancels every future confirmed appointment of
// the doctor falling on one of the given weekdays and frees the slot when it
// is still bookable. Failures on individual appointments are logged and
// skipped so one bad row cannot wedge an availability save.
func (s *Service) cancelAppointmentsOnWeekdays(ctx context.Context, doctorID uuid.UUID, days []time.Weekday) (int, error) {
	drop := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		drop[d] = true
	}

	now := s.now()
	appts, err := s.repo.ListConfirmedFutureByDoctor(ctx, doctorID, now)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, det := range appts {
		if !drop[det.Slot.Date.Weekday()] {
			continue
		}
		release := !det.Slot.IsPast(now)
		if _, err := s.repo.TransitionAppointment(ctx, det.ID, StatusConfirmed, StatusCancelled, release); err != nil {
			if errors.Is(err, ErrAppointmentFinalized) {
				continue
			}
			s.log.Warn("cancel appointment for removed weekday",
				zap.String("appointment_id", det.ID.String()),
				zap.Error(err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

func removedWeekdays(current, next []time.Weekday) []time.Weekday {
	keep := make(map[time.Weekday]bool, len(next))
	for _, d := range next {
		keep[d] = true
	}
	var removed []time.Weekday
	for _, d := range current {
		if !keep[d] {
			removed = append(removed, d)
		}
	}
	return removed
}
