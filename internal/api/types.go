package api

import (
	"time"

	"github.com/Safwan169/emr-backend/internal/scheduling"
)

const dateLayout = "2006-01-02"

type SaveAvailabilityRequest struct {
	Weekdays            []string `json:"weekdays" validate:"required,min=1,dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	StartTime           string   `json:"start_time" validate:"required"`
	EndTime             string   `json:"end_time" validate:"required"`
	SlotDurationMinutes int      `json:"slot_duration_minutes" validate:"required,min=5,max=240"`
}

type AvailabilityPayload struct {
	DoctorID            string   `json:"doctor_id"`
	Weekdays            []string `json:"weekdays"`
	StartTime           string   `json:"start_time"`
	EndTime             string   `json:"end_time"`
	SlotDurationMinutes int      `json:"slot_duration_minutes"`
}

type SaveAvailabilityResponse struct {
	Availability               AvailabilityPayload `json:"availability"`
	CreatedSlotsCount          int                 `json:"created_slots_count"`
	CancelledAppointmentsCount int                 `json:"cancelled_appointments_count"`
}

type SlotPayload struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked"`
}

type DaySlotsPayload struct {
	Date  string        `json:"date"`
	Slots []SlotPayload `json:"slots"`
}

type GetAvailabilityResponse struct {
	Availability *AvailabilityPayload `json:"availability"`
	Days         []DaySlotsPayload    `json:"days"`
}

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id" validate:"required,uuid"`
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	SlotID    string `json:"slot_id" validate:"required,uuid"`
	Notes     string `json:"notes" validate:"max=500"`
	VisitType string `json:"visit_type" validate:"max=100"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=confirmed cancelled completed"`
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

type PartyPayload struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type AppointmentResponse struct {
	ID        string        `json:"id"`
	SlotID    string        `json:"slot_id"`
	Date      string        `json:"date"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
	Status    string        `json:"status"`
	Notes     string        `json:"notes,omitempty"`
	VisitType string        `json:"visit_type,omitempty"`
	Doctor    *PartyPayload `json:"doctor,omitempty"`
	Patient   *PartyPayload `json:"patient,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type MaintenanceResponse struct {
	DoctorsProcessed int    `json:"doctors_processed,omitempty"`
	CreatedSlots     int    `json:"created_slots,omitempty"`
	CancelledCount   int    `json:"cancelled_count,omitempty"`
	Message          string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAvailabilityPayload(tpl *scheduling.AvailabilityTemplate) AvailabilityPayload {
	return AvailabilityPayload{
		DoctorID:            tpl.DoctorID.String(),
		Weekdays:            scheduling.WeekdayNames(tpl.Weekdays),
		StartTime:           tpl.StartTime.String(),
		EndTime:             tpl.EndTime.String(),
		SlotDurationMinutes: tpl.DurationMins,
	}
}

func toDaySlots(days []scheduling.DaySlots) []DaySlotsPayload {
	out := make([]DaySlotsPayload, len(days))
	for i, d := range days {
		day := DaySlotsPayload{Date: d.Date.Format(dateLayout)}
		for _, s := range d.Slots {
			day.Slots = append(day.Slots, SlotPayload{
				ID:        s.ID.String(),
				StartTime: s.StartTime.String(),
				EndTime:   s.EndTime.String(),
				IsBooked:  s.IsBooked,
			})
		}
		out[i] = day
	}
	return out
}

func toParty(u *scheduling.User) *PartyPayload {
	if u == nil {
		return nil
	}
	return &PartyPayload{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

func toAppointmentResponse(det *scheduling.AppointmentDetail) AppointmentResponse {
	return AppointmentResponse{
		ID:        det.ID.String(),
		SlotID:    det.SlotID.String(),
		Date:      det.Slot.Date.Format(dateLayout),
		StartTime: det.Slot.StartTime.String(),
		EndTime:   det.Slot.EndTime.String(),
		Status:    string(det.Status),
		Notes:     det.Notes,
		VisitType: det.VisitType,
		Doctor:    toParty(det.Doctor),
		Patient:   toParty(det.Patient),
		CreatedAt: det.CreatedAt,
		UpdatedAt: det.UpdatedAt,
	}
}

func toAppointmentList(dets []scheduling.AppointmentDetail) []AppointmentResponse {
	out := make([]AppointmentResponse, len(dets))
	for i := range dets {
		out[i] = toAppointmentResponse(&dets[i])
	}
	return out
}
