package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Safwan169/emr-backend/internal/scheduling"
)

type Handlers struct {
	svc      *scheduling.Service
	validate *validator.Validate
}

func NewHandlers(svc *scheduling.Service) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names in validation errors, not Go struct fields.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{svc: svc, validate: v}
}

// bindJSON decodes and validates the request body, writing the error response
// itself when something is off.
func (h *Handlers) bindJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			writeError(w, http.StatusBadRequest, "invalid_"+strings.ToLower(fe.Field()),
				"failed validation on '"+fe.Tag()+"'")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get(param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// PUT /doctors/{doctorID}/availability
func (h *Handlers) SaveAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}

	var req SaveAvailabilityRequest
	if !h.bindJSON(w, r, &req) {
		return
	}

	result, err := h.svc.SaveAvailability(r.Context(), scheduling.AvailabilityInput{
		DoctorID:         doctorID,
		Weekdays:         req.Weekdays,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		SlotDurationMins: req.SlotDurationMinutes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SaveAvailabilityResponse{
		Availability:               toAvailabilityPayload(result.Template),
		CreatedSlotsCount:          result.CreatedSlots,
		CancelledAppointmentsCount: result.CancelledAppointments,
	})
}

// GET /doctors/{doctorID}/availability
func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}

	sched, err := h.svc.GetAvailability(r.Context(), doctorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := GetAvailabilityResponse{Days: toDaySlots(sched.Days)}
	if sched.Template != nil {
		p := toAvailabilityPayload(sched.Template)
		resp.Availability = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /appointments
func (h *Handlers) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if !h.bindJSON(w, r, &req) {
		return
	}

	// IDs already validated by the uuid tag.
	in := scheduling.BookAppointmentInput{
		PatientID: uuid.MustParse(req.PatientID),
		DoctorID:  uuid.MustParse(req.DoctorID),
		SlotID:    uuid.MustParse(req.SlotID),
		Notes:     req.Notes,
		VisitType: req.VisitType,
	}

	det, err := h.svc.BookAppointment(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(det))
}

// PATCH /appointments/{appointmentID}/status
func (h *Handlers) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !h.bindJSON(w, r, &req) {
		return
	}

	appt, err := h.svc.UpdateAppointmentStatus(r.Context(), appointmentID,
		scheduling.AppointmentStatus(req.Status), uuid.MustParse(req.ActorID))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	det, err := h.svc.GetAppointment(r.Context(), appt.ID, uuid.MustParse(req.ActorID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(det))
}

// GET /appointments/{appointmentID}?actor_id=
func (h *Handlers) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	actorID, ok := queryUUID(w, r, "actor_id")
	if !ok {
		return
	}

	det, err := h.svc.GetAppointment(r.Context(), appointmentID, actorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(det))
}

// GET /patients/{patientID}/appointments?actor_id=
func (h *Handlers) ListPatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathUUID(w, r, "patientID")
	if !ok {
		return
	}
	actorID, ok := queryUUID(w, r, "actor_id")
	if !ok {
		return
	}

	dets, err := h.svc.GetPatientAppointments(r.Context(), patientID, actorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(dets))
}

// GET /doctors/{doctorID}/appointments?actor_id=
func (h *Handlers) ListDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	actorID, ok := queryUUID(w, r, "actor_id")
	if !ok {
		return
	}

	dets, err := h.svc.GetDoctorAppointments(r.Context(), doctorID, actorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(dets))
}

// POST /maintenance/generate-slots
// Synchronous manual trigger of the daily regeneration, for operational
// testing.
func (h *Handlers) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.RegenerateSlots(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MaintenanceResponse{
		DoctorsProcessed: stats.DoctorsProcessed,
		CreatedSlots:     stats.SlotsCreated,
		Message:          "slot generation completed",
	})
}

// POST /maintenance/sweep-missed
// Synchronous manual trigger of the missed-appointment sweep.
func (h *Handlers) SweepMissed(w http.ResponseWriter, r *http.Request) {
	swept, err := h.svc.SweepMissedAppointments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MaintenanceResponse{
		CancelledCount: swept,
		Message:        "missed appointment sweep completed",
	})
}
