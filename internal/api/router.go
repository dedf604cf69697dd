package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// NewRouter assembles the HTTP surface: health probes, the scheduling
// endpoints, and the manual maintenance triggers.
func NewRouter(h *Handlers, health *HealthHandler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(httprate.LimitByIP(100, 1*time.Minute))

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Put("/availability", h.SaveAvailability)
		r.Get("/availability", h.GetAvailability)
		r.Get("/appointments", h.ListDoctorAppointments)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.BookAppointment)
		r.Get("/{appointmentID}", h.GetAppointment)
		r.Patch("/{appointmentID}/status", h.UpdateAppointmentStatus)
	})

	r.Get("/patients/{patientID}/appointments", h.ListPatientAppointments)

	r.Route("/maintenance", func(r chi.Router) {
		r.Post("/generate-slots", h.GenerateSlots)
		r.Post("/sweep-missed", h.SweepMissed)
	})

	return r
}
