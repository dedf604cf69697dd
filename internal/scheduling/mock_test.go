package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/Safwan169/emr-backend/internal/redis"
)

// mockRepo is an in-memory Repository with the same conflict semantics as the
// Postgres implementation. All methods take the mutex, so the concurrency
// tests exercise real contention on BookSlot.
type mockRepo struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*User
	templates    map[uuid.UUID]*AvailabilityTemplate // keyed by doctor id
	slots        map[uuid.UUID]*Slot
	appointments map[uuid.UUID]*Appointment
}

var _ Repository = (*mockRepo)(nil)

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:        make(map[uuid.UUID]*User),
		templates:    make(map[uuid.UUID]*AvailabilityTemplate),
		slots:        make(map[uuid.UUID]*Slot),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func newTestService(repo *mockRepo, now time.Time) *Service {
	svc := NewService(repo, redisclient.NoopLocker{}, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func (m *mockRepo) addUser(role Role) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = &User{ID: id, FirstName: "Test", LastName: string(role), Email: id.String() + "@example.com", Role: role}
	return id
}

func (m *mockRepo) addSlot(doctorID uuid.UUID, date time.Time, start, end TimeOfDay, booked bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.slots[id] = &Slot{
		ID:        id,
		DoctorID:  doctorID,
		Date:      StartOfDay(date),
		StartTime: start,
		EndTime:   end,
		IsBooked:  booked,
	}
	return id
}

func (m *mockRepo) addAppointment(slotID, patientID uuid.UUID, status AppointmentStatus) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.appointments[id] = &Appointment{ID: id, SlotID: slotID, PatientID: patientID, Status: status}
	if status != StatusCancelled {
		m.slots[slotID].IsBooked = true
	}
	return id
}

// Users

func (m *mockRepo) getUser(id uuid.UUID, role Role, notFound error) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || (role != "" && u.Role != role) {
		return nil, notFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	return m.getUser(id, "", ErrUserNotFound)
}

func (m *mockRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*User, error) {
	return m.getUser(id, RoleDoctor, ErrDoctorNotFound)
}

func (m *mockRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*User, error) {
	return m.getUser(id, RolePatient, ErrPatientNotFound)
}

// Availability templates

func (m *mockRepo) GetTemplateByDoctor(_ context.Context, doctorID uuid.UUID) (*AvailabilityTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[doctorID]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepo) SaveTemplate(_ context.Context, tpl *AvailabilityTemplate) (*AvailabilityTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tpl
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	m.templates[cp.DoctorID] = &cp
	out := cp
	return &out, nil
}

func (m *mockRepo) ListTemplates(_ context.Context) ([]AvailabilityTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AvailabilityTemplate
	for _, t := range m.templates {
		out = append(out, *t)
	}
	return out, nil
}

// Slots

func slotKey(doctorID uuid.UUID, date time.Time, start TimeOfDay) string {
	return doctorID.String() + "|" + date.Format("2006-01-02") + "|" + start.String()
}

func (m *mockRepo) InsertSlots(_ context.Context, slots []Slot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]bool, len(m.slots))
	for _, s := range m.slots {
		existing[slotKey(s.DoctorID, s.Date, s.StartTime)] = true
	}

	inserted := 0
	for _, s := range slots {
		key := slotKey(s.DoctorID, s.Date, s.StartTime)
		if existing[key] {
			continue
		}
		existing[key] = true
		cp := s
		if cp.ID == uuid.Nil {
			cp.ID = uuid.New()
		}
		m.slots[cp.ID] = &cp
		inserted++
	}
	return inserted, nil
}

func (m *mockRepo) DeleteUnbookedFutureSlots(_ context.Context, doctorID uuid.UUID, from time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := StartOfDay(from)
	var deleted int64
	for id, s := range m.slots {
		if s.DoctorID == doctorID && !s.IsBooked && !s.Date.Before(day) {
			delete(m.slots, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockRepo) ListFutureSlots(_ context.Context, doctorID uuid.UUID, from time.Time) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := StartOfDay(from)
	var out []Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && !s.Date.Before(day) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (m *mockRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

// Booking

func (m *mockRepo) BookSlot(_ context.Context, req BookingRequest, now time.Time) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[req.SlotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if slot.IsBooked {
		return nil, ErrSlotAlreadyBooked
	}
	if slot.IsPast(now) {
		return nil, ErrSlotInPast
	}
	for _, a := range m.appointments {
		if a.Status != StatusConfirmed || a.PatientID != req.PatientID {
			continue
		}
		other := m.slots[a.SlotID]
		if other != nil && other.DoctorID == slot.DoctorID && other.Date.Equal(slot.Date) {
			return nil, ErrDuplicateDayBooking
		}
	}

	slot.IsBooked = true
	appt := &Appointment{
		ID:        uuid.New(),
		SlotID:    slot.ID,
		PatientID: req.PatientID,
		Status:    StatusConfirmed,
		Notes:     req.Notes,
		VisitType: req.VisitType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.appointments[appt.ID] = appt
	cp := *appt
	return &cp, nil
}

// Appointments

func (m *mockRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) detailLocked(a *Appointment) *AppointmentDetail {
	det := &AppointmentDetail{Appointment: *a}
	if s, ok := m.slots[a.SlotID]; ok {
		cp := *s
		det.Slot = &cp
		if d, ok := m.users[s.DoctorID]; ok {
			dc := *d
			det.Doctor = &dc
		}
	}
	if p, ok := m.users[a.PatientID]; ok {
		pc := *p
		det.Patient = &pc
	}
	return det
}

func (m *mockRepo) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return m.detailLocked(a), nil
}

func (m *mockRepo) TransitionAppointment(_ context.Context, id uuid.UUID, from, to AppointmentStatus, releaseSlot bool) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, ErrAppointmentFinalized
	}

	a.Status = to
	if releaseSlot {
		if s, ok := m.slots[a.SlotID]; ok {
			s.IsBooked = false
		}
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) listDetails(match func(a *Appointment, s *Slot) bool) []AppointmentDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AppointmentDetail
	for _, a := range m.appointments {
		s := m.slots[a.SlotID]
		if s == nil || !match(a, s) {
			continue
		}
		out = append(out, *m.detailLocked(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Slot.Date.Equal(out[j].Slot.Date) {
			return out[i].Slot.Date.Before(out[j].Slot.Date)
		}
		return out[i].Slot.StartTime < out[j].Slot.StartTime
	})
	return out
}

func (m *mockRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	return m.listDetails(func(a *Appointment, _ *Slot) bool {
		return a.PatientID == patientID
	}), nil
}

func (m *mockRepo) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	return m.listDetails(func(_ *Appointment, s *Slot) bool {
		return s.DoctorID == doctorID
	}), nil
}

func (m *mockRepo) ListConfirmedFutureByDoctor(_ context.Context, doctorID uuid.UUID, from time.Time) ([]AppointmentDetail, error) {
	day := StartOfDay(from)
	return m.listDetails(func(a *Appointment, s *Slot) bool {
		return s.DoctorID == doctorID && a.Status == StatusConfirmed && !s.Date.Before(day)
	}), nil
}

// Maintenance

func (m *mockRepo) DeleteStaleUnbookedSlots(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := StartOfDay(before)
	var deleted int64
	for id, s := range m.slots {
		if !s.IsBooked && s.Date.Before(day) {
			delete(m.slots, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockRepo) ListMissedConfirmed(_ context.Context, before time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := StartOfDay(before)
	var out []Appointment
	for _, a := range m.appointments {
		s := m.slots[a.SlotID]
		if s != nil && a.Status == StatusConfirmed && s.Date.Before(day) {
			out = append(out, *a)
		}
	}
	return out, nil
}
