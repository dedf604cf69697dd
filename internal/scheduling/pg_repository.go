package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanUser(row pgx.Row, notFound error) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &u, nil
}

func scanTemplate(row pgx.Row) (*AvailabilityTemplate, error) {
	var t AvailabilityTemplate
	var start, end string
	var days []string

	err := row.Scan(
		&t.ID,
		&t.DoctorID,
		&start,
		&end,
		&t.DurationMins,
		&days,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	if t.StartTime, err = ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("template %s start_time: %w", t.ID, err)
	}
	if t.EndTime, err = ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("template %s end_time: %w", t.ID, err)
	}
	if t.Weekdays, err = ParseWeekdays(days); err != nil {
		return nil, fmt.Errorf("template %s weekdays: %w", t.ID, err)
	}
	return &t, nil
}

// localDate rebuilds a scanned slot_date at server-local midnight. pgx decodes
// the date column at UTC midnight, while generated slots and every "is this in
// the past" comparison use server-local time; without this the past-booking
// check shifts by the UTC offset.
func localDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var start, end string

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.TemplateID,
		&s.Date,
		&start,
		&end,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Date = localDate(s.Date)
	if s.StartTime, err = ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("slot %s start_time: %w", s.ID, err)
	}
	if s.EndTime, err = ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("slot %s end_time: %w", s.ID, err)
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.PatientID,
		&a.Status,
		&a.Notes,
		&a.VisitType,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

const userColumns = `id, first_name, last_name, email, role, created_at, updated_at`
const templateColumns = `id, doctor_id, start_time, end_time, slot_duration_mins, weekdays, created_at, updated_at`
const slotColumns = `id, doctor_id, template_id, slot_date, start_time, end_time, is_booked, created_at, updated_at`
const appointmentColumns = `id, slot_id, patient_id, status, notes, visit_type, created_at, updated_at`

// Users

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row, ErrUserNotFound)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND role = 'doctor'
	`, id)
	return scanUser(row, ErrDoctorNotFound)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND role = 'patient'
	`, id)
	return scanUser(row, ErrPatientNotFound)
}

// Availability templates

func (r *PgRepository) GetTemplateByDoctor(ctx context.Context, doctorID uuid.UUID) (*AvailabilityTemplate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM availability_templates
		WHERE doctor_id = $1
	`, doctorID)
	return scanTemplate(row)
}

func (r *PgRepository) SaveTemplate(ctx context.Context, tpl *AvailabilityTemplate) (*AvailabilityTemplate, error) {
	id := tpl.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_templates (id, doctor_id, start_time, end_time, slot_duration_mins, weekdays, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (doctor_id) DO UPDATE
		SET start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    slot_duration_mins = EXCLUDED.slot_duration_mins,
		    weekdays = EXCLUDED.weekdays,
		    updated_at = now()
		RETURNING `+templateColumns+`
	`, id, tpl.DoctorID, tpl.StartTime.String(), tpl.EndTime.String(), tpl.DurationMins, WeekdayNames(tpl.Weekdays))

	return scanTemplate(row)
}

func (r *PgRepository) ListTemplates(ctx context.Context) ([]AvailabilityTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM availability_templates
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// Slots

// InsertSlots inserts candidates one by one, skipping rows that collide on the
// (doctor_id, slot_date, start_time) key. A failed insert is remembered but
// does not stop the batch; the nightly run re-attempts it.
func (r *PgRepository) InsertSlots(ctx context.Context, slots []Slot) (int, error) {
	inserted := 0
	var failed int
	var lastErr error

	for _, s := range slots {
		id := s.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ct, err := r.pool.Exec(ctx, `
			INSERT INTO slots (id, doctor_id, template_id, slot_date, start_time, end_time, is_booked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, false, now(), now())
			ON CONFLICT (doctor_id, slot_date, start_time) DO NOTHING
		`, id, s.DoctorID, s.TemplateID, s.Date, s.StartTime.String(), s.EndTime.String())
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		inserted += int(ct.RowsAffected())
	}

	if failed > 0 {
		return inserted, fmt.Errorf("%d of %d slot inserts failed: %w", failed, len(slots), lastErr)
	}
	return inserted, nil
}

func (r *PgRepository) DeleteUnbookedFutureSlots(ctx context.Context, doctorID uuid.UUID, from time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE doctor_id = $1
		  AND is_booked = false
		  AND slot_date >= $2
	`, doctorID, StartOfDay(from))
	if err != nil {
		return 0, fmt.Errorf("delete unbooked future slots: %w", err)
	}
	return ct.RowsAffected(), nil
}

// ListFutureSlots returns the doctor's slots from the given day onward in
// chronological order. start_time is zero-padded HH:mm so text order matches
// clock order.
func (r *PgRepository) ListFutureSlots(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_id = $1
		  AND slot_date >= $2
		ORDER BY slot_date, start_time
	`, doctorID, StartOfDay(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

// Booking

// BookSlot is the conflict-free booking transaction. The slot row is locked
// with FOR UPDATE before the booked flag is read, so two concurrent bookings
// of the same slot serialize: one commits, the other sees is_booked = true.
func (r *PgRepository) BookSlot(ctx context.Context, req BookingRequest, now time.Time) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
		FOR UPDATE
	`, req.SlotID)
	slot, err := scanSlot(row)
	if err != nil {
		return nil, err
	}

	if slot.IsBooked {
		return nil, ErrSlotAlreadyBooked
	}
	if slot.IsPast(now) {
		return nil, ErrSlotInPast
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments a
			JOIN slots s ON s.id = a.slot_id
			WHERE a.patient_id = $1
			  AND a.status = 'confirmed'
			  AND s.doctor_id = $2
			  AND s.slot_date = $3
		)
	`, req.PatientID, slot.DoctorID, slot.Date).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check duplicate day booking: %w", err)
	}
	if exists {
		return nil, ErrDuplicateDayBooking
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slots
		SET is_booked = true,
		    updated_at = now()
		WHERE id = $1
	`, slot.ID); err != nil {
		return nil, fmt.Errorf("mark slot booked: %w", err)
	}

	row = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, slot_id, patient_id, status, notes, visit_type, created_at, updated_at)
		VALUES ($1, $2, $3, 'confirmed', $4, $5, now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), slot.ID, req.PatientID, req.Notes, req.VisitType)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}
	return appt, nil
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// TransitionAppointment is a compare-and-set on the status column. The update
// only lands when the row is still in `from`; a raced or repeated transition
// surfaces as ErrAppointmentFinalized instead of overwriting a terminal state.
func (r *PgRepository) TransitionAppointment(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, releaseSlot bool) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			var exists bool
			if chkErr := tx.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)
			`, id).Scan(&exists); chkErr == nil && exists {
				return nil, ErrAppointmentFinalized
			}
		}
		return nil, err
	}

	if releaseSlot {
		if _, err := tx.Exec(ctx, `
			UPDATE slots
			SET is_booked = false,
			    updated_at = now()
			WHERE id = $1
		`, appt.SlotID); err != nil {
			return nil, fmt.Errorf("release slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition tx: %w", err)
	}
	return appt, nil
}

const detailQuery = `
	SELECT a.id, a.slot_id, a.patient_id, a.status, a.notes, a.visit_type, a.created_at, a.updated_at,
	       s.id, s.doctor_id, s.template_id, s.slot_date, s.start_time, s.end_time, s.is_booked, s.created_at, s.updated_at,
	       d.id, d.first_name, d.last_name, d.email, d.role, d.created_at, d.updated_at,
	       p.id, p.first_name, p.last_name, p.email, p.role, p.created_at, p.updated_at
	FROM appointments a
	JOIN slots s ON s.id = a.slot_id
	JOIN users d ON d.id = s.doctor_id
	JOIN users p ON p.id = a.patient_id
`

func scanAppointmentDetail(row pgx.Row) (*AppointmentDetail, error) {
	var det AppointmentDetail
	var slot Slot
	var doctor, patient User
	var slotStart, slotEnd string

	err := row.Scan(
		&det.ID, &det.SlotID, &det.PatientID, &det.Status, &det.Notes, &det.VisitType, &det.CreatedAt, &det.UpdatedAt,
		&slot.ID, &slot.DoctorID, &slot.TemplateID, &slot.Date, &slotStart, &slotEnd, &slot.IsBooked, &slot.CreatedAt, &slot.UpdatedAt,
		&doctor.ID, &doctor.FirstName, &doctor.LastName, &doctor.Email, &doctor.Role, &doctor.CreatedAt, &doctor.UpdatedAt,
		&patient.ID, &patient.FirstName, &patient.LastName, &patient.Email, &patient.Role, &patient.CreatedAt, &patient.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	slot.Date = localDate(slot.Date)
	if slot.StartTime, err = ParseTimeOfDay(slotStart); err != nil {
		return nil, fmt.Errorf("slot %s start_time: %w", slot.ID, err)
	}
	if slot.EndTime, err = ParseTimeOfDay(slotEnd); err != nil {
		return nil, fmt.Errorf("slot %s end_time: %w", slot.ID, err)
	}

	det.Slot = &slot
	det.Doctor = &doctor
	det.Patient = &patient
	return &det, nil
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+` WHERE a.id = $1`, id)
	return scanAppointmentDetail(row)
}

func (r *PgRepository) listDetails(ctx context.Context, where string, args ...any) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		det, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *det)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	return r.listDetails(ctx, ` WHERE a.patient_id = $1 ORDER BY s.slot_date, s.start_time`, patientID)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	return r.listDetails(ctx, ` WHERE s.doctor_id = $1 ORDER BY s.slot_date, s.start_time`, doctorID)
}

func (r *PgRepository) ListConfirmedFutureByDoctor(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]AppointmentDetail, error) {
	return r.listDetails(ctx, `
		WHERE s.doctor_id = $1
		  AND a.status = 'confirmed'
		  AND s.slot_date >= $2
		ORDER BY s.slot_date, s.start_time
	`, doctorID, StartOfDay(from))
}

// Maintenance

func (r *PgRepository) DeleteStaleUnbookedSlots(ctx context.Context, before time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE is_booked = false
		  AND slot_date < $1
	`, StartOfDay(before))
	if err != nil {
		return 0, fmt.Errorf("delete stale slots: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *PgRepository) ListMissedConfirmed(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.slot_id, a.patient_id, a.status, a.notes, a.visit_type, a.created_at, a.updated_at
		FROM appointments a
		JOIN slots s ON s.id = a.slot_id
		WHERE a.status = 'confirmed'
		  AND s.slot_date < $1
	`, StartOfDay(before))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}
