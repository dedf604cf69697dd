package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the scheduling tables if they are missing. The statements
// are idempotent so every binary can run this at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         uuid PRIMARY KEY,
		first_name text NOT NULL,
		last_name  text NOT NULL,
		email      text NOT NULL,
		role       text NOT NULL CHECK (role IN ('doctor', 'patient')),
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS availability_templates (
		id                 uuid PRIMARY KEY,
		doctor_id          uuid NOT NULL UNIQUE REFERENCES users (id),
		start_time         text NOT NULL,
		end_time           text NOT NULL,
		slot_duration_mins int  NOT NULL CHECK (slot_duration_mins BETWEEN 5 AND 240),
		weekdays           text[] NOT NULL,
		created_at         timestamptz NOT NULL DEFAULT now(),
		updated_at         timestamptz NOT NULL DEFAULT now()
	)`,

	// Materialization is idempotent under (doctor_id, slot_date, start_time);
	// start_time is zero-padded HH:mm so text ordering is chronological.
	`CREATE TABLE IF NOT EXISTS slots (
		id          uuid PRIMARY KEY,
		doctor_id   uuid NOT NULL REFERENCES users (id),
		template_id uuid NOT NULL REFERENCES availability_templates (id),
		slot_date   date NOT NULL,
		start_time  text NOT NULL,
		end_time    text NOT NULL,
		is_booked   boolean NOT NULL DEFAULT false,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now(),
		UNIQUE (doctor_id, slot_date, start_time)
	)`,

	`CREATE TABLE IF NOT EXISTS appointments (
		id         uuid PRIMARY KEY,
		slot_id    uuid NOT NULL REFERENCES slots (id),
		patient_id uuid NOT NULL REFERENCES users (id),
		status     text NOT NULL CHECK (status IN ('confirmed', 'cancelled', 'completed')),
		notes      text NOT NULL DEFAULT '',
		visit_type text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,

	// At most one live appointment per slot.
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_live_slot_idx
		ON appointments (slot_id)
		WHERE status <> 'cancelled'`,

	`CREATE INDEX IF NOT EXISTS slots_doctor_date_idx
		ON slots (doctor_id, slot_date)`,

	`CREATE INDEX IF NOT EXISTS appointments_patient_status_idx
		ON appointments (patient_id, status)`,
}
