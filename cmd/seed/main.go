package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Safwan169/emr-backend/internal/db"
	redisclient "github.com/Safwan169/emr-backend/internal/redis"
	"github.com/Safwan169/emr-backend/internal/scheduling"
)

// seed populates a development database: doctors and patients with fake
// identities, plus a weekly availability per doctor so slots exist to book
// against.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedUsers(ctx, pool, scheduling.RoleDoctor, 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if _, err := seedUsers(ctx, pool, scheduling.RolePatient, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	if err := seedAvailability(ctx, pool, doctors); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, role scheduling.Role, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d users with role=%s", count, role)

	ids := make([]uuid.UUID, 0, count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, first_name, last_name, email, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(), string(role))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedAvailability saves a weekly template per doctor through the service, so
// the same materialization path used by the API fills the 30-day slot window.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID) error {
	svc := scheduling.NewService(scheduling.NewPgRepository(pool), redisclient.NoopLocker{}, zap.NewNop())

	windows := []struct {
		start, end string
		duration   int
	}{
		{"09:00", "17:00", 30},
		{"08:00", "12:00", 20},
		{"13:00", "18:00", 15},
		{"10:00", "16:00", 45},
	}
	weekdayMenu := [][]string{
		{"monday", "tuesday", "wednesday", "thursday", "friday"},
		{"monday", "wednesday", "friday"},
		{"tuesday", "thursday", "saturday"},
		{"sunday", "monday", "tuesday", "wednesday"},
	}

	totalSlots := 0
	for i, doctorID := range doctors {
		win := windows[i%len(windows)]
		result, err := svc.SaveAvailability(ctx, scheduling.AvailabilityInput{
			DoctorID:         doctorID,
			Weekdays:         weekdayMenu[i%len(weekdayMenu)],
			StartTime:        win.start,
			EndTime:          win.end,
			SlotDurationMins: win.duration,
		})
		if err != nil {
			return err
		}
		totalSlots += result.CreatedSlots
	}

	log.Printf("availability seeded for %d doctors, %d slots created", len(doctors), totalSlots)
	return nil
}
