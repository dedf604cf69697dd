package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Safwan169/emr-backend/internal/config"
	"github.com/Safwan169/emr-backend/internal/db"
)

// simulate hammers the booking endpoint to demonstrate that a contended slot
// admits exactly one appointment. For each target slot it fires a burst of
// concurrent bookings from distinct patients and tallies the outcomes.
type SimConfig struct {
	APIBaseURL  string
	Slots       int // how many free slots to contend on
	Burst       int // concurrent bookings per slot
	PostgresDSN string
}

type slotTarget struct {
	SlotID   uuid.UUID
	DoctorID uuid.UUID
}

type tally struct {
	created  int64
	conflict int64
	other    int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	targets, patients, err := loadTargets(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load targets: %v", err)
	}
	log.Printf("loaded %d free slots and %d patients", len(targets), len(patients))

	client := &http.Client{Timeout: 10 * time.Second}

	// A slot may end with zero bookings when every attempt trips the
	// one-appointment-per-doctor-per-day rule, but never with more than one.
	var totals tally
	overbooked := 0
	for i, target := range targets {
		t := contend(ctx, client, cfg, target, patients)
		atomic.AddInt64(&totals.created, t.created)
		atomic.AddInt64(&totals.conflict, t.conflict)
		atomic.AddInt64(&totals.other, t.other)

		if t.created > 1 {
			overbooked++
			log.Printf("slot %d/%d OVERBOOKED: created=%d conflict=%d other=%d",
				i+1, len(targets), t.created, t.conflict, t.other)
		}
	}

	fmt.Println()
	fmt.Printf("slots contended:   %d\n", len(targets))
	fmt.Printf("burst per slot:    %d\n", cfg.Burst)
	fmt.Printf("bookings created:  %d\n", totals.created)
	fmt.Printf("conflicts:         %d\n", totals.conflict)
	fmt.Printf("other responses:   %d\n", totals.other)

	if overbooked == 0 {
		fmt.Println("result: OK, no slot admitted more than one booking")
	} else {
		fmt.Printf("result: FAILED, %d slots admitted multiple bookings\n", overbooked)
		os.Exit(1)
	}
}

// contend fires cfg.Burst concurrent bookings at one slot, each from a
// different random patient.
func contend(ctx context.Context, client *http.Client, cfg SimConfig, target slotTarget, patients []uuid.UUID) tally {
	var t tally
	var wg sync.WaitGroup

	for i := 0; i < cfg.Burst; i++ {
		wg.Add(1)
		go func(attempt int) {
			defer wg.Done()

			patientID := patients[rand.Intn(len(patients))]
			body, _ := json.Marshal(map[string]string{
				"patient_id": patientID.String(),
				"doctor_id":  target.DoctorID.String(),
				"slot_id":    target.SlotID.String(),
				"notes":      fmt.Sprintf("load test attempt %d", attempt),
			})

			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				cfg.APIBaseURL+"/appointments", bytes.NewReader(body))
			if err != nil {
				atomic.AddInt64(&t.other, 1)
				return
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				atomic.AddInt64(&t.other, 1)
				return
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				atomic.AddInt64(&t.created, 1)
			case http.StatusConflict:
				atomic.AddInt64(&t.conflict, 1)
			default:
				atomic.AddInt64(&t.other, 1)
			}
		}(i)
	}

	wg.Wait()
	return t
}

func loadTargets(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) ([]slotTarget, []uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, doctor_id FROM slots
		WHERE is_booked = false AND slot_date > CURRENT_DATE
		ORDER BY slot_date, start_time
		LIMIT $1
	`, cfg.Slots)
	if err != nil {
		return nil, nil, fmt.Errorf("load free slots: %w", err)
	}
	defer rows.Close()

	var targets []slotTarget
	for rows.Next() {
		var t slotTarget
		if err := rows.Scan(&t.SlotID, &t.DoctorID); err != nil {
			return nil, nil, err
		}
		targets = append(targets, t)
	}

	patientRows, err := pool.Query(ctx, `
		SELECT id FROM users WHERE role = 'patient' LIMIT 500
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load patients: %w", err)
	}
	defer patientRows.Close()

	var patients []uuid.UUID
	for patientRows.Next() {
		var id uuid.UUID
		if err := patientRows.Scan(&id); err != nil {
			return nil, nil, err
		}
		patients = append(patients, id)
	}

	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("no free future slots, run seed first")
	}
	if len(patients) == 0 {
		return nil, nil, fmt.Errorf("no patients, run seed first")
	}
	return targets, patients, nil
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Slots:       getInt("SIM_SLOTS", 50),
		Burst:       getInt("SIM_BURST", 20),
		PostgresDSN: baseCfg.PostgresDSN,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
