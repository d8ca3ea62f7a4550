package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaflow/clinic-scheduling/internal/db"
)

type seededPlan struct {
	id   uuid.UUID
	code string
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	plans, err := seedPlans(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed plans: %v", err)
	}

	if err := seedTenants(context.Background(), pool, plans, 5); err != nil {
		log.Fatalf("seed tenants: %v", err)
	}

	log.Println("seed complete")
}

func seedPlans(ctx context.Context, pool *pgxpool.Pool) ([]seededPlan, error) {
	log.Println("seeding plans")

	type planDef struct {
		code        string
		name        string
		maxAdmins   int
		maxDoctors  int
		maxPatients int
	}
	defs := []planDef{
		{"free", "Free", 1, 3, 15},
		{"starter", "Starter", 3, 10, 500},
		{"clinic", "Clinic", 10, 50, 10000},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	plans := make([]seededPlan, 0, len(defs))
	for _, d := range defs {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO plans (id, code, name, max_admins, max_doctors, max_patients)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				max_admins = EXCLUDED.max_admins,
				max_doctors = EXCLUDED.max_doctors,
				max_patients = EXCLUDED.max_patients
			RETURNING id
		`, uuid.New(), d.code, d.name, d.maxAdmins, d.maxDoctors, d.maxPatients).Scan(&id)
		if err != nil {
			return nil, err
		}
		plans = append(plans, seededPlan{id: id, code: d.code})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("plans seeded")
	return plans, nil
}

func seedTenants(ctx context.Context, pool *pgxpool.Pool, plans []seededPlan, count int) error {
	log.Printf("seeding %d tenants", count)

	specialties := []string{
		"General Dentistry",
		"Orthodontics",
		"Endodontics",
		"Periodontics",
		"Oral Surgery",
		"Pediatric Dentistry",
		"Prosthodontics",
	}

	for i := 0; i < count; i++ {
		plan := plans[gofakeit.Number(0, len(plans)-1)]

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		tenantID := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO tenants (id, name) VALUES ($1, $2)
		`, tenantID, gofakeit.Company()+" Dental")
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO subscriptions (id, tenant_id, plan_id, status)
			VALUES ($1, $2, $3, 'active')
		`, uuid.New(), tenantID, plan.id)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, tenant_id, email, full_name, role)
			VALUES ($1, $2, $3, $4, 'OWNER')
		`, uuid.New(), tenantID, gofakeit.Email(), gofakeit.Name())
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		doctorCount := gofakeit.Number(1, 3)
		for d := 0; d < doctorCount; d++ {
			spec := specialties[gofakeit.Number(0, len(specialties)-1)]
			_, err = tx.Exec(ctx, `
				INSERT INTO doctors (id, tenant_id, full_name, email, license_number, specialty)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.New(), tenantID, "Dr. "+gofakeit.Name(), gofakeit.Email(),
				gofakeit.Numerify("LIC-######"), spec)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		patientCount := gofakeit.Number(5, 12)
		for p := 0; p < patientCount; p++ {
			email := gofakeit.Email()
			phone := gofakeit.Phone()
			_, err = tx.Exec(ctx, `
				INSERT INTO patients (id, tenant_id, full_name, email, phone)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New(), tenantID, gofakeit.Name(), email, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("tenant seeded: %d/%d plan=%s doctors=%d patients=%d",
			i+1, count, plan.code, doctorCount, patientCount)
	}

	log.Println("tenants seeded")
	return nil
}
