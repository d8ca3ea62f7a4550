package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaflow/clinic-scheduling/internal/capacity"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db   querier
	pool *pgxpool.Pool // nil when db is a transaction
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool, pool: pool}
}

func (r *PgRepository) InTx(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &PgRepository{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgRepository) LockTenant(ctx context.Context, tenantID uuid.UUID) error {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT id FROM tenants WHERE id = $1 AND active FOR UPDATE
	`, tenantID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("lock tenant: %w", err)
	}
	return nil
}

// capacity.Repository

func (r *PgRepository) ActivePlan(ctx context.Context, tenantID uuid.UUID) (*capacity.Plan, error) {
	var p capacity.Plan
	err := r.db.QueryRow(ctx, `
		SELECT p.id, p.code, p.name, p.max_admins, p.max_doctors, p.max_patients
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.tenant_id = $1
		  AND s.status = 'active'
		  AND (s.expires_at IS NULL OR s.expires_at > now())
	`, tenantID).Scan(&p.ID, &p.Code, &p.Name, &p.MaxAdmins, &p.MaxDoctors, &p.MaxPatients)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) CountAdmins(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE tenant_id = $1 AND active AND role = ANY($2)
	`, tenantID, roleStrings(capacity.AdminRoles())).Scan(&n)
	return n, err
}

func (r *PgRepository) CountActiveDoctors(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM doctors WHERE tenant_id = $1 AND active
	`, tenantID).Scan(&n)
	return n, err
}

func (r *PgRepository) CountActivePatients(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM patients WHERE tenant_id = $1 AND active
	`, tenantID).Scan(&n)
	return n, err
}

func roleStrings(roles []capacity.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// Doctors

const doctorCols = `id, tenant_id, full_name, email, license_number, specialty, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID, &d.TenantID, &d.FullName, &d.Email, &d.LicenseNumber,
		&d.Specialty, &d.Active, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO doctors (id, tenant_id, full_name, email, license_number, specialty, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, now(), now())
		RETURNING created_at, updated_at
	`, d.ID, d.TenantID, d.FullName, d.Email, d.LicenseNumber, d.Specialty)
	if err := row.Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return mapUniqueViolation(err)
	}
	d.Active = true
	return nil
}

func (r *PgRepository) GetDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+doctorCols+` FROM doctors WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+doctorCols+` FROM doctors
		WHERE tenant_id = $1 AND (active OR $2)
		ORDER BY full_name
	`, tenantID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) SetDoctorActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE doctors
		SET active = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+doctorCols+`
	`, tenantID, id, active)
	return scanDoctor(row)
}

// Patients

const patientCols = `id, tenant_id, full_name, email, phone, active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, tenant_id, full_name, email, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now())
		RETURNING created_at, updated_at
	`, p.ID, p.TenantID, p.FullName, p.Email, p.Phone)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return mapUniqueViolation(err)
	}
	p.Active = true
	return nil
}

func (r *PgRepository) GetPatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientCols+` FROM patients WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]Patient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE tenant_id = $1 AND (active OR $2)
		ORDER BY full_name
	`, tenantID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) SetPatientActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET active = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+patientCols+`
	`, tenantID, id, active)
	return scanPatient(row)
}

// Users

const userCols = `id, tenant_id, email, full_name, role, active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgRepository) CreateUser(ctx context.Context, u *User) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, tenant_id, email, full_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now())
		RETURNING created_at, updated_at
	`, u.ID, u.TenantID, u.Email, u.FullName, u.Role)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapUniqueViolation(err)
	}
	u.Active = true
	return nil
}

func (r *PgRepository) GetUser(ctx context.Context, tenantID, id uuid.UUID) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userCols+` FROM users WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanUser(row)
}

func (r *PgRepository) ListUsers(ctx context.Context, tenantID uuid.UUID) ([]User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userCols+` FROM users WHERE tenant_id = $1 ORDER BY full_name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

func (r *PgRepository) SetUserActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET active = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+userCols+`
	`, tenantID, id, active)
	return scanUser(row)
}

// mapUniqueViolation turns unique-index violations into the duplicate
// errors the service surfaces; anything else passes through unchanged.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		switch pgErr.ConstraintName {
		case "doctors_tenant_email", "users_tenant_email":
			return ErrDuplicateEmail
		case "doctors_tenant_license":
			return ErrDuplicateLicense
		}
	}
	return err
}
