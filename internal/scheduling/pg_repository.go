package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same
// repository code serves plain and transactional calls.
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

// InTx begins a transaction and hands fn a tx-scoped repository. Nested
// calls reuse the surrounding transaction.
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

	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

const apptCols = `id, tenant_id, patient_id, doctor_id, start_time, end_time,
	duration_minutes, status, appointment_type, notes, private_notes,
	cost, is_paid, active, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var cost decimal.NullDecimal

	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartTime,
		&a.EndTime,
		&a.DurationMinutes,
		&a.Status,
		&a.Type,
		&a.Notes,
		&a.PrivateNotes,
		&cost,
		&a.IsPaid,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if cost.Valid {
		a.Cost = &cost.Decimal
	}
	return &a, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func (r *PgRepository) GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]Appointment, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}

	if !f.IncludeInactive {
		conds = append(conds, "active")
	}
	if f.DoctorID != nil {
		args = append(args, *f.DoctorID)
		conds = append(conds, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("start_time < $%d", len(args)))
	}

	args = append(args, f.Limit)
	limitParam := len(args)
	args = append(args, f.Offset)
	offsetParam := len(args)

	sql := fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY start_time
		LIMIT $%d OFFSET $%d
	`, apptCols, strings.Join(conds, " AND "), limitParam, offsetParam)

	rows, err := r.db.Query(ctx, sql, args...)
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

func (r *PgRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, count(*)
		FROM appointments
		WHERE tenant_id = $1 AND active AND start_time >= $2 AND start_time < $3
		GROUP BY status
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) FindOverlapping(ctx context.Context, tenantID, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (*Appointment, error) {
	var exclude any
	if excludeID != uuid.Nil {
		exclude = excludeID
	}

	row := r.db.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE tenant_id = $1
		  AND doctor_id = $2
		  AND active
		  AND status NOT IN ('cancelled', 'no_show')
		  AND start_time < $4
		  AND end_time > $3
		  AND ($5::uuid IS NULL OR id <> $5)
		LIMIT 1
	`, tenantID, doctorID, start, end, exclude)

	a, err := scanAppointment(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (
			id, tenant_id, patient_id, doctor_id, start_time, end_time,
			duration_minutes, status, appointment_type, notes, private_notes,
			cost, is_paid, active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING created_at, updated_at
	`,
		a.ID, a.TenantID, a.PatientID, a.DoctorID, a.StartTime, a.EndTime,
		a.DurationMinutes, a.Status, a.Type, a.Notes, a.PrivateNotes,
		nullDecimal(a.Cost), a.IsPaid, a.Active,
	)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $3,
		    doctor_id = $4,
		    start_time = $5,
		    end_time = $6,
		    duration_minutes = $7,
		    status = $8,
		    appointment_type = $9,
		    notes = $10,
		    private_notes = $11,
		    cost = $12,
		    active = $13,
		    updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING updated_at
	`,
		a.TenantID, a.ID, a.PatientID, a.DoctorID, a.StartTime, a.EndTime,
		a.DurationMinutes, a.Status, a.Type, a.Notes, a.PrivateNotes,
		nullDecimal(a.Cost), a.Active,
	)
	if err := row.Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapPgError(err)
	}
	return nil
}

func (r *PgRepository) CompareAndSwapStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $4,
		    updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status = $3
		RETURNING `+apptCols+`
	`, tenantID, id, from, to)
	return scanAppointment(row)
}

func (r *PgRepository) FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE active
		  AND status IN ('scheduled', 'confirmed')
		  AND end_time < $1
	`, cutoff)
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

func (r *PgRepository) GetActiveDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, full_name, active
		FROM doctors
		WHERE tenant_id = $1 AND id = $2 AND active
	`, tenantID, id).Scan(&d.ID, &d.TenantID, &d.FullName, &d.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidDoctor
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) GetActivePatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, full_name, active
		FROM patients
		WHERE tenant_id = $1 AND id = $2 AND active
	`, tenantID, id).Scan(&p.ID, &p.TenantID, &p.FullName, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidPatient
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_events (tenant_id, appointment_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.TenantID, ev.AppointmentID, ev.EventType, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// mapPgError converts the exclusion-constraint backstop into the domain
// conflict error so a race the in-tx check missed still surfaces as a
// TIME_CONFLICT, not an internal error.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23P01 exclusion_violation
		if pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return &TimeConflictError{}
		}
	}
	return err
}
