package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the lifecycle manager.
// Every appointment lookup is tenant-scoped: a row belonging to another
// tenant behaves exactly like a missing row.
type Repository interface {
	// InTx runs fn against a transaction-scoped copy of the repository.
	// The validate-then-write sequence of every mutating operation runs
	// inside one such transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]Appointment, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[Status]int, error)

	// FindOverlapping returns some active, calendar-blocking appointment of
	// the doctor whose [start, end) interval overlaps the candidate one, or
	// nil. excludeID (uuid.Nil to disable) skips the record being moved.
	FindOverlapping(ctx context.Context, tenantID, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (*Appointment, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment) error

	// CompareAndSwapStatus transitions status only when the row still holds
	// the expected one; returns ErrNotFound when the row moved on.
	CompareAndSwapStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (*Appointment, error)

	// FindOverdue lists active scheduled/confirmed appointments that ended
	// before cutoff. Used by the no-show sweeper.
	FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// Referenced entities, active rows only.
	GetActiveDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error)
	GetActivePatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
