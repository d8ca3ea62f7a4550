package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/dentaflow/clinic-scheduling/internal/capacity"
)

// Repository contains all DB interactions for the clinic directory. It also
// implements capacity.Repository so the limit policy can run against the
// same transaction that performs the gated write.
type Repository interface {
	capacity.Repository

	InTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	// LockTenant takes a row lock on the tenant, serializing all
	// capacity-relevant writes for it. Returns ErrTenantNotFound for an
	// unknown or inactive tenant.
	LockTenant(ctx context.Context, tenantID uuid.UUID) error

	CreateDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]Doctor, error)
	SetDoctorActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*Doctor, error)

	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error)
	ListPatients(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]Patient, error)
	SetPatientActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*Patient, error)

	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, tenantID, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, tenantID uuid.UUID) ([]User, error)
	SetUserActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*User, error)
}
