package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentaflow/clinic-scheduling/internal/capacity"
)

type Doctor struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	FullName      string
	Email         string
	LicenseNumber string
	Specialty     *string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Patient struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	FullName  string
	Email     *string
	Phone     *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Email     string
	FullName  string
	Role      capacity.Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateDoctorInput struct {
	FullName      string
	Email         string
	LicenseNumber string
	Specialty     *string
}

type CreatePatientInput struct {
	FullName string
	Email    *string
	Phone    *string
}

type CreateUserInput struct {
	Email    string
	FullName string
	Role     capacity.Role
}
