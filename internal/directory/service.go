package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dentaflow/clinic-scheduling/internal/capacity"
)

// Service manages the clinic directory: doctors, patients and staff users.
// Creation and restore are capacity-gated; the count and the write always
// share one transaction, serialized per tenant by a tenant row lock, so two
// concurrent creations cannot both slip under the plan limit.
type Service struct {
	repo     Repository
	fallback capacity.Plan
	logger   *slog.Logger
}

func NewService(repo Repository, fallback capacity.Plan, logger *slog.Logger) *Service {
	return &Service{repo: repo, fallback: fallback, logger: logger}
}

func (s *Service) policyFor(r Repository) *capacity.Policy {
	return capacity.NewPolicy(r, s.fallback)
}

// Doctors

func (s *Service) CreateDoctor(ctx context.Context, tenantID uuid.UUID, in CreateDoctorInput) (*Doctor, error) {
	if strings.TrimSpace(in.FullName) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.LicenseNumber) == "" {
		return nil, ErrInvalidInput
	}

	doctor := &Doctor{
		ID:            uuid.New(),
		TenantID:      tenantID,
		FullName:      in.FullName,
		Email:         in.Email,
		LicenseNumber: in.LicenseNumber,
		Specialty:     in.Specialty,
	}

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		if err := r.LockTenant(txCtx, tenantID); err != nil {
			return err
		}

		check, err := s.policyFor(r).CheckDoctorLimit(txCtx, tenantID)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return capacity.FromCheck("doctors", check)
		}

		if err := r.CreateDoctor(txCtx, doctor); err != nil {
			return fmt.Errorf("create doctor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("doctor created", "tenant_id", tenantID, "doctor_id", doctor.ID)
	return doctor, nil
}

func (s *Service) GetDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, tenantID, id)
}

func (s *Service) ListDoctors(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx, tenantID, includeInactive)
}

func (s *Service) DeleteDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error) {
	var deleted *Doctor

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		doctor, err := r.GetDoctor(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if !doctor.Active {
			return ErrAlreadyInactive
		}

		deleted, err = r.SetDoctorActive(txCtx, tenantID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// RestoreDoctor re-runs the plan limit check: restoring must not silently
// bypass the cap that blocks a fresh create.
func (s *Service) RestoreDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error) {
	var restored *Doctor

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		if err := r.LockTenant(txCtx, tenantID); err != nil {
			return err
		}

		doctor, err := r.GetDoctor(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if doctor.Active {
			return ErrAlreadyActive
		}

		check, err := s.policyFor(r).CheckDoctorLimit(txCtx, tenantID)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return capacity.FromCheck("doctors", check)
		}

		restored, err = r.SetDoctorActive(txCtx, tenantID, id, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// Patients

func (s *Service) CreatePatient(ctx context.Context, tenantID uuid.UUID, in CreatePatientInput) (*Patient, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return nil, ErrInvalidInput
	}

	patient := &Patient{
		ID:       uuid.New(),
		TenantID: tenantID,
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
	}

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		if err := r.LockTenant(txCtx, tenantID); err != nil {
			return err
		}

		check, err := s.policyFor(r).CheckPatientLimit(txCtx, tenantID)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return capacity.FromCheck("patients", check)
		}

		if err := r.CreatePatient(txCtx, patient); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatient(ctx, tenantID, id)
}

func (s *Service) ListPatients(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]Patient, error) {
	return s.repo.ListPatients(ctx, tenantID, includeInactive)
}

func (s *Service) DeletePatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	var deleted *Patient

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		patient, err := r.GetPatient(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if !patient.Active {
			return ErrAlreadyInactive
		}

		deleted, err = r.SetPatientActive(txCtx, tenantID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Service) RestorePatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	var restored *Patient

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		if err := r.LockTenant(txCtx, tenantID); err != nil {
			return err
		}

		patient, err := r.GetPatient(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if patient.Active {
			return ErrAlreadyActive
		}

		check, err := s.policyFor(r).CheckPatientLimit(txCtx, tenantID)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return capacity.FromCheck("patients", check)
		}

		restored, err = r.SetPatientActive(txCtx, tenantID, id, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// Staff users

func (s *Service) CreateUser(ctx context.Context, tenantID uuid.UUID, in CreateUserInput) (*User, error) {
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.FullName) == "" {
		return nil, ErrInvalidInput
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidInput
	}

	user := &User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    in.Email,
		FullName: in.FullName,
		Role:     in.Role,
	}

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		if err := r.LockTenant(txCtx, tenantID); err != nil {
			return err
		}

		check, err := s.policyFor(r).CheckRoleLimitForNewUser(txCtx, tenantID, in.Role)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return capacity.FromCheck("admin accounts", check)
		}

		if err := r.CreateUser(txCtx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, tenantID, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, tenantID, id)
}

func (s *Service) ListUsers(ctx context.Context, tenantID uuid.UUID) ([]User, error) {
	return s.repo.ListUsers(ctx, tenantID)
}

func (s *Service) DeleteUser(ctx context.Context, tenantID, id uuid.UUID) (*User, error) {
	var deleted *User

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		user, err := r.GetUser(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if !user.Active {
			return ErrAlreadyInactive
		}

		deleted, err = r.SetUserActive(txCtx, tenantID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// RestoreUser re-runs the role limit check with the user's own role, so
// reactivating an admin cannot push the tenant past its admin cap.
func (s *Service) RestoreUser(ctx context.Context, tenantID, id uuid.UUID) (*User, error) {
	var restored *User

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		if err := r.LockTenant(txCtx, tenantID); err != nil {
			return err
		}

		user, err := r.GetUser(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if user.Active {
			return ErrAlreadyActive
		}

		check, err := s.policyFor(r).CheckRoleLimitForNewUser(txCtx, tenantID, user.Role)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return capacity.FromCheck("admin accounts", check)
		}

		restored, err = r.SetUserActive(txCtx, tenantID, id, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}
