package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	redisclient "github.com/dentaflow/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentUpdated   = "APPOINTMENT_UPDATED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentRestored  = "APPOINTMENT_RESTORED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
)

// PaymentRecorder is the billing collaborator. It owns the payment ledger
// and the authoritative paid status; the scheduler only triggers it.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, tenantID, appointmentID uuid.UUID, amount decimal.Decimal) error
}

// Service is the appointment lifecycle manager. Each mutating operation
// runs its conflict check and write inside a per-doctor lock plus one
// transaction; the DB exclusion constraint backs both up.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	payments PaymentRecorder
	logger   *slog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, payments PaymentRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		payments: payments,
		logger:   logger,
	}
}

// Create books a new appointment. The caller's payment intent (IsPaid with a
// positive cost) is handed to the billing collaborator after the write
// commits; its failure is logged, never surfaced, since the appointment
// already exists.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*Appointment, error) {
	if !in.StartTime.Before(in.EndTime) {
		return nil, ErrInvalidTimeRange
	}

	status := StatusScheduled
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	// The interval is authoritative; a supplied duration is only accepted
	// when it agrees with it.
	duration := durationMinutes(in.StartTime, in.EndTime)
	if in.DurationMinutes != nil && *in.DurationMinutes != duration {
		return nil, ErrInvalidDuration
	}

	appt := &Appointment{
		ID:              uuid.New(),
		TenantID:        tenantID,
		PatientID:       in.PatientID,
		DoctorID:        in.DoctorID,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationMinutes: duration,
		Status:          status,
		Type:            in.Type,
		Notes:           in.Notes,
		PrivateNotes:    in.PrivateNotes,
		Cost:            in.Cost,
		IsPaid:          false, // ledger-owned, never caller-set
		Active:          true,
	}

	err := s.locker.WithDoctorLock(ctx, tenantID, in.DoctorID, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(txCtx context.Context, r Repository) error {
			if _, err := r.GetActivePatient(txCtx, tenantID, in.PatientID); err != nil {
				return err
			}
			if _, err := r.GetActiveDoctor(txCtx, tenantID, in.DoctorID); err != nil {
				return err
			}

			conflicting, err := NewDetector(r).Check(txCtx, tenantID, in.DoctorID, in.StartTime, in.EndTime, uuid.Nil)
			if err != nil {
				return fmt.Errorf("conflict check: %w", err)
			}
			if conflicting != nil {
				return &TimeConflictError{Conflicting: conflicting}
			}

			if err := r.CreateAppointment(txCtx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}

			return s.logEvent(txCtx, r, appt, EventAppointmentCreated, map[string]any{
				"doctor_id":  appt.DoctorID.String(),
				"patient_id": appt.PatientID.String(),
				"start_time": appt.StartTime,
				"end_time":   appt.EndTime,
			})
		})
	})
	if err != nil {
		return nil, err
	}

	if in.IsPaid && in.Cost != nil && in.Cost.IsPositive() {
		if err := s.payments.RecordPayment(ctx, tenantID, appt.ID, *in.Cost); err != nil {
			s.logger.Warn("payment record failed after appointment create",
				"appointment_id", appt.ID,
				"tenant_id", tenantID,
				"err", err,
			)
		} else if fresh, err := s.repo.GetAppointment(ctx, tenantID, appt.ID); err == nil {
			appt = fresh
		}
	}

	return appt, nil
}

// Update applies a partial mutation, re-validating the interval, the
// referenced entities (only when they change) and the doctor's calendar
// (excluding the record itself) whenever time or doctor moves.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, p Patch) (*Appointment, error) {
	current, err := s.repo.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	effDoctor := current.DoctorID
	if p.DoctorID != nil {
		effDoctor = *p.DoctorID
	}

	var updated *Appointment

	err = s.locker.WithDoctorLock(ctx, tenantID, effDoctor, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(txCtx context.Context, r Repository) error {
			appt, err := r.GetAppointment(txCtx, tenantID, id)
			if err != nil {
				return err
			}
			if !appt.Active {
				return ErrAlreadyInactive
			}

			start, end := appt.StartTime, appt.EndTime
			if p.StartTime != nil {
				start = *p.StartTime
			}
			if p.EndTime != nil {
				end = *p.EndTime
			}
			if !start.Before(end) {
				return ErrInvalidTimeRange
			}
			timeChanged := !start.Equal(appt.StartTime) || !end.Equal(appt.EndTime)

			if p.PatientID != nil && *p.PatientID != appt.PatientID {
				if _, err := r.GetActivePatient(txCtx, tenantID, *p.PatientID); err != nil {
					return err
				}
				appt.PatientID = *p.PatientID
			}

			doctorChanged := p.DoctorID != nil && *p.DoctorID != appt.DoctorID
			if doctorChanged {
				if _, err := r.GetActiveDoctor(txCtx, tenantID, *p.DoctorID); err != nil {
					return err
				}
				appt.DoctorID = *p.DoctorID
			}

			if p.Status != nil {
				if !p.Status.Valid() {
					return ErrInvalidStatus
				}
				if !canTransition(appt.Status, *p.Status) {
					return ErrInvalidStatusTransition
				}
				appt.Status = *p.Status
			}

			if timeChanged || doctorChanged {
				conflicting, err := NewDetector(r).Check(txCtx, tenantID, appt.DoctorID, start, end, appt.ID)
				if err != nil {
					return fmt.Errorf("conflict check: %w", err)
				}
				if conflicting != nil {
					return &TimeConflictError{Conflicting: conflicting}
				}
			}

			appt.StartTime = start
			appt.EndTime = end
			if p.DurationMinutes != nil && *p.DurationMinutes != durationMinutes(start, end) {
				return ErrInvalidDuration
			}
			if timeChanged || p.DurationMinutes != nil {
				appt.DurationMinutes = durationMinutes(start, end)
			}

			if p.Type != nil {
				appt.Type = p.Type
			}
			if p.Notes != nil {
				appt.Notes = p.Notes
			}
			if p.PrivateNotes != nil {
				appt.PrivateNotes = p.PrivateNotes
			}
			if p.Cost != nil {
				appt.Cost = p.Cost
			}

			if err := r.UpdateAppointment(txCtx, appt); err != nil {
				return fmt.Errorf("update appointment: %w", err)
			}

			updated = appt
			return s.logEvent(txCtx, r, appt, EventAppointmentUpdated, map[string]any{
				"time_changed":   timeChanged,
				"doctor_changed": doctorChanged,
			})
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete soft-deletes: the record stays restorable, the calendar slot frees
// up. Deleting twice is rejected, never applied twice.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	var deleted *Appointment

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		appt, err := r.GetAppointment(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if !appt.Active {
			return ErrAlreadyInactive
		}

		appt.Active = false
		appt.Status = StatusCancelled

		if err := r.UpdateAppointment(txCtx, appt); err != nil {
			return fmt.Errorf("soft-delete appointment: %w", err)
		}

		deleted = appt
		return s.logEvent(txCtx, r, appt, EventAppointmentCancelled, nil)
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

// Restore reactivates a soft-deleted appointment, re-validating the
// doctor's calendar first: time that was free when the record was deleted
// may be taken now.
func (s *Service) Restore(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	current, err := s.repo.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	var restored *Appointment

	err = s.locker.WithDoctorLock(ctx, tenantID, current.DoctorID, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(txCtx context.Context, r Repository) error {
			appt, err := r.GetAppointment(txCtx, tenantID, id)
			if err != nil {
				return err
			}
			if appt.Active {
				return ErrAlreadyActive
			}

			conflicting, err := NewDetector(r).Check(txCtx, tenantID, appt.DoctorID, appt.StartTime, appt.EndTime, appt.ID)
			if err != nil {
				return fmt.Errorf("conflict check: %w", err)
			}
			if conflicting != nil {
				return &TimeConflictError{Conflicting: conflicting}
			}

			appt.Active = true
			appt.Status = StatusScheduled

			if err := r.UpdateAppointment(txCtx, appt); err != nil {
				return fmt.Errorf("restore appointment: %w", err)
			}

			restored = appt
			return s.logEvent(txCtx, r, appt, EventAppointmentRestored, nil)
		})
	})
	if err != nil {
		return nil, err
	}

	return restored, nil
}

// MarkDone completes an appointment, optionally merging visit notes.
func (s *Service) MarkDone(ctx context.Context, tenantID, id uuid.UUID, notes *string) (*Appointment, error) {
	var done *Appointment

	err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
		appt, err := r.GetAppointment(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if !appt.Active {
			return ErrAlreadyInactive
		}

		appt.Status = StatusCompleted
		if notes != nil && *notes != "" {
			merged := *notes
			if appt.Notes != nil && *appt.Notes != "" {
				merged = *appt.Notes + "\n" + merged
			}
			appt.Notes = &merged
		}

		if err := r.UpdateAppointment(txCtx, appt); err != nil {
			return fmt.Errorf("complete appointment: %w", err)
		}

		done = appt
		return s.logEvent(txCtx, r, appt, EventAppointmentCompleted, nil)
	})
	if err != nil {
		return nil, err
	}

	return done, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]Appointment, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.ListAppointments(ctx, tenantID, f)
}

// StatusCounts is the thin reporting surface: appointment counts per status
// for a time window.
func (s *Service) StatusCounts(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[Status]int, error) {
	if !from.Before(to) {
		return nil, ErrInvalidTimeRange
	}
	return s.repo.CountByStatus(ctx, tenantID, from, to)
}

// SweepNoShows flags active scheduled/confirmed appointments whose end time
// passed the grace period as no-show. Called periodically by the worker.
func (s *Service) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := time.Now().Add(-grace)

	overdue, err := s.repo.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	swept := 0
	for _, appt := range overdue {
		// Status flip and audit row commit together or not at all.
		err := s.repo.InTx(ctx, func(txCtx context.Context, r Repository) error {
			updated, err := r.CompareAndSwapStatus(txCtx, appt.TenantID, appt.ID, appt.Status, StatusNoShow)
			if err != nil {
				return err
			}
			return s.logEvent(txCtx, r, updated, EventAppointmentNoShow, map[string]any{
				"reason": "sweeper",
			})
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // row moved on concurrently
			}
			s.logger.Warn("failed to flag no-show", "appointment_id", appt.ID, "err", err)
			continue
		}
		swept++
	}

	return swept, nil
}

func (s *Service) logEvent(ctx context.Context, r Repository, appt *Appointment, eventType string, payload map[string]any) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			s.logger.Warn("failed to marshal event payload", "event_type", eventType, "err", err)
			data = nil
		}
	}

	apptID := appt.ID

	return r.InsertEvent(ctx, EventLog{
		TenantID:      appt.TenantID,
		AppointmentID: &apptID,
		EventType:     eventType,
		Payload:       data,
	})
}
