package scheduling

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// BlocksCalendar reports whether an appointment in this status occupies the
// doctor's calendar for conflict purposes. Cancelled and no-show rows do not.
func (s Status) BlocksCalendar() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// canTransition gates caller-requested status changes on update. Terminal
// states only leave through the dedicated delete/restore paths, and
// cancellation only happens through delete: a patched-in cancelled status
// would leave an active row that neither restore nor update could move.
func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if to == StatusCancelled {
		return false
	}
	switch from {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return false
	}
	return true
}

type Appointment struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Status          Status
	Type            *string
	Notes           *string
	PrivateNotes    *string
	Cost            *decimal.Decimal
	IsPaid          bool
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Doctor and Patient are the minimal shapes the scheduler needs: referenced
// and validated, never owned. Full records live in the directory package.
type Doctor struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	FullName string
	Active   bool
}

type Patient struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	FullName string
	Active   bool
}

type EventLog struct {
	ID            int64
	TenantID      uuid.UUID
	AppointmentID *uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// CreateInput carries caller intent for a new appointment. IsPaid is payment
// intent only: the persisted row always starts unpaid and the ledger decides.
type CreateInput struct {
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes *int
	Status          *Status
	Type            *string
	Notes           *string
	PrivateNotes    *string
	Cost            *decimal.Decimal
	IsPaid          bool
}

// Patch is a partial update; nil fields are left untouched. There is
// deliberately no IsPaid field.
type Patch struct {
	PatientID       *uuid.UUID
	DoctorID        *uuid.UUID
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes *int
	Status          *Status
	Type            *string
	Notes           *string
	PrivateNotes    *string
	Cost            *decimal.Decimal
}

type ListFilter struct {
	DoctorID        *uuid.UUID
	PatientID       *uuid.UUID
	Status          *Status
	From            *time.Time
	To              *time.Time
	IncludeInactive bool
	Limit           int
	Offset          int
}

func durationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
