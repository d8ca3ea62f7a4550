package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("appointment not found")
	ErrInvalidTenant           = errors.New("tenant id is required")
	ErrInvalidTimeRange        = errors.New("start time must be before end time")
	ErrInvalidDuration         = errors.New("duration is inconsistent with the interval")
	ErrInvalidPatient          = errors.New("patient not found or inactive")
	ErrInvalidDoctor           = errors.New("doctor not found or inactive")
	ErrTimeConflict            = errors.New("time conflicts with an existing appointment")
	ErrAlreadyInactive         = errors.New("appointment is already inactive")
	ErrAlreadyActive           = errors.New("appointment is already active")
	ErrInvalidStatus           = errors.New("invalid appointment status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// TimeConflictError carries the appointment that blocks the requested
// interval. errors.Is(err, ErrTimeConflict) matches it.
type TimeConflictError struct {
	Conflicting *Appointment
}

func (e *TimeConflictError) Error() string {
	if e.Conflicting == nil {
		return ErrTimeConflict.Error()
	}
	return fmt.Sprintf("time conflicts with appointment %s (%s – %s)",
		e.Conflicting.ID,
		e.Conflicting.StartTime.Format("2006-01-02 15:04"),
		e.Conflicting.EndTime.Format("15:04"),
	)
}

func (e *TimeConflictError) Unwrap() error { return ErrTimeConflict }
