package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dentaflow/clinic-scheduling/internal/directory"
	"github.com/dentaflow/clinic-scheduling/internal/scheduling"
)

type CreateAppointmentRequest struct {
	PatientID       string           `json:"patient_id"`
	DoctorID        string           `json:"doctor_id"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	Status          *string          `json:"status,omitempty"`
	Type            *string          `json:"type,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	PrivateNotes    *string          `json:"private_notes,omitempty"`
	Cost            *decimal.Decimal `json:"cost,omitempty"`
	IsPaid          bool             `json:"is_paid,omitempty"` // payment intent only
}

type UpdateAppointmentRequest struct {
	PatientID       *string          `json:"patient_id,omitempty"`
	DoctorID        *string          `json:"doctor_id,omitempty"`
	StartTime       *time.Time       `json:"start_time,omitempty"`
	EndTime         *time.Time       `json:"end_time,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	Status          *string          `json:"status,omitempty"`
	Type            *string          `json:"type,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	PrivateNotes    *string          `json:"private_notes,omitempty"`
	Cost            *decimal.Decimal `json:"cost,omitempty"`
}

type CompleteAppointmentRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID        `json:"id"`
	PatientID       uuid.UUID        `json:"patient_id"`
	DoctorID        uuid.UUID        `json:"doctor_id"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	DurationMinutes int              `json:"duration_minutes"`
	Status          string           `json:"status"`
	Type            *string          `json:"type,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	PrivateNotes    *string          `json:"private_notes,omitempty"`
	Cost            *decimal.Decimal `json:"cost,omitempty"`
	IsPaid          bool             `json:"is_paid"`
	Active          bool             `json:"active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Type:            a.Type,
		Notes:           a.Notes,
		PrivateNotes:    a.PrivateNotes,
		Cost:            a.Cost,
		IsPaid:          a.IsPaid,
		Active:          a.Active,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type CreateDoctorRequest struct {
	FullName      string  `json:"full_name"`
	Email         string  `json:"email"`
	LicenseNumber string  `json:"license_number"`
	Specialty     *string `json:"specialty,omitempty"`
}

type DoctorResponse struct {
	ID            uuid.UUID `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	LicenseNumber string    `json:"license_number"`
	Specialty     *string   `json:"specialty,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

func toDoctorResponse(d *directory.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:            d.ID,
		FullName:      d.FullName,
		Email:         d.Email,
		LicenseNumber: d.LicenseNumber,
		Specialty:     d.Specialty,
		Active:        d.Active,
		CreatedAt:     d.CreatedAt,
	}
}

type CreatePatientRequest struct {
	FullName string  `json:"full_name"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toPatientResponse(p *directory.Patient) PatientResponse {
	return PatientResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Phone:     p.Phone,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *directory.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type StatusCountsResponse struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Counts map[string]int `json:"counts"`
}

type ErrorResponse struct {
	Error         string  `json:"error"`
	Details       string  `json:"details,omitempty"`
	CurrentCount  *int    `json:"current_count,omitempty"`
	Limit         *int    `json:"limit,omitempty"`
	ConflictingID *string `json:"conflicting_id,omitempty"`
}
