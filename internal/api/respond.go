package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dentaflow/clinic-scheduling/internal/capacity"
	"github.com/dentaflow/clinic-scheduling/internal/directory"
	redisclient "github.com/dentaflow/clinic-scheduling/internal/redis"
	"github.com/dentaflow/clinic-scheduling/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps business-rule violations onto HTTP statuses.
// Cross-tenant reads surface as not_found so record existence never leaks.
func writeDomainError(w http.ResponseWriter, err error) {
	var planErr *capacity.PlanLimitError
	var conflictErr *scheduling.TimeConflictError

	switch {
	case errors.Is(err, scheduling.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, directory.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.As(err, &planErr):
		writeJSON(w, http.StatusForbidden, ErrorResponse{
			Error:        "plan_limit_exceeded",
			Details:      planErr.Error(),
			CurrentCount: &planErr.Current,
			Limit:        &planErr.Limit,
		})

	case errors.As(err, &conflictErr):
		resp := ErrorResponse{Error: "time_conflict", Details: conflictErr.Error()}
		if conflictErr.Conflicting != nil {
			id := conflictErr.Conflicting.ID.String()
			resp.ConflictingID = &id
		}
		writeJSON(w, http.StatusConflict, resp)

	case errors.Is(err, scheduling.ErrTimeConflict):
		writeError(w, http.StatusConflict, "time_conflict", err.Error())

	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "doctor's calendar is being modified, please retry shortly")

	case errors.Is(err, scheduling.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())

	case errors.Is(err, scheduling.ErrInvalidPatient):
		writeError(w, http.StatusBadRequest, "invalid_patient", err.Error())

	case errors.Is(err, scheduling.ErrInvalidDoctor):
		writeError(w, http.StatusBadRequest, "invalid_doctor", err.Error())

	case errors.Is(err, scheduling.ErrAlreadyInactive),
		errors.Is(err, directory.ErrAlreadyInactive):
		writeError(w, http.StatusBadRequest, "already_inactive", err.Error())

	case errors.Is(err, scheduling.ErrAlreadyActive),
		errors.Is(err, directory.ErrAlreadyActive):
		writeError(w, http.StatusBadRequest, "already_active", err.Error())

	case errors.Is(err, scheduling.ErrInvalidStatus),
		errors.Is(err, scheduling.ErrInvalidStatusTransition),
		errors.Is(err, scheduling.ErrInvalidDuration),
		errors.Is(err, scheduling.ErrInvalidTenant),
		errors.Is(err, directory.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())

	case errors.Is(err, directory.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate_email", err.Error())

	case errors.Is(err, directory.ErrDuplicateLicense):
		writeError(w, http.StatusConflict, "duplicate_license", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
