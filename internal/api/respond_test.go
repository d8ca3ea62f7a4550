package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dentaflow/clinic-scheduling/internal/capacity"
	"github.com/dentaflow/clinic-scheduling/internal/directory"
	redisclient "github.com/dentaflow/clinic-scheduling/internal/redis"
	"github.com/dentaflow/clinic-scheduling/internal/scheduling"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"appointment not found", scheduling.ErrNotFound, http.StatusNotFound, "not_found"},
		{"directory not found", directory.ErrNotFound, http.StatusNotFound, "not_found"},
		{"tenant not found", directory.ErrTenantNotFound, http.StatusNotFound, "not_found"},
		{"time conflict sentinel", scheduling.ErrTimeConflict, http.StatusConflict, "time_conflict"},
		{"lock contention", redisclient.ErrLockNotAcquired, http.StatusConflict, "schedule_busy"},
		{"invalid time range", scheduling.ErrInvalidTimeRange, http.StatusBadRequest, "invalid_time_range"},
		{"invalid patient", scheduling.ErrInvalidPatient, http.StatusBadRequest, "invalid_patient"},
		{"invalid doctor", scheduling.ErrInvalidDoctor, http.StatusBadRequest, "invalid_doctor"},
		{"already inactive", scheduling.ErrAlreadyInactive, http.StatusBadRequest, "already_inactive"},
		{"already active", scheduling.ErrAlreadyActive, http.StatusBadRequest, "already_active"},
		{"invalid transition", scheduling.ErrInvalidStatusTransition, http.StatusBadRequest, "invalid_payload"},
		{"duplicate email", directory.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
		{"duplicate license", directory.ErrDuplicateLicense, http.StatusConflict, "duplicate_license"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Error != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestWriteDomainErrorPlanLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, capacity.FromCheck("doctors", capacity.Check{Current: 3, Limit: 3}))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != "plan_limit_exceeded" {
		t.Errorf("code = %q", resp.Error)
	}
	if resp.CurrentCount == nil || *resp.CurrentCount != 3 {
		t.Error("current_count missing from plan limit response")
	}
	if resp.Limit == nil || *resp.Limit != 3 {
		t.Error("limit missing from plan limit response")
	}
}

func TestWriteDomainErrorTimeConflict(t *testing.T) {
	conflicting := &scheduling.Appointment{
		ID:        uuid.New(),
		StartTime: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, &scheduling.TimeConflictError{Conflicting: conflicting})

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != "time_conflict" {
		t.Errorf("code = %q", resp.Error)
	}
	if resp.ConflictingID == nil || *resp.ConflictingID != conflicting.ID.String() {
		t.Error("conflicting_id missing from conflict response")
	}
}

func TestTenantAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := TenantID(r.Context()); !ok {
			t.Error("tenant missing from context behind TenantAuth")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler := TenantAuth(next)

	t.Run("missing header rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/appointments", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/appointments", nil)
		req.Header.Set("X-Tenant-ID", "not-a-uuid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid tenant passes through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/appointments", nil)
		req.Header.Set("X-Tenant-ID", uuid.New().String())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})
}
