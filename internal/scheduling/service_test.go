package scheduling

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeRepo is an in-memory Repository. Reads hand out copies so a caller
// mutation only sticks once UpdateAppointment runs, same as with real rows.
type fakeRepo struct {
	appts    map[uuid.UUID]Appointment
	doctors  map[uuid.UUID]Doctor
	patients map[uuid.UUID]Patient
	events   []EventLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		appts:    make(map[uuid.UUID]Appointment),
		doctors:  make(map[uuid.UUID]Doctor),
		patients: make(map[uuid.UUID]Patient),
	}
}

func (f *fakeRepo) addDoctor(tenantID uuid.UUID, active bool) uuid.UUID {
	id := uuid.New()
	f.doctors[id] = Doctor{ID: id, TenantID: tenantID, FullName: "Dr. Test", Active: active}
	return id
}

func (f *fakeRepo) addPatient(tenantID uuid.UUID, active bool) uuid.UUID {
	id := uuid.New()
	f.patients[id] = Patient{ID: id, TenantID: tenantID, FullName: "Test Patient", Active: active}
	return id
}

func (f *fakeRepo) InTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok || a.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := a
	return &cp, nil
}

func (f *fakeRepo) ListAppointments(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if a.TenantID != tenantID {
			continue
		}
		if !filter.IncludeInactive && !a.Active {
			continue
		}
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) CountByStatus(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, a := range f.appts {
		if a.TenantID != tenantID || !a.Active {
			continue
		}
		if a.StartTime.Before(to) && a.EndTime.After(from) {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRepo) FindOverlapping(ctx context.Context, tenantID, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (*Appointment, error) {
	for _, a := range f.appts {
		if a.TenantID != tenantID || a.DoctorID != doctorID {
			continue
		}
		if a.ID == excludeID || !a.Active || !a.Status.BlocksCalendar() {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, a *Appointment) error {
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.appts[a.ID] = *a
	return nil
}

func (f *fakeRepo) UpdateAppointment(ctx context.Context, a *Appointment) error {
	existing, ok := f.appts[a.ID]
	if !ok || existing.TenantID != a.TenantID {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now()
	f.appts[a.ID] = *a
	return nil
}

func (f *fakeRepo) CompareAndSwapStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok || a.TenantID != tenantID || a.Status != from {
		return nil, ErrNotFound
	}
	a.Status = to
	f.appts[id] = a
	cp := a
	return &cp, nil
}

func (f *fakeRepo) FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if !a.Active {
			continue
		}
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			continue
		}
		if a.EndTime.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetActiveDoctor(ctx context.Context, tenantID, id uuid.UUID) (*Doctor, error) {
	d, ok := f.doctors[id]
	if !ok || d.TenantID != tenantID || !d.Active {
		return nil, ErrInvalidDoctor
	}
	cp := d
	return &cp, nil
}

func (f *fakeRepo) GetActivePatient(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	p, ok := f.patients[id]
	if !ok || p.TenantID != tenantID || !p.Active {
		return nil, ErrInvalidPatient
	}
	cp := p
	return &cp, nil
}

func (f *fakeRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	f.events = append(f.events, ev)
	return nil
}

// fakeLocker runs the critical section inline.
type fakeLocker struct{}

func (fakeLocker) WithDoctorLock(ctx context.Context, tenantID, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePayments struct {
	err      error
	recorded []uuid.UUID
}

func (f *fakePayments) RecordPayment(ctx context.Context, tenantID, appointmentID uuid.UUID, amount decimal.Decimal) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, appointmentID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	repo     *fakeRepo
	payments *fakePayments
	svc      *Service
	tenantID uuid.UUID
	doctorID uuid.UUID
	patient  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	payments := &fakePayments{}
	tenantID := uuid.New()
	return &fixture{
		repo:     repo,
		payments: payments,
		svc:      NewService(repo, fakeLocker{}, payments, testLogger()),
		tenantID: tenantID,
		doctorID: repo.addDoctor(tenantID, true),
		patient:  repo.addPatient(tenantID, true),
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func (fx *fixture) mustCreate(t *testing.T, start, end time.Time) *Appointment {
	t.Helper()
	appt, err := fx.svc.Create(context.Background(), fx.tenantID, CreateInput{
		PatientID: fx.patient,
		DoctorID:  fx.doctorID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}

func TestCreateConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("overlapping interval rejected", func(t *testing.T) {
		fx := newFixture(t)
		first := fx.mustCreate(t, at(10, 0), at(10, 30))

		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 15),
			EndTime:   at(10, 45),
		})
		if !errors.Is(err, ErrTimeConflict) {
			t.Fatalf("expected time conflict, got %v", err)
		}

		var conflictErr *TimeConflictError
		if !errors.As(err, &conflictErr) {
			t.Fatal("expected *TimeConflictError")
		}
		if conflictErr.Conflicting == nil || conflictErr.Conflicting.ID != first.ID {
			t.Error("conflict error should name the blocking appointment")
		}
	})

	t.Run("same time different doctor allowed", func(t *testing.T) {
		fx := newFixture(t)
		fx.mustCreate(t, at(10, 0), at(10, 30))

		otherDoctor := fx.repo.addDoctor(fx.tenantID, true)
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  otherDoctor,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
		})
		if err != nil {
			t.Fatalf("different doctor should not conflict: %v", err)
		}
	})

	t.Run("back to back allowed", func(t *testing.T) {
		fx := newFixture(t)
		fx.mustCreate(t, at(10, 0), at(10, 30))

		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 30),
			EndTime:   at(11, 0),
		})
		if err != nil {
			t.Fatalf("back-to-back should not conflict: %v", err)
		}
	})

	t.Run("cancelled appointment frees the slot", func(t *testing.T) {
		fx := newFixture(t)
		first := fx.mustCreate(t, at(10, 0), at(10, 30))

		if _, err := fx.svc.Delete(ctx, fx.tenantID, first.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
		})
		if err != nil {
			t.Fatalf("cancelled slot should be bookable again: %v", err)
		}
	})
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("start must precede end", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(11, 0),
			EndTime:   at(10, 0),
		})
		if !errors.Is(err, ErrInvalidTimeRange) {
			t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
		}
	})

	t.Run("zero length interval rejected", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 0),
			EndTime:   at(10, 0),
		})
		if !errors.Is(err, ErrInvalidTimeRange) {
			t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
		}
	})

	t.Run("inactive doctor rejected", func(t *testing.T) {
		fx := newFixture(t)
		inactiveDoctor := fx.repo.addDoctor(fx.tenantID, false)
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  inactiveDoctor,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
		})
		if !errors.Is(err, ErrInvalidDoctor) {
			t.Fatalf("expected ErrInvalidDoctor, got %v", err)
		}
	})

	t.Run("inactive patient rejected", func(t *testing.T) {
		fx := newFixture(t)
		inactivePatient := fx.repo.addPatient(fx.tenantID, false)
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: inactivePatient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
		})
		if !errors.Is(err, ErrInvalidPatient) {
			t.Fatalf("expected ErrInvalidPatient, got %v", err)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		fx := newFixture(t)
		bad := Status("on_hold")
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
			Status:    &bad,
		})
		if !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("expected ErrInvalidStatus, got %v", err)
		}
	})
}

func TestCreateDuration(t *testing.T) {
	ctx := context.Background()

	t.Run("derived from interval", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(11, 0))
		if appt.DurationMinutes != 60 {
			t.Errorf("duration = %d, want 60", appt.DurationMinutes)
		}
	})

	t.Run("matching explicit value accepted", func(t *testing.T) {
		fx := newFixture(t)
		dur := 60
		appt, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID:       fx.patient,
			DoctorID:        fx.doctorID,
			StartTime:       at(10, 0),
			EndTime:         at(11, 0),
			DurationMinutes: &dur,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if appt.DurationMinutes != 60 {
			t.Errorf("duration = %d, want 60", appt.DurationMinutes)
		}
	})

	t.Run("mismatched explicit value rejected", func(t *testing.T) {
		fx := newFixture(t)
		dur := 45
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID:       fx.patient,
			DoctorID:        fx.doctorID,
			StartTime:       at(10, 0),
			EndTime:         at(11, 0),
			DurationMinutes: &dur,
		})
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("45 minutes against a 60-minute interval should be rejected, got %v", err)
		}
	})
}

func TestCreatePaymentIntent(t *testing.T) {
	ctx := context.Background()
	cost := decimal.NewFromInt(150)

	t.Run("intent triggers the ledger", func(t *testing.T) {
		fx := newFixture(t)
		appt, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
			Cost:      &cost,
			IsPaid:    true,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(fx.payments.recorded) != 1 || fx.payments.recorded[0] != appt.ID {
			t.Error("ledger should have been called once for the new appointment")
		}
	})

	t.Run("ledger failure does not fail the booking", func(t *testing.T) {
		fx := newFixture(t)
		fx.payments.err = errors.New("ledger down")

		appt, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
			Cost:      &cost,
			IsPaid:    true,
		})
		if err != nil {
			t.Fatalf("booking must survive a ledger failure: %v", err)
		}
		if appt.IsPaid {
			t.Error("appointment must not be paid when the ledger never recorded")
		}
	})

	t.Run("intent without cost is ignored", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
			PatientID: fx.patient,
			DoctorID:  fx.doctorID,
			StartTime: at(10, 0),
			EndTime:   at(10, 30),
			IsPaid:    true,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(fx.payments.recorded) != 0 {
			t.Error("ledger should not run without a positive cost")
		}
	})
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	appt := fx.mustCreate(t, at(10, 0), at(10, 30))

	otherTenant := uuid.New()

	if _, err := fx.svc.Get(ctx, otherTenant, appt.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant get should be not found, got %v", err)
	}
	if _, err := fx.svc.Delete(ctx, otherTenant, appt.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant delete should be not found, got %v", err)
	}
	if _, err := fx.svc.Update(ctx, otherTenant, appt.ID, Patch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant update should be not found, got %v", err)
	}

	// Another clinic's doctor with the same calendar window never conflicts.
	otherRepoDoctor := fx.repo.addDoctor(otherTenant, true)
	otherPatient := fx.repo.addPatient(otherTenant, true)
	_, err := fx.svc.Create(ctx, otherTenant, CreateInput{
		PatientID: otherPatient,
		DoctorID:  otherRepoDoctor,
		StartTime: at(10, 0),
		EndTime:   at(10, 30),
	})
	if err != nil {
		t.Errorf("other tenant booking should succeed: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("extending own interval is not a self conflict", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))

		newEnd := at(11, 0)
		updated, err := fx.svc.Update(ctx, fx.tenantID, appt.ID, Patch{EndTime: &newEnd})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !updated.EndTime.Equal(newEnd) {
			t.Error("end time not applied")
		}
		if updated.DurationMinutes != 60 {
			t.Errorf("duration = %d, want 60 after time change", updated.DurationMinutes)
		}
	})

	t.Run("moving onto another appointment conflicts", func(t *testing.T) {
		fx := newFixture(t)
		fx.mustCreate(t, at(10, 0), at(10, 30))
		second := fx.mustCreate(t, at(11, 0), at(11, 30))

		newStart, newEnd := at(10, 15), at(10, 45)
		_, err := fx.svc.Update(ctx, fx.tenantID, second.ID, Patch{StartTime: &newStart, EndTime: &newEnd})
		if !errors.Is(err, ErrTimeConflict) {
			t.Fatalf("expected time conflict, got %v", err)
		}
	})

	t.Run("terminal status cannot move", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))
		if _, err := fx.svc.MarkDone(ctx, fx.tenantID, appt.ID, nil); err != nil {
			t.Fatalf("complete: %v", err)
		}

		st := StatusScheduled
		_, err := fx.svc.Update(ctx, fx.tenantID, appt.ID, Patch{Status: &st})
		if !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
		}
	})

	t.Run("mismatched duration rejected", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))

		dur := 45
		_, err := fx.svc.Update(ctx, fx.tenantID, appt.ID, Patch{DurationMinutes: &dur})
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration disagreeing with the interval should be rejected, got %v", err)
		}
	})

	t.Run("cancelling via status patch is rejected", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))

		st := StatusCancelled
		_, err := fx.svc.Update(ctx, fx.tenantID, appt.ID, Patch{Status: &st})
		if !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
		}

		// The record is untouched: delete remains the only cancellation path.
		got, err := fx.svc.Get(ctx, fx.tenantID, appt.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != StatusScheduled || !got.Active {
			t.Errorf("appointment = %s/active=%v, want scheduled and active", got.Status, got.Active)
		}
	})

	t.Run("inactive appointment cannot be updated", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))
		if _, err := fx.svc.Delete(ctx, fx.tenantID, appt.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		note := "late note"
		_, err := fx.svc.Update(ctx, fx.tenantID, appt.ID, Patch{Notes: &note})
		if !errors.Is(err, ErrAlreadyInactive) {
			t.Fatalf("expected ErrAlreadyInactive, got %v", err)
		}
	})
}

func TestDeleteRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("delete is rejected when repeated", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))

		deleted, err := fx.svc.Delete(ctx, fx.tenantID, appt.ID)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if deleted.Active || deleted.Status != StatusCancelled {
			t.Error("delete should deactivate and cancel")
		}

		if _, err := fx.svc.Delete(ctx, fx.tenantID, appt.ID); !errors.Is(err, ErrAlreadyInactive) {
			t.Fatalf("second delete should fail with ErrAlreadyInactive, got %v", err)
		}
	})

	t.Run("restore round trip", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))

		if _, err := fx.svc.Delete(ctx, fx.tenantID, appt.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		restored, err := fx.svc.Restore(ctx, fx.tenantID, appt.ID)
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		if !restored.Active || restored.Status != StatusScheduled {
			t.Error("restore should reactivate as scheduled")
		}

		if _, err := fx.svc.Restore(ctx, fx.tenantID, appt.ID); !errors.Is(err, ErrAlreadyActive) {
			t.Fatalf("restoring an active appointment should fail, got %v", err)
		}
	})

	t.Run("restore is blocked when the slot was retaken", func(t *testing.T) {
		fx := newFixture(t)
		appt := fx.mustCreate(t, at(10, 0), at(10, 30))

		if _, err := fx.svc.Delete(ctx, fx.tenantID, appt.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		fx.mustCreate(t, at(10, 0), at(10, 30))

		_, err := fx.svc.Restore(ctx, fx.tenantID, appt.ID)
		if !errors.Is(err, ErrTimeConflict) {
			t.Fatalf("restore into a taken slot should conflict, got %v", err)
		}
	})
}

func TestMarkDone(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	note := "existing"
	appt, err := fx.svc.Create(ctx, fx.tenantID, CreateInput{
		PatientID: fx.patient,
		DoctorID:  fx.doctorID,
		StartTime: at(10, 0),
		EndTime:   at(10, 30),
		Notes:     &note,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	visit := "cleaning done, no caries"
	done, err := fx.svc.MarkDone(ctx, fx.tenantID, appt.ID, &visit)
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.Notes == nil || *done.Notes != "existing\ncleaning done, no caries" {
		t.Errorf("notes not merged: %v", done.Notes)
	}
}

func TestSweepNoShows(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	past := time.Now().Add(-2 * time.Hour)
	overdue := fx.mustCreate(t, past, past.Add(30*time.Minute))

	future := time.Now().Add(2 * time.Hour)
	upcoming := fx.mustCreate(t, future, future.Add(30*time.Minute))

	swept, err := fx.svc.SweepNoShows(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	got, err := fx.svc.Get(ctx, fx.tenantID, overdue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusNoShow {
		t.Errorf("overdue status = %s, want no_show", got.Status)
	}

	got, err = fx.svc.Get(ctx, fx.tenantID, upcoming.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusScheduled {
		t.Errorf("upcoming status = %s, want scheduled", got.Status)
	}

	// The status flip writes its audit row in the same transaction.
	var logged int
	for _, ev := range fx.repo.events {
		if ev.EventType == EventAppointmentNoShow && ev.AppointmentID != nil && *ev.AppointmentID == overdue.ID {
			logged++
		}
	}
	if logged != 1 {
		t.Errorf("no-show events for overdue appointment = %d, want 1", logged)
	}
}
