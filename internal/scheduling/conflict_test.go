package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

	tests := []struct {
		name                   string
		aStart, aEnd           time.Time
		bStart, bEnd           time.Time
		want                   bool
	}{
		{
			name:   "partial overlap",
			aStart: at(0), aEnd: at(30),
			bStart: at(15), bEnd: at(45),
			want: true,
		},
		{
			name:   "identical intervals",
			aStart: at(0), aEnd: at(30),
			bStart: at(0), bEnd: at(30),
			want: true,
		},
		{
			name:   "contained interval",
			aStart: at(0), aEnd: at(60),
			bStart: at(15), bEnd: at(30),
			want: true,
		},
		{
			name:   "back to back, a first",
			aStart: at(0), aEnd: at(30),
			bStart: at(30), bEnd: at(60),
			want: false,
		},
		{
			name:   "back to back, b first",
			aStart: at(30), aEnd: at(60),
			bStart: at(0), bEnd: at(30),
			want: false,
		},
		{
			name:   "disjoint",
			aStart: at(0), aEnd: at(30),
			bStart: at(60), bEnd: at(90),
			want: false,
		},
		{
			name:   "one minute overlap",
			aStart: at(0), aEnd: at(31),
			bStart: at(30), bEnd: at(60),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd)
			if got != tt.want {
				t.Errorf("Overlaps(%v, %v, %v, %v) = %v, want %v",
					tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
			}
			// Overlap is symmetric
			if Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd) != got {
				t.Error("Overlaps is not symmetric")
			}
		})
	}
}

func TestStatusBlocksCalendar(t *testing.T) {
	blocking := []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusRescheduled}
	for _, st := range blocking {
		if !st.BlocksCalendar() {
			t.Errorf("status %s should block the calendar", st)
		}
	}

	for _, st := range []Status{StatusCancelled, StatusNoShow} {
		if st.BlocksCalendar() {
			t.Errorf("status %s should not block the calendar", st)
		}
	}
}

func TestDetectorCheckValidation(t *testing.T) {
	ctx := context.Background()
	detector := NewDetector(newFakeRepo())
	start, end := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

	t.Run("missing tenant", func(t *testing.T) {
		_, err := detector.Check(ctx, uuid.Nil, uuid.New(), start, end, uuid.Nil)
		if !errors.Is(err, ErrInvalidTenant) {
			t.Fatalf("expected ErrInvalidTenant, got %v", err)
		}
	})

	t.Run("missing doctor", func(t *testing.T) {
		_, err := detector.Check(ctx, uuid.New(), uuid.Nil, start, end, uuid.Nil)
		if !errors.Is(err, ErrInvalidDoctor) {
			t.Fatalf("expected ErrInvalidDoctor, got %v", err)
		}
	})

	t.Run("inverted interval", func(t *testing.T) {
		_, err := detector.Check(ctx, uuid.New(), uuid.New(), end, start, uuid.Nil)
		if !errors.Is(err, ErrInvalidTimeRange) {
			t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
		}
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusInProgress, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusScheduled, StatusScheduled, true},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusScheduled, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusScheduled, StatusCancelled, false},
		{StatusConfirmed, StatusCancelled, false},
		{StatusInProgress, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
