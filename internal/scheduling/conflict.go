package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Detector answers "does this doctor already have a calendar-blocking
// appointment in [start, end)". Pure query, no side effects.
type Detector struct {
	repo Repository
}

func NewDetector(repo Repository) *Detector {
	return &Detector{repo: repo}
}

// Check returns the first conflicting appointment found, or nil. excludeID
// (uuid.Nil to disable) skips the record currently being moved or restored.
func (d *Detector) Check(ctx context.Context, tenantID, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (*Appointment, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenant
	}
	if doctorID == uuid.Nil {
		return nil, ErrInvalidDoctor
	}
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}
	return d.repo.FindOverlapping(ctx, tenantID, doctorID, start, end, excludeID)
}
