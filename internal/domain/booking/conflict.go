package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open windows [s1,e1) and [s2,e2) share an
// instant. Back-to-back windows do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ConflictDetector finds active bookings that collide with a proposed window.
// It always reads the repository, never the cache.
type ConflictDetector struct {
	repo Repository
}

func NewConflictDetector(repo Repository) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

// FindOverlapping returns the bookings of resourceID that block the calendar
// and overlap [start, end). excludeID, when set, is left out so a booking can
// be moved without colliding with itself.
func (d *ConflictDetector) FindOverlapping(ctx context.Context, resourceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Booking, error) {
	candidates, err := d.repo.FindOverlapping(ctx, resourceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings for resource %s: %w", resourceID, err)
	}
	var out []*Booking
	for _, b := range candidates {
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if !b.Status.BlocksCalendar() || !b.OverlapsWindow(start, end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
