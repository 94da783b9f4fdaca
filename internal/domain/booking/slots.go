package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Slot is a bookable window of a resource.
type Slot struct {
	ResourceID      uuid.UUID `json:"resource_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// AvailableSlots lists the windows of durationMinutes on date's calendar day
// that a new booking for resourceID would be accepted in. Candidates start
// every DurationGranularity minutes from the opening hour and end by the
// closing hour. A zero duration means DefaultDurationMinutes.
func (s *Service) AvailableSlots(ctx context.Context, resourceID uuid.UUID, date time.Time, durationMinutes int) ([]*Slot, error) {
	if durationMinutes == 0 {
		durationMinutes = DefaultDurationMinutes
	}
	if err := s.policy.checkDuration(durationMinutes); err != nil {
		return nil, err
	}

	open := s.policy.at(date, s.policy.BusinessHourStart)
	closing := s.policy.at(date, s.policy.BusinessHourEnd)
	taken, err := s.conflicts.FindOverlapping(ctx, resourceID, open, closing, nil)
	if err != nil {
		return nil, err
	}

	length := time.Duration(durationMinutes) * time.Minute
	now := s.now()
	slots := []*Slot{}
	for start := open; !start.Add(length).After(closing); start = start.Add(DurationGranularity * time.Minute) {
		if Validate(start, durationMinutes, s.policy, now) != nil {
			continue
		}
		end := start.Add(length)
		if overlapsAny(taken, start, end) {
			continue
		}
		slots = append(slots, &Slot{
			ResourceID:      resourceID,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: durationMinutes,
		})
	}
	return slots, nil
}

func overlapsAny(bookings []*Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.OverlapsWindow(start, end) {
			return true
		}
	}
	return false
}
