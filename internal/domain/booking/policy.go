package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DurationGranularity is the step durations must follow when no explicit
// allowed set is configured.
const DurationGranularity = 15

// Policy holds the booking rules a window is validated against.
type Policy struct {
	BusinessHourStart int
	BusinessHourEnd   int
	AllowWeekends     bool
	MinAdvanceHours   int
	MaxDaysInAdvance  int
	// AllowedDurations, when non-empty, is the exhaustive set of accepted
	// durations in minutes.
	AllowedDurations []int
	// Location is the time zone business hours, weekdays and calendar days
	// are evaluated in. Nil means UTC.
	Location *time.Location
}

// DefaultPolicy returns weekday 08:00-18:00 bookings made between one hour
// and 90 days ahead.
func DefaultPolicy() Policy {
	return Policy{
		BusinessHourStart: 8,
		BusinessHourEnd:   18,
		MinAdvanceHours:   1,
		MaxDaysInAdvance:  90,
		Location:          time.UTC,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// StartOfDay returns midnight of t's calendar day in the policy time zone.
func (p Policy) StartOfDay(t time.Time) time.Time {
	local := t.In(p.location())
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.location())
}

// Validate checks a proposed window against the policy. Checks run in a fixed
// order and the first failure is returned.
func Validate(start time.Time, durationMinutes int, p Policy, now time.Time) error {
	earliest := now.Add(time.Duration(p.MinAdvanceHours) * time.Hour)
	if start.Before(earliest) {
		return newValidationError(ReasonAdvanceWindow,
			"booking must be made at least %d hour(s) in advance", p.MinAdvanceHours)
	}
	latest := now.AddDate(0, 0, p.MaxDaysInAdvance)
	if start.After(latest) {
		return newValidationError(ReasonAdvanceWindow,
			"booking cannot be made more than %d days in advance", p.MaxDaysInAdvance)
	}

	local := start.In(p.location())
	if h := local.Hour(); h < p.BusinessHourStart || h >= p.BusinessHourEnd {
		return newValidationError(ReasonBusinessHours,
			"booking must start between %02d:00 and %02d:00", p.BusinessHourStart, p.BusinessHourEnd)
	}

	if wd := local.Weekday(); !p.AllowWeekends && (wd == time.Saturday || wd == time.Sunday) {
		return newValidationError(ReasonWeekend, "bookings are not available on weekends")
	}

	return p.checkDuration(durationMinutes)
}

// checkDuration applies the duration rule on its own.
func (p Policy) checkDuration(durationMinutes int) error {
	if durationMinutes <= 0 {
		return newValidationError(ReasonDuration, "duration must be positive")
	}
	if len(p.AllowedDurations) > 0 {
		for _, d := range p.AllowedDurations {
			if d == durationMinutes {
				return nil
			}
		}
		return newValidationError(ReasonDuration,
			"duration must be one of %s minutes", joinInts(p.AllowedDurations))
	}
	if durationMinutes%DurationGranularity != 0 {
		return newValidationError(ReasonDuration,
			"duration must be a multiple of %d minutes", DurationGranularity)
	}
	return nil
}

// at returns hour:00 on t's calendar day in the policy time zone.
func (p Policy) at(t time.Time, hour int) time.Time {
	y, m, d := t.In(p.location()).Date()
	return time.Date(y, m, d, hour, 0, 0, 0, p.location())
}

// ParseDurations parses a comma-separated list such as "15,30,45,60".
// Blank entries are ignored; an empty string yields nil.
func ParseDurations(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid duration %q: must be positive", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
