package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status is a workflow state of a booking.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusCheckedIn   Status = "CHECKED_IN"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusNoShow      Status = "NO_SHOW"
	StatusRescheduled Status = "RESCHEDULED"
)

// statusOrder lists every status in workflow order.
var statusOrder = []Status{
	StatusScheduled, StatusRescheduled, StatusConfirmed, StatusCheckedIn,
	StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow,
}

var allStatuses = map[Status]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCheckedIn: true,
	StatusInProgress: true, StatusCompleted: true, StatusCancelled: true,
	StatusNoShow: true, StatusRescheduled: true,
}

// ParseStatus returns the Status for s, or false if s is not a known state.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, allStatuses[st]
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// BlocksCalendar reports whether a booking in this status occupies its
// resource's time. Cancelled and no-show bookings free the slot.
func (s Status) BlocksCalendar() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// BookingType classifies the visit.
type BookingType string

const (
	TypeConsultation   BookingType = "CONSULTATION"
	TypeFollowUp       BookingType = "FOLLOW_UP"
	TypeEmergency      BookingType = "EMERGENCY"
	TypeRoutineCheckup BookingType = "ROUTINE_CHECKUP"
)

var validBookingTypes = map[BookingType]bool{
	TypeConsultation: true, TypeFollowUp: true, TypeEmergency: true, TypeRoutineCheckup: true,
}

// ParseBookingType returns the BookingType for s, or false if s is unknown.
func ParseBookingType(s string) (BookingType, bool) {
	bt := BookingType(s)
	return bt, validBookingTypes[bt]
}

// Booking maps to the booking table.
type Booking struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	SubjectID       uuid.UUID    `db:"subject_id" json:"subject_id"`
	ResourceID      *uuid.UUID   `db:"resource_id" json:"resource_id,omitempty"`
	LocationID      *uuid.UUID   `db:"location_id" json:"location_id,omitempty"`
	StartTime       time.Time    `db:"start_time" json:"start_time"`
	DurationMinutes int          `db:"duration_minutes" json:"duration_minutes"`
	BookingType     *BookingType `db:"booking_type" json:"booking_type,omitempty"`
	Status          Status       `db:"status" json:"status"`
	Notes           *string      `db:"notes" json:"notes,omitempty"`
	Reason          *string      `db:"reason" json:"reason,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// End returns the exclusive end of the booking window.
func (b *Booking) End() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// OverlapsWindow reports whether the booking's window overlaps [start, end).
func (b *Booking) OverlapsWindow(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.End(), start, end)
}

// SearchCriteria filters bookings. Every set field is combined with AND.
type SearchCriteria struct {
	SubjectID   *uuid.UUID
	ResourceID  *uuid.UUID
	LocationID  *uuid.UUID
	Statuses    []Status
	BookingType *BookingType
	// DateFrom and DateTo are inclusive calendar days.
	DateFrom *time.Time
	DateTo   *time.Time
	// TimeFrom and TimeTo bound the start's time of day, "HH:MM".
	TimeFrom *string
	TimeTo   *string
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
