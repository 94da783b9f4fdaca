package booking

import (
	"time"

	"github.com/google/uuid"
)

// Event types published on the lifecycle topic.
const (
	EventCreated     = "booking.created"
	EventUpdated     = "booking.updated"
	EventDeleted     = "booking.deleted"
	EventCancelled   = "booking.cancelled"
	EventConfirmed   = "booking.confirmed"
	EventCheckedIn   = "booking.checked_in"
	EventStarted     = "booking.started"
	EventCompleted   = "booking.completed"
	EventNoShow      = "booking.no_show"
	EventRescheduled = "booking.rescheduled"
)

const (
	eventSource  = "booking-service"
	eventVersion = "1.0"
)

// eventTypes maps each transition to the event it emits.
var eventTypes = map[Operation]string{
	OpConfirm:    EventConfirmed,
	OpCancel:     EventCancelled,
	OpReschedule: EventRescheduled,
	OpNoShow:     EventNoShow,
	OpCheckIn:    EventCheckedIn,
	OpStart:      EventStarted,
	OpComplete:   EventCompleted,
}

// Event is the message published for every booking mutation. It is keyed by
// booking id so consumers see one booking's events in order.
type Event struct {
	EventID         uuid.UUID  `json:"event_id"`
	EventType       string     `json:"event_type"`
	BookingID       uuid.UUID  `json:"booking_id"`
	SubjectID       uuid.UUID  `json:"subject_id"`
	ResourceID      *uuid.UUID `json:"resource_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	Status          Status     `json:"status"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           *string    `json:"notes,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	Source          string     `json:"source"`
	Version         string     `json:"version"`
}

// NewEvent snapshots b into an event of the given type.
func NewEvent(eventType string, b *Booking, at time.Time) Event {
	return Event{
		EventID:         uuid.New(),
		EventType:       eventType,
		BookingID:       b.ID,
		SubjectID:       b.SubjectID,
		ResourceID:      b.ResourceID,
		StartTime:       b.StartTime,
		Status:          b.Status,
		DurationMinutes: b.DurationMinutes,
		Notes:           b.Notes,
		Timestamp:       at,
		Source:          eventSource,
		Version:         eventVersion,
	}
}

// EventKind names the event for broker routing.
func (e Event) EventKind() string {
	return e.EventType
}
