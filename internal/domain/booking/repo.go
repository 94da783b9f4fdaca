package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStatusChanged is returned by Update and UpdateStatus when another request
// changed the booking's status first.
var ErrStatusChanged = errors.New("booking status changed concurrently")

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// Update writes mutable fields (window, notes, reason, type) provided the
	// stored status is still status. Otherwise it returns ErrStatusChanged, or
	// ErrNotFound when the booking is gone. Status itself is never written.
	Update(ctx context.Context, b *Booking, status Status) error
	// UpdateStatus persists b's status, window and notes provided the stored
	// status is still from. Otherwise it returns ErrStatusChanged.
	UpdateStatus(ctx context.Context, b *Booking, from Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Booking, int, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*Booking, int, error)
	ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Booking, int, error)
	ListUpcomingBySubject(ctx context.Context, subjectID uuid.UUID, after time.Time, statuses []Status) ([]*Booking, error)
	ListByResourceBetween(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]*Booking, error)
	// FindOverlapping returns bookings of resourceID whose window overlaps
	// [start, end) and whose status blocks the calendar.
	FindOverlapping(ctx context.Context, resourceID uuid.UUID, start, end time.Time) ([]*Booking, error)
	Search(ctx context.Context, c SearchCriteria, limit, offset int) ([]*Booking, int, error)
	// CountByStatus counts the bookings matching c per status. Statuses with no
	// match may be absent.
	CountByStatus(ctx context.Context, c SearchCriteria) (map[Status]int, error)
	// WithResourceLock runs fn while holding an exclusive lock scoped to
	// resourceID. Repository calls made with the ctx passed to fn join the
	// same transaction.
	WithResourceLock(ctx context.Context, resourceID uuid.UUID, fn func(ctx context.Context) error) error
}
