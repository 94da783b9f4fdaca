package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/booking/internal/platform/db"
)

// IdentityChecker confirms that a subject is registered and allowed to book.
type IdentityChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// Publisher delivers lifecycle events. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// CacheStore memoizes read results. Entries are grouped by scope and a whole
// scope can be dropped at once.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
	InvalidateAll(ctx context.Context, scope string)
}

// Counters is a sink for monotonic business counters.
type Counters interface {
	Inc(name string)
}

// Counter names.
const (
	CounterCreated   = "bookings.created"
	CounterCancelled = "bookings.cancelled"
	CounterNoShows   = "bookings.no_shows"
	CounterConflicts = "bookings.conflicts"
)

// Cache scopes.
const (
	ScopeBookingsPage     = "bookings-page"
	ScopeBookingByID      = "booking-by-id"
	ScopeSubjectBookings  = "subject-bookings"
	ScopeResourceSchedule = "resource-schedule"
)

var cacheTTLs = map[string]time.Duration{
	ScopeBookingsPage:     5 * time.Minute,
	ScopeBookingByID:      5 * time.Minute,
	ScopeSubjectBookings:  3 * time.Minute,
	ScopeResourceSchedule: 2 * time.Minute,
}

var cacheScopes = []string{ScopeBookingsPage, ScopeBookingByID, ScopeSubjectBookings, ScopeResourceSchedule}

// upcomingStatuses are the states listed as a subject's upcoming bookings.
var upcomingStatuses = []Status{StatusScheduled, StatusConfirmed, StatusRescheduled}

const (
	// NoShowGrace is how long after its start a booking must be before it can
	// be marked as a no-show.
	NoShowGrace = 15 * time.Minute

	// DefaultTopic is the topic events are published to unless overridden.
	DefaultTopic = "booking-events"

	maxReasonLength = 500
	maxNotesLength  = 1000

	// maxDayListing caps a single day's location listing.
	maxDayListing = 500
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPublisher sets the event publisher and the topic events go to.
func WithPublisher(p Publisher, topic string) ServiceOption {
	return func(s *Service) {
		s.publisher = p
		if topic != "" {
			s.topic = topic
		}
	}
}

// WithCache enables read-through caching of queries.
func WithCache(c CacheStore) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithCounters sets the counter sink.
func WithCounters(c Counters) ServiceOption {
	return func(s *Service) { s.counters = c }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

type nopCounters struct{}

func (nopCounters) Inc(string) {}

// Service runs the booking workflow: it validates windows, rejects overlaps,
// drives the status machine and fans mutations out to events, the cache and
// counters.
type Service struct {
	repo      Repository
	conflicts *ConflictDetector
	identity  IdentityChecker
	policy    Policy

	publisher Publisher
	topic     string
	cache     CacheStore
	counters  Counters
	logger    zerolog.Logger
	now       func() time.Time

	// gens counts invalidations per cache scope. A read only stores its
	// result if no invalidation happened while it was loading.
	genMu sync.RWMutex
	gens  map[string]uint64
}

func NewService(repo Repository, identity IdentityChecker, policy Policy, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		conflicts: NewConflictDetector(repo),
		identity:  identity,
		policy:    policy,
		topic:     DefaultTopic,
		counters:  nopCounters{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		gens:      make(map[string]uint64, len(cacheScopes)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Policy returns the booking rules the service enforces.
func (s *Service) Policy() Policy {
	return s.policy
}

// -- Commands --

// Create validates and stores a new booking in SCHEDULED status. ID, status
// and timestamps of b are set on success.
func (s *Service) Create(ctx context.Context, b *Booking) error {
	if err := s.create(ctx, b); err != nil {
		return s.fail(OpCreate, b.ID, err)
	}
	s.afterMutation(ctx, EventCreated, b, CounterCreated)
	return nil
}

func (s *Service) create(ctx context.Context, b *Booking) error {
	if b.SubjectID == uuid.Nil {
		return newValidationError(ReasonInvalidInput, "subject_id is required")
	}
	if strVal(b.Reason) == "" {
		return newValidationError(ReasonInvalidInput, "reason is required")
	}
	if err := checkFields(b); err != nil {
		return err
	}
	if err := s.checkSubject(ctx, b.SubjectID); err != nil {
		return err
	}
	if err := Validate(b.StartTime, b.DurationMinutes, s.policy, s.now()); err != nil {
		return err
	}

	b.Status = StatusScheduled
	return s.withResourceLock(ctx, b.ResourceID, func(ctx context.Context) error {
		if err := s.checkConflicts(ctx, b, OpCreate, nil); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
}

// Changes lists the fields an update may set. Nil fields are left as they are.
type Changes struct {
	StartTime       *time.Time
	DurationMinutes *int
	BookingType     *BookingType
	Notes           *string
	Reason          *string
}

// Update applies c to booking id. Moving the window is only allowed while the
// booking is still pending and re-runs validation and the overlap check. Text
// fields may change in any status.
func (s *Service) Update(ctx context.Context, id uuid.UUID, c Changes) (*Booking, error) {
	b, err := s.update(ctx, id, c)
	if err != nil {
		return nil, s.fail(OpUpdate, id, err)
	}
	s.afterMutation(ctx, EventUpdated, b, "")
	return b, nil
}

func (s *Service) update(ctx context.Context, id uuid.UUID, c Changes) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}

	moved := (c.StartTime != nil && !c.StartTime.Equal(b.StartTime)) ||
		(c.DurationMinutes != nil && *c.DurationMinutes != b.DurationMinutes)
	if moved && !CanMoveWindow(b.Status) {
		return nil, invalidTransition(b.Status, OpUpdate)
	}

	if c.StartTime != nil {
		b.StartTime = *c.StartTime
	}
	if c.DurationMinutes != nil {
		b.DurationMinutes = *c.DurationMinutes
	}
	if c.BookingType != nil {
		b.BookingType = c.BookingType
	}
	if c.Notes != nil {
		b.Notes = c.Notes
	}
	if c.Reason != nil {
		if *c.Reason == "" {
			return nil, newValidationError(ReasonInvalidInput, "reason cannot be empty")
		}
		b.Reason = c.Reason
	}
	if err := checkFields(b); err != nil {
		return nil, err
	}

	write := func(ctx context.Context) error {
		if err := s.repo.Update(ctx, b, b.Status); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return concurrentChange(b.Status, OpUpdate)
			}
			return fmt.Errorf("update booking %s: %w", id, err)
		}
		return nil
	}
	if !moved {
		if err := write(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}

	if err := Validate(b.StartTime, b.DurationMinutes, s.policy, s.now()); err != nil {
		return nil, err
	}
	err = s.withResourceLock(ctx, b.ResourceID, func(ctx context.Context) error {
		if err := s.checkConflicts(ctx, b, OpUpdate, &b.ID); err != nil {
			return err
		}
		return write(ctx)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a booking regardless of its status.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.fail(OpDelete, id, fmt.Errorf("get booking %s: %w", id, err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(OpDelete, id, fmt.Errorf("delete booking %s: %w", id, err))
	}
	s.afterMutation(ctx, EventDeleted, b, "")
	return nil
}

// Confirm moves a scheduled booking to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, step{op: OpConfirm})
}

// Cancel cancels a pending booking whose start has not passed. A non-empty
// reason is appended to the notes.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Booking, error) {
	return s.transition(ctx, id, step{
		op: OpCancel,
		guard: func(b *Booking, now time.Time) error {
			if b.StartTime.Before(now) {
				return newValidationError(ReasonPastBooking, "cannot cancel a booking that has already started")
			}
			return nil
		},
		mutate: func(b *Booking) {
			if reason != "" {
				appendNote(b, "Cancellation reason: "+reason)
			}
		},
		counter: CounterCancelled,
	})
}

// Reschedule moves a pending booking to a new window. A nil duration keeps the
// current one.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start time.Time, durationMinutes *int) (*Booking, error) {
	return s.transition(ctx, id, step{
		op: OpReschedule,
		guard: func(b *Booking, now time.Time) error {
			d := b.DurationMinutes
			if durationMinutes != nil {
				d = *durationMinutes
			}
			return Validate(start, d, s.policy, now)
		},
		mutate: func(b *Booking) {
			b.StartTime = start
			if durationMinutes != nil {
				b.DurationMinutes = *durationMinutes
			}
		},
		checkWindow: true,
	})
}

// MarkNoShow records that the subject did not turn up. Allowed once the grace
// period after the start has elapsed.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, step{
		op: OpNoShow,
		guard: func(b *Booking, now time.Time) error {
			if b.StartTime.After(now.Add(-NoShowGrace)) {
				return newValidationError(ReasonNoShowTooEarly,
					"a booking can be marked as no-show %d minutes after its start", int(NoShowGrace.Minutes()))
			}
			return nil
		},
		counter: CounterNoShows,
	})
}

// CheckIn records arrival. Bookings from earlier days cannot be checked in.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, step{
		op: OpCheckIn,
		guard: func(b *Booking, now time.Time) error {
			if s.policy.StartOfDay(b.StartTime).Before(s.policy.StartOfDay(now)) {
				return newValidationError(ReasonCheckInDay, "cannot check in a booking from a previous day")
			}
			return nil
		},
	})
}

// Start moves a checked-in booking to IN_PROGRESS.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, step{op: OpStart})
}

// Complete finishes an in-progress booking. Non-empty notes are appended.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, notes string) (*Booking, error) {
	return s.transition(ctx, id, step{
		op: OpComplete,
		mutate: func(b *Booking) {
			if notes != "" {
				appendNote(b, notes)
			}
		},
	})
}

type step struct {
	op     Operation
	guard  func(b *Booking, now time.Time) error
	mutate func(b *Booking)
	// checkWindow re-runs the overlap check for the mutated window under the
	// resource lock before persisting.
	checkWindow bool
	counter     string
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, st step) (*Booking, error) {
	b, err := s.applyStep(ctx, id, st)
	if err != nil {
		return nil, s.fail(st.op, id, err)
	}
	s.afterMutation(ctx, eventTypes[st.op], b, st.counter)
	return b, nil
}

func (s *Service) applyStep(ctx context.Context, id uuid.UUID, st step) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	next, err := Next(b.Status, st.op)
	if err != nil {
		return nil, err
	}
	if st.guard != nil {
		if err := st.guard(b, s.now()); err != nil {
			return nil, err
		}
	}

	from := b.Status
	b.Status = next
	if st.mutate != nil {
		st.mutate(b)
	}
	if err := checkFields(b); err != nil {
		return nil, err
	}

	persist := func(ctx context.Context) error {
		if st.checkWindow {
			if err := s.checkConflicts(ctx, b, st.op, &b.ID); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateStatus(ctx, b, from); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return concurrentChange(from, st.op)
			}
			return fmt.Errorf("update booking %s status: %w", id, err)
		}
		return nil
	}
	if st.checkWindow {
		err = s.withResourceLock(ctx, b.ResourceID, persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// -- Queries --

type page struct {
	Items []*Booking `json:"items"`
	Total int        `json:"total"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return readThrough(ctx, s, ScopeBookingByID, id.String(), func(ctx context.Context) (*Booking, error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	p, err := readThrough(ctx, s, ScopeBookingsPage, fmt.Sprintf("all:%d:%d", limit, offset), func(ctx context.Context) (page, error) {
		items, total, err := s.repo.List(ctx, limit, offset)
		return page{Items: items, Total: total}, err
	})
	return p.Items, p.Total, err
}

func (s *Service) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	key := fmt.Sprintf("%s:%d:%d", subjectID, limit, offset)
	p, err := readThrough(ctx, s, ScopeSubjectBookings, key, func(ctx context.Context) (page, error) {
		items, total, err := s.repo.ListBySubject(ctx, subjectID, limit, offset)
		return page{Items: items, Total: total}, err
	})
	return p.Items, p.Total, err
}

func (s *Service) ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	key := fmt.Sprintf("%s:%d:%d", resourceID, limit, offset)
	p, err := readThrough(ctx, s, ScopeResourceSchedule, key, func(ctx context.Context) (page, error) {
		items, total, err := s.repo.ListByResource(ctx, resourceID, limit, offset)
		return page{Items: items, Total: total}, err
	})
	return p.Items, p.Total, err
}

// Upcoming lists a subject's pending bookings that start after now, earliest
// first.
func (s *Service) Upcoming(ctx context.Context, subjectID uuid.UUID) ([]*Booking, error) {
	return readThrough(ctx, s, ScopeSubjectBookings, "upcoming:"+subjectID.String(), func(ctx context.Context) ([]*Booking, error) {
		return s.repo.ListUpcomingBySubject(ctx, subjectID, s.now(), upcomingStatuses)
	})
}

// ResourceSchedule lists a resource's bookings starting on the calendar day of
// date, in the policy time zone.
func (s *Service) ResourceSchedule(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]*Booking, error) {
	from := s.policy.StartOfDay(date)
	to := from.AddDate(0, 0, 1)
	key := resourceID.String() + ":" + from.Format("2006-01-02")
	return readThrough(ctx, s, ScopeResourceSchedule, key, func(ctx context.Context) ([]*Booking, error) {
		return s.repo.ListByResourceBetween(ctx, resourceID, from, to)
	})
}

// Search filters bookings. It always reads the store.
func (s *Service) Search(ctx context.Context, c SearchCriteria, limit, offset int) ([]*Booking, int, error) {
	if err := checkCriteria(c); err != nil {
		return nil, 0, err
	}
	return s.repo.Search(ctx, c, limit, offset)
}

// ListCurrentBySubject lists a subject's bookings starting today or later in
// any status, leaving out earlier history.
func (s *Service) ListCurrentBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	today := s.policy.StartOfDay(s.now())
	return s.repo.Search(ctx, SearchCriteria{SubjectID: &subjectID, DateFrom: &today}, limit, offset)
}

// LocationSchedule lists the bookings held at a location on date's calendar
// day, earliest first.
func (s *Service) LocationSchedule(ctx context.Context, locationID uuid.UUID, date time.Time) ([]*Booking, error) {
	day := s.policy.StartOfDay(date)
	items, _, err := s.repo.Search(ctx, SearchCriteria{LocationID: &locationID, DateFrom: &day, DateTo: &day}, maxDayListing, 0)
	return items, err
}

// Statistics summarizes the bookings matching c by status.
type Statistics struct {
	Total            int            `json:"total"`
	ByStatus         map[Status]int `json:"by_status"`
	CompletionRate   float64        `json:"completion_rate"`
	CancellationRate float64        `json:"cancellation_rate"`
	NoShowRate       float64        `json:"no_show_rate"`
}

// Statistics counts the bookings matching c per status. Every status is
// present in the result, zero when none match.
func (s *Service) Statistics(ctx context.Context, c SearchCriteria) (*Statistics, error) {
	if err := checkCriteria(c); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	st := &Statistics{ByStatus: make(map[Status]int, len(statusOrder))}
	for _, status := range statusOrder {
		st.ByStatus[status] = counts[status]
		st.Total += counts[status]
	}
	if st.Total > 0 {
		total := float64(st.Total)
		st.CompletionRate = float64(st.ByStatus[StatusCompleted]) / total
		st.CancellationRate = float64(st.ByStatus[StatusCancelled]) / total
		st.NoShowRate = float64(st.ByStatus[StatusNoShow]) / total
	}
	return st, nil
}

func checkCriteria(c SearchCriteria) error {
	if c.DateFrom != nil && c.DateTo != nil && c.DateTo.Before(*c.DateFrom) {
		return newValidationError(ReasonInvalidInput, "date_to must not be before date_from")
	}
	for _, st := range c.Statuses {
		if _, ok := ParseStatus(string(st)); !ok {
			return newValidationError(ReasonInvalidInput, "unknown status %q", st)
		}
	}
	return nil
}

// -- Helpers --

func (s *Service) checkSubject(ctx context.Context, id uuid.UUID) error {
	exists, err := s.identity.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: verify subject %s: %w", ErrDependencyUnavailable, id, err)
	}
	if !exists {
		return newValidationError(ReasonSubjectUnknown, "subject %s is not registered", id)
	}
	active, err := s.identity.IsActive(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: verify subject %s: %w", ErrDependencyUnavailable, id, err)
	}
	if !active {
		return newValidationError(ReasonSubjectInactive, "subject %s is not active", id)
	}
	return nil
}

func (s *Service) checkConflicts(ctx context.Context, b *Booking, op Operation, exclude *uuid.UUID) error {
	if b.ResourceID == nil {
		return nil
	}
	found, err := s.conflicts.FindOverlapping(ctx, *b.ResourceID, b.StartTime, b.End(), exclude)
	if err != nil {
		return err
	}
	if len(found) > 0 {
		s.inc(CounterConflicts)
		return overlapConflict(op, len(found))
	}
	return nil
}

// withResourceLock runs fn under the resource lock. Walk-ins have no resource
// and run unlocked.
func (s *Service) withResourceLock(ctx context.Context, resourceID *uuid.UUID, fn func(ctx context.Context) error) error {
	if resourceID == nil {
		return fn(ctx)
	}
	return s.repo.WithResourceLock(ctx, *resourceID, fn)
}

func (s *Service) afterMutation(ctx context.Context, eventType string, b *Booking, counter string) {
	s.publish(ctx, NewEvent(eventType, b, s.now()))
	s.invalidate(ctx)
	if counter != "" {
		s.inc(counter)
	}
	s.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("status", string(b.Status)).
		Str("event", eventType).
		Msg("booking changed")
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.topic, ev.BookingID.String(), ev); err != nil {
		s.logger.Warn().Err(err).
			Str("booking_id", ev.BookingID.String()).
			Str("event", ev.EventType).
			Msg("failed to publish booking event")
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	for _, scope := range cacheScopes {
		s.gens[scope]++
	}
	s.genMu.Unlock()
	for _, scope := range cacheScopes {
		s.cache.InvalidateAll(ctx, scope)
	}
}

func (s *Service) generation(scope string) uint64 {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.gens[scope]
}

// storeIfCurrent caches raw unless scope was invalidated after gen was read.
// Holding the read lock across the check and the Put orders it before any
// concurrent bump, whose InvalidateAll then removes the entry.
func (s *Service) storeIfCurrent(ctx context.Context, scope, key string, raw []byte, gen uint64) bool {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	if s.gens[scope] != gen {
		return false
	}
	s.cache.Put(ctx, key, raw, cacheTTLs[scope])
	return true
}

func (s *Service) inc(name string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().Interface("panic", r).Str("counter", name).Msg("counter increment failed")
		}
	}()
	s.counters.Inc(name)
}

// fail logs err at a level matching its kind and returns it unchanged.
func (s *Service) fail(op Operation, id uuid.UUID, err error) error {
	ev := s.logger.Error()
	if IsExpected(err) {
		ev = s.logger.Warn()
	}
	ev.Err(err).Str("operation", string(op)).Str("booking_id", id.String()).Msg("booking operation rejected")
	return err
}

func readThrough[T any](ctx context.Context, s *Service, scope, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}
	full := cacheKey(ctx, scope, key)
	if raw, ok := s.cache.Get(ctx, full); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		s.logger.Warn().Str("key", full).Msg("discarding undecodable cache entry")
	}
	gen := s.generation(scope)
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if !s.storeIfCurrent(ctx, scope, full, raw, gen) {
			s.logger.Debug().Str("key", full).Msg("scope invalidated during load, result not cached")
		}
	}
	return v, nil
}

// cacheKey builds "<scope>::<tenant>:<key>" so tenants never share entries and
// a scope can be dropped by prefix.
func cacheKey(ctx context.Context, scope, key string) string {
	return scope + "::" + db.TenantFromContext(ctx) + ":" + key
}

func checkFields(b *Booking) error {
	if utf8.RuneCountInString(strVal(b.Reason)) > maxReasonLength {
		return newValidationError(ReasonInvalidInput, "reason must be at most %d characters", maxReasonLength)
	}
	if utf8.RuneCountInString(strVal(b.Notes)) > maxNotesLength {
		return newValidationError(ReasonInvalidInput, "notes must be at most %d characters", maxNotesLength)
	}
	if b.BookingType != nil {
		if _, ok := ParseBookingType(string(*b.BookingType)); !ok {
			return newValidationError(ReasonInvalidInput, "unknown booking type %q", *b.BookingType)
		}
	}
	return nil
}

func appendNote(b *Booking, note string) {
	if strVal(b.Notes) == "" {
		b.Notes = &note
		return
	}
	joined := *b.Notes + "\n" + note
	b.Notes = &joined
}
